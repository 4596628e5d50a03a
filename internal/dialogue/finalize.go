package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/recruit-bot/internal/events"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/metrics"
	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/session"
	"github.com/spigell/recruit-bot/internal/storage"
	"go.uber.org/zap"
)

// finalize closes the questionnaire: verdict, persistence, event and the
// closing message. Persistence and event failures never change the reply.
func (e *Engine) finalize(ctx context.Context, t *turn) string {
	s := t.sess
	now := e.now()

	s.Completed = true
	s.CompletionTime = now
	s.Step = e.flow.Len() + 1

	verdict := e.aptitude.Evaluate(ctx, s.Profile)
	eligible := verdict.Eligible
	s.Eligible = &eligible
	metrics.Application(eligible)

	fields := logger.ConversationFields(t.id, s.Step)
	app := storage.BuildApplication(t.id, s.Profile, s.RawAnswers, verdict, now)

	storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	if err := e.repo.SaveApplication(storeCtx, app); err != nil {
		e.logger.Error("saving application", append(fields, zap.Error(err))...)
	} else {
		e.logger.Info("application saved", append(fields,
			zap.String("application_id", app.ID.String()),
			zap.Bool("eligible", eligible),
			zap.Strings("reasons", verdict.Reasons),
		)...)
	}

	ev := events.ApplicationCompleted{
		ApplicationID:      app.ID.String(),
		Phone:              app.Phone,
		PositionID:         app.PositionID,
		PositionName:       app.PositionName,
		Eligible:           eligible,
		Reasons:            verdict.Reasons,
		InterviewDate:      app.InterviewDate,
		InterviewConfirmed: recruit.IsTrue(s.Profile.InterviewConfirmed),
		CompletedAt:        now,
	}
	if err := e.events.PublishCompleted(storeCtx, ev); err != nil {
		e.logger.Warn("publishing completion event", append(fields, zap.Error(err))...)
	}

	reply := e.closing(s.Profile, eligible)
	s.FinalReply = reply
	return e.say(t, reply)
}

func (e *Engine) closing(p recruit.Profile, eligible bool) string {
	if !eligible {
		return notEligible(e.cfg.Company)
	}
	if !recruit.IsTrue(p.InterviewConfirmed) {
		return interviewDeclined
	}

	when := "la fecha indicada"
	if t, err := time.Parse(time.RFC3339, p.InterviewDate); err == nil {
		when = t.Format("02/01 a las 15:04")
	}
	return interviewBooked(when, e.cfg.Address)
}

// summary describes a finished application for freeform follow-up replies.
func (e *Engine) summary(s *session.Session) string {
	var lines []string

	if s.Eligible != nil && *s.Eligible {
		lines = append(lines, "Estado del postulante: APTO (Pre-aprobado).")

		p := s.Profile
		switch {
		case p.InterviewDate != "" && recruit.IsTrue(p.InterviewConfirmed):
			when := p.InterviewDate
			if t, err := time.Parse(time.RFC3339, p.InterviewDate); err == nil {
				when = t.Format("02/01/2006 a las 15:04")
			}
			lines = append(lines,
				"",
				"DATOS DE REFERENCIA (usa SOLO cuando sea relevante a la pregunta):",
				"- Entrevista confirmada: "+when,
				"- Lugar: "+e.cfg.Address,
				"- Documentos: DNI y CV impreso",
				"- Tipo: Full Day (exámenes médicos, pruebas físicas, evaluaciones psicológicas)",
			)
		case p.ProposedInterview != "":
			lines = append(lines, fmt.Sprintf("Entrevista propuesta: %s (no confirmada por el postulante).", p.ProposedInterview))
		default:
			lines = append(lines, "Entrevista: pendiente de asignar.")
		}
	} else {
		lines = append(lines, "Estado del postulante: Postulación completada. Perfil registrado y en evaluación por el equipo de RRHH.")
	}

	lines = append(lines, "", "Fecha postulación: "+s.CompletionTime.Format("02/01/2006 15:04"))
	return strings.Join(lines, "\n")
}
