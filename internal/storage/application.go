package storage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/recruit-bot/internal/recruit"
)

// Application is a finished questionnaire as it is persisted and served by
// the query API.
type Application struct {
	ID    uuid.UUID `json:"id"`
	Phone string    `json:"phone_number"`

	PositionID      int            `json:"puesto_id,omitempty"`
	PositionName    string         `json:"puesto_name,omitempty"`
	Age             *int           `json:"edad,omitempty"`
	Origin          recruit.Region `json:"origen,omitempty"`
	Destination     recruit.Region `json:"destino,omitempty"`
	Secondary       *bool          `json:"secundaria_completa,omitempty"`
	HasNationalID   *bool          `json:"tiene_dni,omitempty"`
	License         *bool          `json:"tiene_licencia,omitempty"`
	LicenseCategory string         `json:"licencia_categoria,omitempty"`
	Available       *bool          `json:"disponibilidad_inmediata,omitempty"`

	FullName       string `json:"nombre_completo,omitempty"`
	FirstNames     string `json:"nombres,omitempty"`
	LastNames      string `json:"apellidos,omitempty"`
	Gender         string `json:"genero,omitempty"`
	DocumentType   string `json:"tipo_documento,omitempty"`
	DocumentNumber string `json:"numero_documento,omitempty"`
	Email          string `json:"correo_electronico,omitempty"`
	WorkedBefore   *bool  `json:"ha_trabajado_en_hermes,omitempty"`
	Modality       string `json:"modalidad_trabajo,omitempty"`
	District       string `json:"distrito_residencia,omitempty"`
	City           string `json:"ciudad_residencia,omitempty"`
	Channel        string `json:"medio_captacion,omitempty"`
	ChannelOther   string `json:"medio_captacion_otro,omitempty"`
	PositionOther  string `json:"puesto_otros_detalle,omitempty"`
	MiningBranch   string `json:"sucursal_mineria,omitempty"`
	Consent        *bool  `json:"autorizacion_datos,omitempty"`

	InterviewDate      string `json:"fecha_entrevista,omitempty"`
	InterviewConfirmed *bool  `json:"confirmacion_asistencia,omitempty"`

	Eligible   bool      `json:"es_apto"`
	Reasons    []string  `json:"motivos,omitempty"`
	RawAnswers string    `json:"respuestas_raw,omitempty"`
	AppliedAt  time.Time `json:"fecha_postulacion"`
}

// CleanPhone strips the WhatsApp suffixes from a chat id.
func CleanPhone(chatID string) string {
	phone := strings.TrimSpace(chatID)
	phone = strings.TrimSuffix(phone, "@c.us")
	phone = strings.TrimSuffix(phone, "@s.whatsapp.net")
	return phone
}

// BuildApplication turns a completed conversation into an Application.
func BuildApplication(chatID string, p recruit.Profile, raw map[recruit.Key]string, verdict recruit.Verdict, appliedAt time.Time) Application {
	app := Application{
		ID:                 uuid.New(),
		Phone:              CleanPhone(chatID),
		PositionID:         p.PositionID,
		PositionName:       p.PositionName,
		Age:                p.Age,
		Origin:             p.Origin,
		Destination:        p.Destination,
		Secondary:          p.Secondary,
		HasNationalID:      p.HasNationalID,
		License:            p.License,
		LicenseCategory:    p.LicenseCategory,
		Available:          p.Available,
		FullName:           p.FullName,
		FirstNames:         p.FirstNames,
		LastNames:          p.LastNames,
		Gender:             p.Gender,
		DocumentType:       p.DocumentType,
		DocumentNumber:     p.DocumentNumber,
		Email:              p.Email,
		WorkedBefore:       p.WorkedBefore,
		Modality:           p.Modality,
		District:           p.District,
		City:               p.City,
		Channel:            p.Channel,
		ChannelOther:       p.ChannelOther,
		PositionOther:      p.PositionOther,
		MiningBranch:       p.MiningBranch,
		Consent:            p.Consent,
		InterviewConfirmed: p.InterviewConfirmed,
		Eligible:           verdict.Eligible,
		Reasons:            verdict.Reasons,
		AppliedAt:          appliedAt,
	}

	if t, err := time.Parse(time.RFC3339, p.InterviewDate); err == nil {
		app.InterviewDate = dayKey(t)
	}

	if len(raw) > 0 {
		if data, err := json.Marshal(raw); err == nil {
			app.RawAnswers = string(data)
		}
	}

	return app
}

// dayKey is the calendar day of t in its own location.
func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
