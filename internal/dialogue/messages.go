package dialogue

import "fmt"

const msgHelp = "📋 *Comandos:*\n" +
	"• *empezar*: iniciar postulación\n" +
	"• *reiniciar*: reiniciar proceso\n" +
	"• *estado*: ver progreso"

const (
	msgEmpty         = "¿Me puedes escribir tu consulta o respuesta? 😊"
	msgInvite        = "Escribe *empezar* para iniciar tu postulación. 👋"
	msgNotUnderstood = "No entendí tu respuesta."
	msgRegistered    = "Tu postulación está registrada."
	msgNoApplication = "Aún no tienes una postulación en curso. Escribe *empezar* para iniciarla. 👋"
	msgFollowUp      = "Gracias por tu interés. Ya tenemos tus datos registrados. ✅"
	// MsgApology is sent when a turn fails unexpectedly.
	MsgApology       = "Lo siento, tuvimos un problema procesando tu mensaje. Por favor, inténtalo nuevamente en unos minutos. 🙏"

	inviteContext = "Invita al usuario a escribir 'empezar' para postular."
)

func greeting(company string) string {
	return fmt.Sprintf("¡Hola! 👋 Soy el asistente virtual de *%s*.\n"+
		"Para iniciar tu postulación, escribe *empezar* o *quiero postular*.", company)
}

func progress(step, total int) string {
	return fmt.Sprintf("📊 Progreso: paso %d de %d (aprox).", step, total)
}

func cooldown(hours int) string {
	return fmt.Sprintf("Ya completaste tu postulación. Podrás volver a postular en %d horas.", hours)
}

func interviewBooked(when, address string) string {
	return fmt.Sprintf("🎉 ¡Excelente! Tu entrevista ha sido agendada para el *%s*.\n"+
		"📍 Te esperamos en: *%s*.\n"+
		"No olvides llevar tu DNI y CV impreso. ¡Éxitos! 💪", when, address)
}

const interviewDeclined = "Entendido. Lamentamos que no puedas asistir en este horario. 😊\n" +
	"Dejaremos tus datos registrados y te contactaremos si se abre otra fecha. ¡Gracias!"

func notEligible(company string) string {
	return "Muchas gracias por completar tu postulación. ✅\n" +
		"Hemos registrado correctamente tu información.\n" +
		"Tu perfil será evaluado y considerado en los procesos correspondientes.\n" +
		fmt.Sprintf("¡Gracias por tu interés en %s!", company)
}

func clarifyContext(text, problem, company string) string {
	return fmt.Sprintf("El usuario respondió: '%s'.\n"+
		"La validación falló con este error técnico: '%s'.\n"+
		"Actúa como reclutador humano de %s.\n"+
		"- Responde de forma breve, clara y natural.\n"+
		"- Empieza directamente con la explicación del problema, sin saludos.\n"+
		"- Pide el dato nuevamente con tacto.", text, problem, company)
}
