package recruit

import (
	"fmt"
	"strings"
)

var questionText = map[Key]string{
	KeyConsent: "🔒 *FORMATO DE CONSENTIMIENTO DE DATOS PERSONALES*\n\n" +
		"Autorizo a HERMES TRANSPORTES BLINDADOS S.A. a tratar mis datos personales sensibles " +
		"(antecedentes policiales, penales, judiciales, historial crediticio) para evaluar mi idoneidad " +
		"en el proceso de selección, y a conservar mi CV por 6 meses. " +
		"Puede ejercer sus derechos ARCO en protecciondatospersonales@hermes.com.pe.\n\n" +
		"¿Autorizas el tratamiento de tus datos? (Responde *Sí* o *Acepto* para continuar)",
	KeyFirstNames: "✅ Gracias. A continuación, iniciaremos un cuestionario de aprox. 20 preguntas como " +
		"pre-entrevista de trabajo. Por favor asegúrate de completarlas todas correctamente.\n\n" +
		"1) Por favor, indícame tus *Nombres* (sin apellidos).",
	KeyLastNames:      "2) Ahora indícame tus *Apellidos*.",
	KeyAge:            "3) ¿Qué *edad* tienes?",
	KeyGender:         "4) ¿Cuál es tu género? (Masculino / Femenino / Otros)",
	KeyDocumentType:   "5) ¿Tipo de Documento de Identidad? (DNI / Carné de Extranjería)",
	KeyDocumentNumber: "6) Indícame tu *Número de Documento*.",
	KeyPhone:          "7) Bríndame un *Teléfono de Contacto*.",
	KeyEmail:          "8) ¿Cuál es tu *Correo electrónico*?",
	KeySecondary:      "9) ¿Grado de instrucción? (Secundaria Completa / Secundaria Incompleta)",
	KeyWorkedBefore:   "10) ¿Has trabajado en Hermes anteriormente? (Sí / No)",
	KeyModality: "11) Indica la modalidad de trabajo elegida (responde con el número):\n" +
		"1. Tiempo Completo\n2. Medio Tiempo\n3. Intermitente por días",
	KeyDistrict:        "12) Indica el *distrito* en donde vives.",
	KeyResidence:       "13) Indica tu lugar de residencia (Lima / Provincia).",
	KeyCity:            "14) Indica el *nombre de la provincia* de residencia.",
	KeyLicense:         "15) ¿Cuentas con Licencia de Conducir? (Sí / No)",
	KeyLicenseCategory: "16) Indica el tipo de licencia (A1, A2B, BII, etc.).",
	KeyPositionOther:   "18) Especifica el puesto al que deseas postular.",
	KeyMiningBranch:    "Elige Sucursal:\n1. Arequipa\n2. Trujillo\n3. Huanuco\n4. Cusco\n5. Otros",
	KeyAvailability:    "19) ¿Cuentas con disponibilidad inmediata? (Sí / No)",
	KeyChannel: "20) ¿Por qué medio te enteraste de nuestras ofertas? (Responde con el número)\n" +
		"1. Tik Tok\n2. Canal de Whatsapp\n3. Correo\n4. Volante\n5. QR\n6. Facebook\n7. Referidos\n8. Instagram\n9. Otros",
	KeyChannelOther: "Por favor especifica el medio por el cual te enteraste.",
}

// Question returns the prompt for key. The interview question depends on the
// proposed slot and is built by InterviewInvite instead.
func Question(key Key) string {
	if key == KeyPosition {
		return "17) Indica el puesto al que postulas:\n" + PositionsMenu()
	}
	return questionText[key]
}

// PositionsMenu renders the numbered job menu.
func PositionsMenu() string {
	var b strings.Builder
	for i, p := range positions {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", p.ID, p.Name)
	}
	return b.String()
}

// InterviewInvite asks the candidate to confirm the proposed interview day.
func InterviewInvite(weekday, shortDate string) string {
	return "🎉 ¡Felicidades! Cumples con los requisitos preliminares.\n\n" +
		fmt.Sprintf("Queremos invitarte a una evaluación presencial el día *%s %s a las 08:30 AM*.\n", weekday, shortDate) +
		"Será un *Full Day* donde realizaremos exámenes médicos, pruebas físicas y evaluaciones psicológicas.\n\n" +
		"¿Nos confirmas tu asistencia? (Sí / No)"
}
