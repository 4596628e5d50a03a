package recruit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/recruit-bot/internal/textnorm"
)

const (
	MinAge          = 18
	MaxAge          = 50
	nationalIDLen   = 8
	phoneDigitCount = 9
)

var (
	emailPattern   = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	licensePattern = regexp.MustCompile(`\b(a[123](?:a|b|c)?|bii)\b`)
	channelIndex   = regexp.MustCompile(`\b([1-9])\b`)
	branchIndex    = regexp.MustCompile(`\b([1-5])\b`)
)

// Result is the outcome of reading one answer. An invalid result never
// carries an update.
type Result struct {
	Valid         bool
	Update        Profile
	Clarification string
}

func accept(u Profile) Result {
	return Result{Valid: true, Update: u}
}

func reject(msg string) Result {
	return Result{Clarification: msg}
}

type extractFunc func(text string, current Profile) Result

// Extractors maps every question to its deterministic reader.
type Extractors struct {
	answers Answers
	table   map[Key]extractFunc
}

// NewExtractors builds the extractor table using the given yes/no vocabulary.
func NewExtractors(answers Answers) *Extractors {
	x := &Extractors{answers: answers}
	x.table = map[Key]extractFunc{
		KeyConsent:         x.consent,
		KeyFirstNames:      firstNames,
		KeyLastNames:       lastNames,
		KeyAge:             age,
		KeyGender:          gender,
		KeyDocumentType:    documentType,
		KeyDocumentNumber:  documentNumber,
		KeyPhone:           phone,
		KeyEmail:           email,
		KeySecondary:       secondary,
		KeyWorkedBefore:    x.yesNo(func(p *Profile, v bool) { p.WorkedBefore = boolPtr(v) }, "¿Has trabajado en Hermes? (Sí / No)"),
		KeyModality:        modality,
		KeyDistrict:        freeText(func(p *Profile, v string) { p.District = v }, "Por favor indícame tu distrito."),
		KeyResidence:       residence,
		KeyCity:            freeText(func(p *Profile, v string) { p.City = v }, "Por favor indícame tu provincia."),
		KeyLicense:         x.yesNo(func(p *Profile, v bool) { p.License = boolPtr(v) }, "¿Tienes licencia? (Sí / No)"),
		KeyLicenseCategory: licenseCategory,
		KeyPosition:        position,
		KeyPositionOther:   freeText(func(p *Profile, v string) { p.PositionOther = v }, "Por favor especifica el puesto."),
		KeyMiningBranch:    miningBranch,
		KeyAvailability:    x.yesNo(func(p *Profile, v bool) { p.Available = boolPtr(v) }, "¿Disponibilidad inmediata? (Sí / No)"),
		KeyChannel:         channel,
		KeyChannelOther:    freeText(func(p *Profile, v string) { p.ChannelOther = v }, "Por favor especifica el medio."),
		KeyInterview:       x.interview,
	}
	return x
}

// Extract reads text as the answer to key.
func (x *Extractors) Extract(key Key, text string, current Profile) Result {
	fn, ok := x.table[key]
	if !ok {
		return reject("No entendí tu respuesta.")
	}
	return fn(strings.TrimSpace(text), current)
}

func (x *Extractors) consent(text string, _ Profile) Result {
	yes, ok := x.answers.Match(text)
	if !ok {
		return reject("Por favor responde *Sí* o *Acepto* para continuar, o *No* para salir.")
	}
	if !yes {
		return reject("Entendido. Sin tu consentimiento no podemos continuar con el proceso. Gracias por tu interés. 🙏")
	}
	return accept(Profile{Consent: boolPtr(true)})
}

func (x *Extractors) yesNo(set func(*Profile, bool), clarification string) extractFunc {
	return func(text string, _ Profile) Result {
		v, ok := x.answers.Match(text)
		if !ok {
			return reject(clarification)
		}
		var u Profile
		set(&u, v)
		return accept(u)
	}
}

func (x *Extractors) interview(text string, current Profile) Result {
	v, ok := x.answers.Match(text)
	if !ok {
		return reject("Por favor confirma si puedes asistir (Sí / No).")
	}
	return accept(Profile{
		InterviewConfirmed: boolPtr(v),
		InterviewDate:      current.ProposedInterview,
	})
}

func freeText(set func(*Profile, string), clarification string) extractFunc {
	return func(text string, _ Profile) Result {
		if text == "" {
			return reject(clarification)
		}
		var u Profile
		set(&u, text)
		return accept(u)
	}
}

func firstNames(text string, _ Profile) Result {
	if text == "" {
		return reject("Por favor ingresa tus nombres.")
	}
	return accept(Profile{FirstNames: text})
}

func lastNames(text string, current Profile) Result {
	if text == "" {
		return reject("Por favor ingresa tus apellidos.")
	}
	return accept(Profile{
		LastNames: text,
		FullName:  strings.TrimSpace(current.FirstNames + " " + text),
	})
}

func age(text string, _ Profile) Result {
	n, ok := textnorm.SmallInt(text)
	if !ok {
		return reject("Ingresa una edad válida (número).")
	}
	if n < MinAge || n > MaxAge {
		return reject("Por favor, verifica tu respuesta e ingresa tu edad correcta en números.")
	}
	return accept(Profile{Age: intPtr(n)})
}

func gender(text string, _ Profile) Result {
	tn := textnorm.Normalize(text)
	switch {
	case tn == "m" || textnorm.ContainsAny(tn, "masculino", "hombre"):
		return accept(Profile{Gender: "M"})
	case tn == "f" || textnorm.ContainsAny(tn, "femenino", "mujer"):
		return accept(Profile{Gender: "F"})
	case textnorm.ContainsAny(tn, "otro", "prefiero"):
		return accept(Profile{Gender: "O"})
	}
	return reject("Elige: Masculino, Femenino u Otros.")
}

func documentType(text string, _ Profile) Result {
	if digits := textnorm.Digits(text); len(digits) == nationalIDLen {
		return accept(Profile{
			DocumentType:   DocumentDNI,
			HasNationalID:  boolPtr(true),
			DocumentNumber: digits,
		})
	}

	switch {
	case textnorm.HasWord(text, "dni"):
		return accept(Profile{DocumentType: DocumentDNI, HasNationalID: boolPtr(true)})
	case textnorm.ContainsAny(text, "extranjeria", "carne") || textnorm.HasAnyWord(text, "ce", "c.e"):
		return accept(Profile{DocumentType: DocumentCE, HasNationalID: boolPtr(false)})
	}
	return reject("Responde DNI o Carné de Extranjería.")
}

func documentNumber(text string, current Profile) Result {
	digits := textnorm.Digits(text)
	if msg, ok := CheckDocumentNumber(digits, current.DocumentType); !ok {
		return reject(msg)
	}

	u := Profile{DocumentNumber: digits}
	if current.DocumentType == "" {
		u.DocumentType = DocumentDNI
		u.HasNationalID = boolPtr(true)
	}
	return accept(u)
}

// CheckDocumentNumber validates the digit count of a document number for
// the given document type and explains any failure.
func CheckDocumentNumber(digits, docType string) (string, bool) {
	n := len(digits)
	if docType == DocumentCE {
		if n >= nationalIDLen {
			return "", true
		}
		return fmt.Sprintf("El Carné de Extranjería debe tener al menos %d dígitos (detecté %d).", nationalIDLen, n), false
	}

	switch {
	case n == nationalIDLen:
		return "", true
	case n > nationalIDLen:
		return fmt.Sprintf("Parece que escribiste %d números. El DNI debe tener exactamente %d.", n, nationalIDLen), false
	case n > 0:
		return fmt.Sprintf("Solo detecté %d números. El DNI debe tener %d.", n, nationalIDLen), false
	}
	return "Por favor escribe solo el número de tu DNI.", false
}

func phone(text string, _ Profile) Result {
	digits := textnorm.Digits(text)
	if msg, ok := CheckPhone(digits); !ok {
		return reject(msg)
	}
	return accept(Profile{Phone: digits})
}

// CheckPhone validates the digit count of a mobile number.
func CheckPhone(digits string) (string, bool) {
	if n := len(digits); n != phoneDigitCount {
		return fmt.Sprintf("Detecté %d dígitos. El celular debe tener exactamente %d.", n, phoneDigitCount), false
	}
	return "", true
}

func email(text string, _ Profile) Result {
	if !emailPattern.MatchString(text) {
		return reject("El correo electrónico no es válido (ej. usuario@dominio.com).")
	}
	return accept(Profile{Email: text})
}

func secondary(text string, _ Profile) Result {
	switch {
	case textnorm.ContainsAny(text, higherEducation...):
		return accept(Profile{Secondary: boolPtr(true)})
	case textnorm.ContainsAny(text, "incompleta", "trunca") || textnorm.HasWord(text, "no"):
		return accept(Profile{Secondary: boolPtr(false)})
	case textnorm.ContainsAny(text, "completa", "culminad") || textnorm.HasWord(text, "si"):
		return accept(Profile{Secondary: boolPtr(true)})
	}
	return reject("¿Secundaria Completa? (Sí / No)")
}

func modality(text string, _ Profile) Result {
	for i, m := range modalities {
		if strings.Contains(text, strconv.Itoa(i+1)) {
			return accept(Profile{Modality: m.value})
		}
	}
	for _, m := range modalities {
		if textnorm.ContainsAny(text, m.keywords...) {
			return accept(Profile{Modality: m.value})
		}
	}
	return reject("Elige una opción válida (1, 2 o 3).")
}

func residence(text string, _ Profile) Result {
	lima := Profile{Residence: "Lima", Origin: RegionLima, City: "Lima"}

	switch {
	case textnorm.HasWord(text, "lima"):
		return accept(lima)
	case textnorm.HasAnyWord(text, provinceMarkers...):
		return accept(Profile{Residence: "Provincia", Origin: RegionProvince})
	case textnorm.HasAnyWord(text, limaDistricts...):
		return accept(lima)
	}
	return reject("¿Lima o Provincia?")
}

func licenseCategory(text string, _ Profile) Result {
	m := licensePattern.FindStringSubmatch(textnorm.Normalize(text))
	if m == nil {
		return reject("Indica la categoría (A1, A2B, etc.) o escribe 'No sé'.")
	}
	return accept(Profile{LicenseCategory: strings.ToUpper(m[1])})
}

func position(text string, _ Profile) Result {
	if n, ok := textnorm.SmallInt(text); ok {
		if p, found := PositionByID(n); found {
			return accept(positionUpdate(p))
		}
	}

	if p, ok := positionFromText(text); ok {
		return accept(positionUpdate(p))
	}
	return reject("Elige una opción del menú (número).")
}

func positionFromText(text string) (Position, bool) {
	tn := textnorm.Normalize(text)
	if strings.Contains(tn, "otro") {
		return PositionByID(PositionOther)
	}
	if strings.Contains(tn, "seguridad") && strings.Contains(tn, "provincia") {
		return PositionByID(4)
	}
	for _, kw := range positionKeywords {
		if strings.Contains(tn, kw.keyword) {
			return PositionByID(kw.id)
		}
	}
	return Position{}, false
}

func positionUpdate(p Position) Profile {
	return Profile{PositionID: p.ID, PositionName: p.Name, Destination: p.Region}
}

func channel(text string, _ Profile) Result {
	if m := channelIndex.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return accept(Profile{Channel: channels[n-1].value})
	}
	for _, c := range channels {
		if textnorm.ContainsAny(text, c.keywords...) {
			return accept(Profile{Channel: c.value})
		}
	}
	return reject("Elige una opción válida (1-9).")
}

func miningBranch(text string, _ Profile) Result {
	if m := branchIndex.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return accept(Profile{MiningBranch: miningBranches[n-1]})
	}
	for _, b := range miningBranches {
		needle := b
		if b == BranchOther {
			needle = "otro"
		}
		if textnorm.ContainsAny(text, needle) {
			return accept(Profile{MiningBranch: b})
		}
	}
	return reject("Elige una opción válida (1-5).")
}

// Derive fills the fields that follow from others in u: the position name
// and region, the full name and the license flag.
func Derive(u Profile, current Profile) Profile {
	if u.PositionID != 0 {
		if p, ok := PositionByID(u.PositionID); ok {
			u.PositionName = p.Name
			u.Destination = p.Region
		}
	}
	if u.LastNames != "" && u.FullName == "" {
		u.FullName = strings.TrimSpace(current.FirstNames + " " + u.LastNames)
	}
	if u.LicenseCategory != "" {
		u.License = boolPtr(true)
	}
	return u
}
