package recruit

// Document types.
const (
	DocumentDNI = "dni"
	DocumentCE  = "ce"
)

// Profile is everything a candidate told the bot. Unset values are nil or
// empty; the json names are the ones persisted and exchanged with the AI.
type Profile struct {
	Consent            *bool  `json:"autorizacion_datos,omitempty"`
	FirstNames         string `json:"nombres,omitempty"`
	LastNames          string `json:"apellidos,omitempty"`
	FullName           string `json:"nombre_completo,omitempty"`
	Age                *int   `json:"edad,omitempty"`
	Gender             string `json:"genero,omitempty"`
	DocumentType       string `json:"tipo_documento,omitempty"`
	HasNationalID      *bool  `json:"dni,omitempty"`
	DocumentNumber     string `json:"numero_documento,omitempty"`
	Phone              string `json:"telefono_contacto,omitempty"`
	Email              string `json:"correo_electronico,omitempty"`
	Secondary          *bool  `json:"secundaria,omitempty"`
	WorkedBefore       *bool  `json:"ha_trabajado_en_hermes,omitempty"`
	Modality           string `json:"modalidad_trabajo,omitempty"`
	District           string `json:"distrito_residencia,omitempty"`
	Residence          string `json:"lugar_residencia,omitempty"`
	Origin             Region `json:"origen,omitempty"`
	City               string `json:"ciudad_residencia,omitempty"`
	License            *bool  `json:"licencia,omitempty"`
	LicenseCategory    string `json:"licencia_cat,omitempty"`
	PositionID         int    `json:"puesto_id,omitempty"`
	PositionName       string `json:"puesto_name,omitempty"`
	Destination        Region `json:"destino,omitempty"`
	PositionOther      string `json:"puesto_otros_detalle,omitempty"`
	MiningBranch       string `json:"sucursal_mineria,omitempty"`
	Available          *bool  `json:"disponibilidad,omitempty"`
	Channel            string `json:"medio_captacion,omitempty"`
	ChannelOther       string `json:"medio_captacion_otro,omitempty"`
	ProposedInterview  string `json:"propuesta_fecha,omitempty"`
	InterviewDate      string `json:"fecha_entrevista,omitempty"`
	InterviewConfirmed *bool  `json:"confirmacion_asistencia,omitempty"`
}

// IsZero reports whether no field is set.
func (p Profile) IsZero() bool {
	return p == Profile{}
}

// Merge copies every set field of u into p.
func (p *Profile) Merge(u Profile) {
	mergeBool(&p.Consent, u.Consent)
	mergeString(&p.FirstNames, u.FirstNames)
	mergeString(&p.LastNames, u.LastNames)
	mergeString(&p.FullName, u.FullName)
	if u.Age != nil {
		age := *u.Age
		p.Age = &age
	}
	mergeString(&p.Gender, u.Gender)
	mergeString(&p.DocumentType, u.DocumentType)
	mergeBool(&p.HasNationalID, u.HasNationalID)
	mergeString(&p.DocumentNumber, u.DocumentNumber)
	mergeString(&p.Phone, u.Phone)
	mergeString(&p.Email, u.Email)
	mergeBool(&p.Secondary, u.Secondary)
	mergeBool(&p.WorkedBefore, u.WorkedBefore)
	mergeString(&p.Modality, u.Modality)
	mergeString(&p.District, u.District)
	mergeString(&p.Residence, u.Residence)
	if u.Origin != "" {
		p.Origin = u.Origin
	}
	mergeString(&p.City, u.City)
	mergeBool(&p.License, u.License)
	mergeString(&p.LicenseCategory, u.LicenseCategory)
	if u.PositionID != 0 {
		p.PositionID = u.PositionID
	}
	mergeString(&p.PositionName, u.PositionName)
	if u.Destination != "" {
		p.Destination = u.Destination
	}
	mergeString(&p.PositionOther, u.PositionOther)
	mergeString(&p.MiningBranch, u.MiningBranch)
	mergeBool(&p.Available, u.Available)
	mergeString(&p.Channel, u.Channel)
	mergeString(&p.ChannelOther, u.ChannelOther)
	mergeString(&p.ProposedInterview, u.ProposedInterview)
	mergeString(&p.InterviewDate, u.InterviewDate)
	mergeBool(&p.InterviewConfirmed, u.InterviewConfirmed)
}

// IsTrue reports whether b is set and true.
func IsTrue(b *bool) bool {
	return b != nil && *b
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeBool(dst **bool, v *bool) {
	if v != nil {
		b := *v
		*dst = &b
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(n int) *int {
	return &n
}
