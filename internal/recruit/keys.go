package recruit

// Key identifies a question of the flow.
type Key string

const (
	KeyConsent         Key = "autorizacion_datos"
	KeyFirstNames      Key = "nombre"
	KeyLastNames       Key = "apellidos"
	KeyAge             Key = "edad"
	KeyGender          Key = "genero"
	KeyDocumentType    Key = "tipo_documento"
	KeyDocumentNumber  Key = "numero_documento"
	KeyPhone           Key = "telefono"
	KeyEmail           Key = "correo"
	KeySecondary       Key = "secundaria"
	KeyWorkedBefore    Key = "trabajo_hermes"
	KeyModality        Key = "modalidad"
	KeyDistrict        Key = "distrito"
	KeyResidence       Key = "lugar_residencia"
	KeyCity            Key = "ciudad"
	KeyLicense         Key = "licencia"
	KeyLicenseCategory Key = "licencia_tipo"
	KeyPosition        Key = "puesto"
	KeyPositionOther   Key = "puesto_otros"
	KeyMiningBranch    Key = "puesto_mineria_sucursal"
	KeyAvailability    Key = "disponibilidad"
	KeyChannel         Key = "medio_captacion"
	KeyChannelOther    Key = "medio_captacion_otro"
	KeyInterview       Key = "confirmacion_entrevista"
)

// Profile field names that get special treatment outside of their extractor.
const (
	FieldDocumentType    = "tipo_documento"
	FieldDocumentNumber  = "numero_documento"
	FieldPhone           = "telefono_contacto"
	FieldLicense         = "licencia"
	FieldLicenseCategory = "licencia_cat"
)

// schema lists the profile fields a question may write. Anything else coming
// back from the AI for that question is dropped.
var schema = map[Key][]string{
	KeyConsent:         {"autorizacion_datos"},
	KeyFirstNames:      {"nombres"},
	KeyLastNames:       {"apellidos", "nombre_completo"},
	KeyAge:             {"edad"},
	KeyGender:          {"genero"},
	KeyDocumentType:    {FieldDocumentType, "dni", FieldDocumentNumber},
	KeyDocumentNumber:  {FieldDocumentNumber, FieldDocumentType, "dni"},
	KeyPhone:           {FieldPhone},
	KeyEmail:           {"correo_electronico"},
	KeySecondary:       {"secundaria"},
	KeyWorkedBefore:    {"ha_trabajado_en_hermes"},
	KeyModality:        {"modalidad_trabajo"},
	KeyDistrict:        {"distrito_residencia"},
	KeyResidence:       {"lugar_residencia", "origen", "ciudad_residencia"},
	KeyCity:            {"ciudad_residencia"},
	KeyLicense:         {FieldLicense, FieldLicenseCategory},
	KeyLicenseCategory: {FieldLicenseCategory, FieldLicense},
	KeyPosition:        {"puesto_id", "puesto_name"},
	KeyPositionOther:   {"puesto_otros_detalle"},
	KeyMiningBranch:    {"sucursal_mineria"},
	KeyAvailability:    {"disponibilidad"},
	KeyChannel:         {"medio_captacion"},
	KeyChannelOther:    {"medio_captacion_otro"},
	KeyInterview:       {"confirmacion_asistencia"},
}

// AllowedFields returns the profile fields the question may write.
func AllowedFields(key Key) []string {
	fields := schema[key]
	out := make([]string, len(fields))
	copy(out, fields)
	return out
}
