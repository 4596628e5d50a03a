package recruit

// Region is the location requirement of a position, or the declared origin
// of a candidate.
type Region string

const (
	RegionLima     Region = "lima"
	RegionProvince Region = "provincia"
	RegionEither   Region = "ambos"
)

// Position ids with special handling in the flow and the aptitude rules.
const (
	PositionDriver          = 8
	PositionMotorcyclist    = 9
	PositionMiningGuard     = 12
	PositionMiningSupervise = 13
	PositionOther           = 18
)

// Position is an entry of the job menu.
type Position struct {
	ID     int
	Name   string
	Region Region
}

var positions = []Position{
	{ID: 1, Name: "Agentes de Seguridad Chorrillos", Region: RegionLima},
	{ID: 2, Name: "Agentes de Traslado de Valores Chorrillos", Region: RegionLima},
	{ID: 3, Name: "Agentes de Seguridad para Bancos", Region: RegionEither},
	{ID: 4, Name: "Agentes de Seguridad Provincia", Region: RegionProvince},
	{ID: 5, Name: "Operarios de Carga y Descarga", Region: RegionEither},
	{ID: 6, Name: "Cajeros (Atención al Cliente)", Region: RegionEither},
	{ID: 7, Name: "Coordinadores / Encargados de Caja", Region: RegionLima},
	{ID: 8, Name: "Conductores / Choferes (A1 - A2B)", Region: RegionLima},
	{ID: 9, Name: "Motorizados BII", Region: RegionLima},
	{ID: 10, Name: "Operarios de Limpieza", Region: RegionLima},
	{ID: 11, Name: "Despachadores", Region: RegionLima},
	{ID: 12, Name: "Agentes de Seguridad - Minería", Region: RegionProvince},
	{ID: 13, Name: "Supervisores Operativos - Minería", Region: RegionProvince},
	{ID: 14, Name: "Técnico Electrónico", Region: RegionLima},
	{ID: 15, Name: "Mecánico Automotriz", Region: RegionLima},
	{ID: 16, Name: "Técnico Electricista", Region: RegionLima},
	{ID: 17, Name: "Digitadores", Region: RegionLima},
	{ID: 18, Name: "Otros", Region: RegionEither},
}

// positionKeywords is evaluated in order; the first substring hit wins.
var positionKeywords = []struct {
	keyword string
	id      int
}{
	{"conductor", 8},
	{"chofer", 8},
	{"motorizado", 9},
	{"bii", 9},
	{"mineria", 12},
	{"supervisor", 13},
	{"seguridad", 3},
	{"cajero", 6},
	{"limpieza", 10},
	{"operario", 5},
	{"descarga", 5},
	{"carga", 5},
	{"digitador", 17},
	{"coordinador", 7},
	{"encargado", 7},
	{"provincia", 4},
}

// PositionByID looks a position up by its menu number.
func PositionByID(id int) (Position, bool) {
	for _, p := range positions {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}

// RegionFor returns the location requirement of a position. Unknown ids are
// treated as available in either region.
func RegionFor(id int) Region {
	if p, ok := PositionByID(id); ok {
		return p.Region
	}
	return RegionEither
}

// IsMining reports whether the position requires a branch match.
func IsMining(id int) bool {
	return id == PositionMiningGuard || id == PositionMiningSupervise
}

// RequiresLicense reports whether the position needs a driving license.
func RequiresLicense(id int) bool {
	return id == PositionDriver || id == PositionMotorcyclist
}

type option struct {
	value    string
	keywords []string
}

// channels is indexed by menu number minus one.
var channels = []option{
	{value: "tiktok", keywords: []string{"tiktok", "tik tok"}},
	{value: "canal_whatsapp", keywords: []string{"whatsapp"}},
	{value: "correo", keywords: []string{"correo", "email"}},
	{value: "volante", keywords: []string{"volante"}},
	{value: "qr", keywords: []string{"qr"}},
	{value: "facebook", keywords: []string{"facebook"}},
	{value: "referido", keywords: []string{"referido"}},
	{value: "instagram", keywords: []string{"instagram"}},
	{value: ChannelOther, keywords: []string{"otro"}},
}

// ChannelOther is the outreach channel that triggers the free text follow-up.
const ChannelOther = "otros"

// ChannelValues lists the accepted outreach channel codes.
func ChannelValues() []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, c.value)
	}
	return out
}

var modalities = []option{
	{value: "tiempo_completo", keywords: []string{"tiempo completo", "full"}},
	{value: "medio_tiempo", keywords: []string{"medio", "part"}},
	{value: "intermitente", keywords: []string{"intermitente", "dias"}},
}

// BranchOther is the mining branch that is never auto-rejected.
const BranchOther = "Otros"

var miningBranches = []string{"Arequipa", "Trujillo", "Huanuco", "Cusco", BranchOther}

// branchSynonyms maps a fragment of a declared city to the branch it belongs to.
var branchSynonyms = map[string]string{
	"libertad": "trujillo",
}

var provinceMarkers = []string{
	"provincia", "trujillo", "arequipa", "cusco", "piura", "chiclayo", "tacna", "ica",
	"pucallpa", "tarapoto", "huancayo", "cajamarca", "puno", "madre de dios", "ayacucho",
	"huanuco", "loreto", "tumbes", "ancash", "apurimac", "moquegua", "ucayali", "pasco", "junin",
}

var limaDistricts = []string{
	"surco", "miraflores", "san isidro", "borja", "molina", "chorrillos", "barranco", "lince",
	"jesus maria", "magdalena", "pueblo libre", "san miguel", "callao", "olivos", "comas", "sjl", "sjm",
	"villa", "ate", "santa anita", "rimac", "brena", "victoria", "agustino", "independencia",
	"puente piedra", "carabayllo", "lurigancho", "chaclacayo", "cieneguilla", "lurin", "pachacamac",
	"pucusana", "punta hermosa", "punta negra", "san bartolo", "santa maria", "ancon", "santa rosa",
}

var higherEducation = []string{
	"universidad", "universitario", "tecnico", "instituto", "maestria", "doctorado",
	"bachiller", "titulado", "egresado", "superior",
}
