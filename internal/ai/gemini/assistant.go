package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/recruit-bot/internal/ai"
	"github.com/spigell/recruit-bot/internal/logger"
	"github.com/spigell/recruit-bot/internal/recruit"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

var (
	//go:embed prompts/system.md
	systemInstruction string
	//go:embed prompts/extract.md
	extractTemplate string
	//go:embed prompts/freeform.md
	freeformTemplate string
	//go:embed prompts/region.md
	regionTemplate string
)

const (
	defaultMaxLogLength = 200
	historyTurns        = 3
	providerName        = "gemini"
)

// hints narrow the answer space of questions with enumerated values.
var hints = map[recruit.Key]string{
	recruit.KeyGender: `ENUMS PERMITIDOS para genero: "M", "F", "O".
Mapea "hombre", "varon" -> "M". "mujer", "dama" -> "F".`,
	recruit.KeyDocumentType: `ENUMS PERMITIDOS para tipo_documento: "dni", "ce".
Mapea "carnet de extranjeria", "c.e.", "extranjero" -> "ce". "documento nacional", "dni electronico" -> "dni".`,
	recruit.KeyDocumentNumber: `REGLA CRÍTICA: un DNI tiene EXACTAMENTE 8 dígitos. Un Carné de Extranjería puede tener más.
Si no se especifica el tipo, asume DNI.`,
	recruit.KeyPhone: `REGLA CRÍTICA: el celular tiene EXACTAMENTE 9 dígitos. Con 8 o 10+ es inválido.`,
	recruit.KeyModality: `ENUMS PERMITIDOS para modalidad_trabajo: "tiempo_completo", "medio_tiempo", "intermitente".
Mapea "full time", "todo el dia" -> "tiempo_completo". "part time", "mitad" -> "medio_tiempo". "por dias", "eventual" -> "intermitente".`,
	recruit.KeyLicenseCategory: `Extrae la categoría de licencia en licencia_cat (ej. "A1", "A2B", "A3C", "BII").`,
	recruit.KeyChannel: `ENUMS PERMITIDOS para medio_captacion: "tiktok", "canal_whatsapp", "correo", "volante", "qr", "facebook", "referido", "instagram", "otros".
Mapea "vi un video" -> "tiktok". "un amigo", "conocido" -> "referido". "fb", "face" -> "facebook". "insta", "ig" -> "instagram".`,
	recruit.KeySecondary: `secundaria es boolean. Si menciona estudios superiores (universidad, instituto, maestría, bachiller, egresado), asume true.`,
	recruit.KeyWorkedBefore: `ha_trabajado_en_hermes es boolean. "hace tiempo", "ya trabajé", "en el 2010" -> true. "nunca", "primera vez" -> false.`,
	recruit.KeyResidence: `Clasifica si vive en Lima o Provincia.
Un distrito de Lima (Surco, Miraflores, SJL, Comas...) -> lugar_residencia "Lima", origen "lima".
Una ciudad de provincia (Trujillo, Arequipa...) -> lugar_residencia "Provincia", origen "provincia", ciudad_residencia con la ciudad.`,
	recruit.KeyPosition: `puesto_id es el número del puesto en el menú (1-18).`,
	recruit.KeyAge: `edad es un número entero.`,
}

// Assistant implements ai.Extractor and ai.Responder on top of Gemini.
type Assistant struct {
	generator contentGenerator
	company   string
	logger    *zap.Logger
	maxLogLen int
}

func NewAssistant(generator contentGenerator, company string, log *zap.Logger, maxLogLength int) *Assistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if company = strings.TrimSpace(company); company == "" {
		company = "la empresa"
	}

	return &Assistant{
		generator: generator,
		company:   company,
		logger:    logger.WithCommonFields(log, providerName, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// ExtractAndValidate asks Gemini to read one answer.
func (a *Assistant) ExtractAndValidate(ctx context.Context, req ai.ExtractRequest) (*ai.Extraction, error) {
	profileJSON, err := json.Marshal(req.Profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	prompt := render(extractTemplate, map[string]string{
		"HISTORY":  formatHistory(req.History),
		"PROFILE":  string(profileJSON),
		"KEY":      string(req.Key),
		"QUESTION": firstLine(req.Question),
		"ANSWER":   sanitizeAnswer(req.Text),
		"FIELDS":   strings.Join(req.Fields, ", "),
		"HINTS":    hints[req.Key],
	})

	raw, err := a.generate(ctx, "extract", prompt, zap.String("key", string(req.Key)))
	if err != nil {
		return nil, err
	}

	return parseExtraction(raw)
}

// Freeform answers a message after the questionnaire is over.
func (a *Assistant) Freeform(ctx context.Context, text, contextSummary string) (string, error) {
	prompt := render(freeformTemplate, map[string]string{
		"COMPANY": a.company,
		"CONTEXT": contextSummary,
		"MESSAGE": sanitizeAnswer(text),
	})

	raw, err := a.generate(ctx, "freeform", prompt)
	if err != nil {
		return "", err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return "", err
	}

	reply := coerceString(data["response"])
	if reply == "" {
		return "", fmt.Errorf("gemini response has no reply text")
	}
	return reply, nil
}

// SameRegion asks Gemini whether a declared city belongs to a mining branch.
func (a *Assistant) SameRegion(ctx context.Context, city, branch string) (bool, error) {
	prompt := render(regionTemplate, map[string]string{
		"CITY":   sanitizeAnswer(city),
		"BRANCH": sanitizeAnswer(branch),
	})

	raw, err := a.generate(ctx, "same_region", prompt, zap.String("city", city), zap.String("branch", branch))
	if err != nil {
		return false, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return false, err
	}
	return coerceBool(data["same_region"]), nil
}

func (a *Assistant) generate(ctx context.Context, operation, prompt string, fields ...zap.Field) (string, error) {
	fields = append(fields, zap.String("operation", operation))

	a.logger.Debug("gemini generate content request", append(fields,
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, a.maxLogLen)),
	)...)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	a.logger.Debug("gemini generate content response", append(fields,
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)...)

	return raw, nil
}

func parseExtraction(raw string) (*ai.Extraction, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	ext := &ai.Extraction{
		Valid:       coerceBool(data["is_valid"]),
		BotResponse: coerceString(data["bot_response"]),
	}
	if extracted, ok := data["extracted_data"].(map[string]any); ok {
		ext.Data = extracted
	}
	return ext, nil
}

func decodeObject(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}
	return data, nil
}

func render(template string, values map[string]string) string {
	out := template
	for k, v := range values {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(out)
}

func formatHistory(history []ai.Turn) string {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	var b strings.Builder
	for _, turn := range history {
		role := "Asistente"
		if turn.Role == ai.RoleUser {
			role = "Usuario"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, firstLine(turn.Text))
	}
	if b.Len() == 0 {
		return "(sin historial)"
	}
	return strings.TrimSpace(b.String())
}

// sanitizeAnswer keeps user text on one line and out of the template syntax.
func sanitizeAnswer(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "{{", "(")
	s = strings.ReplaceAll(s, "}}", ")")
	return strings.ReplaceAll(s, `"`, "'")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[:idx]
	}
	return s
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")

	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes" || lower == "si" || lower == "sí"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		val = strings.TrimSpace(val)
		if val == "null" {
			return ""
		}
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
