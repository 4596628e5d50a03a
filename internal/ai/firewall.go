package ai

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/recruit-bot/internal/recruit"
	"github.com/spigell/recruit-bot/internal/textnorm"
)

const (
	fieldPositionID = "puesto_id"
	fieldChannel    = "medio_captacion"
	fieldOrigin     = "origen"
)

// allow drops every field outside the question schema.
func allow(data map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if v == nil || !slices.Contains(fields, k) {
			continue
		}
		out[k] = v
	}
	return out
}

// firewall re-checks identity and enumerated fields the collaborator
// returned. Failing fields are removed from data and the first failure is
// explained. ok is false when anything was removed.
func firewall(data map[string]any, current recruit.Profile) (string, bool) {
	var msgs []string

	docType := current.DocumentType
	if raw, found := data[recruit.FieldDocumentType]; found {
		switch t := documentType(scalar(raw)); t {
		case "":
			delete(data, recruit.FieldDocumentType)
		default:
			data[recruit.FieldDocumentType] = t
			docType = t
		}
	}

	if raw, found := data[recruit.FieldDocumentNumber]; found {
		digits := textnorm.Digits(scalar(raw))
		if msg, ok := recruit.CheckDocumentNumber(digits, docType); !ok {
			delete(data, recruit.FieldDocumentNumber)
			msgs = append(msgs, msg)
		} else {
			data[recruit.FieldDocumentNumber] = digits
		}
	}

	if raw, found := data[recruit.FieldPhone]; found {
		digits := textnorm.Digits(scalar(raw))
		if msg, ok := recruit.CheckPhone(digits); !ok {
			delete(data, recruit.FieldPhone)
			msgs = append(msgs, msg)
		} else {
			data[recruit.FieldPhone] = digits
		}
	}

	if raw, found := data[fieldPositionID]; found {
		id, err := strconv.Atoi(scalar(raw))
		if _, known := recruit.PositionByID(id); err != nil || !known {
			delete(data, fieldPositionID)
			msgs = append(msgs, "Elige una opción del menú (número).")
		} else {
			data[fieldPositionID] = id
		}
	}

	if raw, found := data[fieldChannel]; found {
		v := textnorm.Normalize(scalar(raw))
		if !slices.Contains(recruit.ChannelValues(), v) {
			delete(data, fieldChannel)
			msgs = append(msgs, "Elige una opción válida (1-9).")
		} else {
			data[fieldChannel] = v
		}
	}

	if raw, found := data[fieldOrigin]; found {
		switch v := textnorm.Normalize(scalar(raw)); {
		case strings.Contains(v, string(recruit.RegionProvince)):
			data[fieldOrigin] = string(recruit.RegionProvince)
		case strings.Contains(v, string(recruit.RegionLima)):
			data[fieldOrigin] = string(recruit.RegionLima)
		default:
			delete(data, fieldOrigin)
		}
	}

	if len(msgs) > 0 {
		return msgs[0], false
	}
	return "", true
}

func documentType(v string) string {
	switch {
	case textnorm.HasWord(v, recruit.DocumentDNI):
		return recruit.DocumentDNI
	case textnorm.HasWord(v, recruit.DocumentCE), textnorm.ContainsAny(v, "extranjeria", "carne"):
		return recruit.DocumentCE
	}
	return ""
}

// scalar renders a decoded JSON scalar without exponent notation.
func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
