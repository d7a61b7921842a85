package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var rePercentNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// CheckTargetJSON validates raw against the target schema. On failure the
// document is sanitized leniently and validated again.
func CheckTargetJSON(t Target, raw []byte, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schema := t.Schema()
	err := ValidateJSONAgainstSchema(schema, raw)
	if err == nil {
		return raw, nil
	}
	cleaned, changed, sErr := SanitizeTargetJSON(t.Kind(), raw)
	if sErr != nil {
		return nil, fmt.Errorf("sanitize failed: %w", sErr)
	}
	if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
		return nil, fmt.Errorf("schema validation failed: %w", vErr)
	}
	logger.Warn("llm.extract.lenient_sanitize_applied", "target", t.Kind(), "changed", changed, "first_error", err)
	return cleaned, nil
}

// SanitizeTargetJSON coerces common model slips (percent strings, numeric
// account numbers, "N/A" for missing values) and drops unknown keys.
func SanitizeTargetJSON(kind TargetKind, raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, err
	}
	var changed []string
	switch kind {
	case TargetPartnershipDeed:
		changed = sanitizeDeed(m)
	case TargetBankStatement:
		changed = sanitizeBank(m)
	default:
		return nil, nil, fmt.Errorf("unknown target %q", kind)
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, err
	}
	return out, changed, nil
}

func sanitizeDeed(m map[string]any) []string {
	var changed []string
	dropUnknown(m, &changed, "dateOfExecution", "partners")

	m["dateOfExecution"] = nullableString(m["dateOfExecution"], "dateOfExecution", &changed)

	list, ok := m["partners"].([]any)
	if !ok {
		if m["partners"] != nil {
			changed = append(changed, "partners(type)")
		}
		m["partners"] = []any{}
		return changed
	}
	kept := make([]any, 0, len(list))
	for i, item := range list {
		p, ok := item.(map[string]any)
		if !ok {
			changed = append(changed, fmt.Sprintf("partners[%d](type)", i))
			continue
		}
		name, _ := p["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			changed = append(changed, fmt.Sprintf("partners[%d](no name)", i))
			continue
		}
		kept = append(kept, map[string]any{
			"name":             name,
			"profitPercentage": percentValue(p["profitPercentage"], fmt.Sprintf("partners[%d].profit", i), &changed),
			"lossPercentage":   percentValue(p["lossPercentage"], fmt.Sprintf("partners[%d].loss", i), &changed),
		})
	}
	m["partners"] = kept
	return changed
}

func sanitizeBank(m map[string]any) []string {
	var changed []string
	keys := []string{"bankName", "accountHolder", "accountNumber", "periodFrom", "periodTo"}
	dropUnknown(m, &changed, keys...)
	for _, k := range keys {
		if _, ok := m[k]; ok {
			m[k] = nullableString(m[k], k, &changed)
		}
	}
	return changed
}

func dropUnknown(m map[string]any, changed *[]string, allowed ...string) {
	keep := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		keep[k] = struct{}{}
	}
	for k := range m {
		if _, ok := keep[k]; !ok {
			delete(m, k)
			*changed = append(*changed, k+"(unknown)")
		}
	}
}

func nullableString(v any, key string, changed *[]string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "", "null", "n/a", "na", "none", "not found", "not specified":
			if s != "" {
				*changed = append(*changed, key+"(placeholder)")
			}
			return nil
		}
		return s
	case float64:
		*changed = append(*changed, key+"(number)")
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		*changed = append(*changed, key+"(type)")
		return nil
	}
}

func percentValue(v any, key string, changed *[]string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		if t < 0 || t > 100 {
			*changed = append(*changed, key+"(range)")
			return nil
		}
		return t
	case string:
		match := rePercentNumber.FindString(t)
		if match == "" {
			*changed = append(*changed, key+"(text)")
			return nil
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil || f < 0 || f > 100 {
			*changed = append(*changed, key+"(text)")
			return nil
		}
		*changed = append(*changed, key+"(string)")
		return f
	default:
		*changed = append(*changed, key+"(type)")
		return nil
	}
}
