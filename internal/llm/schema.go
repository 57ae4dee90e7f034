package llm

import (
	"fmt"
	"strings"

	"github.com/ghda/fieldreports/constants"
)

// Kind is the declared value type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDate // string "YYYY-MM-DD", null when unparseable
	KindStringList
	KindObject
	KindObjectList
)

// FieldSpec declares one field of a schema profile: its type, default, and
// bounds. The normalizer walks these generically, so adding a field to the
// extraction schema is a data change here, not new conditional code.
type FieldSpec struct {
	Name    string
	Kind    Kind
	Default any         // substituted when the field is absent or unusable; nil means JSON null
	Enum    []string    // declared values; others are preserved but flagged low-confidence
	Min     *float64    // numeric clamp bounds, inclusive
	Max     *float64
	Hint    string      // shown to the model in the prompt skeleton
	Fields  []FieldSpec // children for KindObject / element fields for KindObjectList
}

// Profile is the declared shape the normalizer enforces: the full profile is
// the deeply nested extraction schema; the compact one is a flat subset that
// fits small-context local models.
type Profile struct {
	Name   string
	Fields []FieldSpec
}

const (
	ProfileFull    = "full"
	ProfileCompact = "compact"
)

// ProfileByName resolves a configured profile name, defaulting to full.
func ProfileByName(name string) *Profile {
	if strings.EqualFold(strings.TrimSpace(name), ProfileCompact) {
		return CompactProfile()
	}
	return FullProfile()
}

func fp(v float64) *float64 { return &v }

func scoreField(name, hint string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindInt, Default: 0, Min: fp(0), Max: fp(100), Hint: hint}
}

// FullProfile declares the complete extraction schema for a field report.
func FullProfile() *Profile {
	return &Profile{
		Name: ProfileFull,
		Fields: []FieldSpec{
			{Name: "facility", Kind: KindObject, Fields: []FieldSpec{
				{Name: "name", Kind: KindString, Default: "Unknown", Hint: "facility name"},
				{Name: "type", Kind: KindString, Default: "Unknown", Enum: constants.FacilityTypes(), Hint: strings.Join(constants.FacilityTypes(), "/")},
				{Name: "block", Kind: KindString, Default: "Unknown", Hint: "block name"},
				{Name: "district", Kind: KindString, Default: "Unknown", Hint: "district"},
				{Name: "state", Kind: KindString, Default: "Unknown", Hint: "state"},
			}},
			{Name: "clinic_date", Kind: KindDate, Hint: "YYYY-MM-DD or null"},
			{Name: "beneficiaries", Kind: KindObject, Fields: []FieldSpec{
				{Name: "expected", Kind: KindInt, Hint: "number or null"},
				{Name: "attended", Kind: KindInt, Hint: "number or null"},
				{Name: "attendance_rate", Kind: KindFloat, Min: fp(0), Hint: "attended/expected fraction or null"},
				{Name: "barriers", Kind: KindObjectList, Fields: []FieldSpec{
					{Name: "reason", Kind: KindString, Default: "", Hint: "detailed reason"},
					{Name: "count", Kind: KindInt, Default: 0, Min: fp(0), Hint: "number affected"},
					{Name: "severity", Kind: KindString, Default: "low", Enum: constants.Severities, Hint: strings.Join(constants.Severities, "/")},
					{Name: "root_cause", Kind: KindString, Default: "", Hint: "analysis"},
					{Name: "intervention", Kind: KindString, Default: "", Hint: "what to do"},
				}},
			}},
			{Name: "asha_performance", Kind: KindObject, Fields: []FieldSpec{
				{Name: "name", Kind: KindString, Default: "Unknown", Hint: "ASHA name"},
				{Name: "home_visits", Kind: KindInt, Hint: "number or null"},
				{Name: "issues", Kind: KindStringList, Hint: "list of problems"},
				{Name: "rating", Kind: KindString, Default: "unknown", Enum: constants.QualityRatings, Hint: strings.Join(constants.QualityRatings, "/")},
			}},
			{Name: "clinical_services", Kind: KindObject, Fields: []FieldSpec{
				{Name: "staff_present", Kind: KindStringList, Hint: "list of staff"},
				{Name: "examination_done", Kind: KindBool, Hint: "true/false or null"},
				{Name: "counselling_topics", Kind: KindStringList, Hint: "topics covered"},
				{Name: "counselling_gaps", Kind: KindStringList, Hint: "topics missed"},
				{Name: "quality", Kind: KindString, Default: "unknown", Enum: constants.QualityRatings, Hint: strings.Join(constants.QualityRatings, "/")},
			}},
			{Name: "laboratory", Kind: KindObject, Fields: []FieldSpec{
				{Name: "tests_done", Kind: KindStringList, Hint: "list of tests"},
				{Name: "sample_storage", Kind: KindString, Default: "unknown", Enum: constants.SampleStorageMethods, Hint: strings.Join(constants.SampleStorageMethods, "/")},
				{Name: "cold_chain_maintained", Kind: KindBool, Hint: "true/false or null"},
				{Name: "violations", Kind: KindStringList, Hint: "any violations"},
				{Name: "turnaround_days", Kind: KindFloat, Hint: "number or null"},
			}},
			{Name: "infrastructure_gaps", Kind: KindObjectList, Fields: []FieldSpec{
				{Name: "type", Kind: KindString, Default: "", Hint: "space/equipment/staff/supplies"},
				{Name: "description", Kind: KindString, Default: "", Hint: "detailed description"},
				{Name: "severity", Kind: KindString, Default: "low", Enum: constants.Severities, Hint: strings.Join(constants.Severities, "/")},
				{Name: "impact", Kind: KindString, Default: "", Hint: "how it affects service"},
			}},
			{Name: "compliance", Kind: KindObject, Fields: []FieldSpec{
				{Name: "due_list_prepared", Kind: KindBool, Hint: "true/false or null"},
				{Name: "registers_updated", Kind: KindBool, Hint: "true/false or null"},
				{Name: "protocol_deviations", Kind: KindStringList, Hint: "list any deviations"},
				scoreField("score", "0-100"),
			}},
			{Name: "risks", Kind: KindObjectList, Fields: []FieldSpec{
				{Name: "risk", Kind: KindString, Default: "", Hint: "description"},
				{Name: "level", Kind: KindString, Default: "low", Enum: constants.Severities, Hint: strings.Join(constants.Severities, "/")},
				{Name: "action_needed", Kind: KindString, Default: "", Hint: "what to do"},
				{Name: "timeline", Kind: KindString, Default: "", Hint: "when to act"},
			}},
			{Name: "recommendations", Kind: KindObjectList, Fields: []FieldSpec{
				{Name: "priority", Kind: KindInt, Default: 10, Min: fp(1), Max: fp(10), Hint: "1-10, 1 is highest"},
				{Name: "action", Kind: KindString, Default: "", Hint: "specific action"},
				{Name: "responsible", Kind: KindString, Default: "", Hint: "who should do it"},
				{Name: "impact", Kind: KindString, Default: "", Hint: "expected benefit"},
			}},
			{Name: "executive_summary", Kind: KindString, Default: "", Hint: "2-3 paragraph overall assessment"},
			{Name: "key_findings", Kind: KindStringList, Hint: "top 5 findings"},
			{Name: "critical_issues", Kind: KindStringList, Hint: "urgent issues"},
			scoreField("overall_score", "0-100"),
		},
	}
}

// CompactProfile declares the flat subset used with small-context models.
// Paths match the full profile so normalized output keeps one shape.
func CompactProfile() *Profile {
	return &Profile{
		Name: ProfileCompact,
		Fields: []FieldSpec{
			{Name: "facility", Kind: KindObject, Fields: []FieldSpec{
				{Name: "name", Kind: KindString, Default: "Unknown", Hint: "facility name"},
				{Name: "type", Kind: KindString, Default: "Unknown", Enum: constants.FacilityTypes(), Hint: strings.Join(constants.FacilityTypes(), "/")},
				{Name: "district", Kind: KindString, Default: "Unknown", Hint: "district"},
			}},
			{Name: "clinic_date", Kind: KindDate, Hint: "YYYY-MM-DD or null"},
			{Name: "beneficiaries", Kind: KindObject, Fields: []FieldSpec{
				{Name: "expected", Kind: KindInt, Hint: "number or null"},
				{Name: "attended", Kind: KindInt, Hint: "number or null"},
			}},
			{Name: "executive_summary", Kind: KindString, Default: "", Hint: "2-3 sentence summary"},
			{Name: "key_findings", Kind: KindStringList, Hint: "top findings"},
			scoreField("overall_score", "0-100"),
		},
	}
}

// Skeleton renders the profile as the pseudo-JSON structure embedded in the
// extraction prompt: field names, enum values, and null-ability spelled out
// for the model.
func (p *Profile) Skeleton() string {
	var b strings.Builder
	writeObjectSkeleton(&b, p.Fields, 0)
	return b.String()
}

func writeObjectSkeleton(b *strings.Builder, fields []FieldSpec, depth int) {
	indent := strings.Repeat("  ", depth)
	inner := strings.Repeat("  ", depth+1)
	b.WriteString("{\n")
	for i, f := range fields {
		fmt.Fprintf(b, "%s%q: ", inner, f.Name)
		writeFieldSkeleton(b, f, depth+1)
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(indent + "}")
}

func writeFieldSkeleton(b *strings.Builder, f FieldSpec, depth int) {
	switch f.Kind {
	case KindObject:
		writeObjectSkeleton(b, f.Fields, depth)
	case KindObjectList:
		b.WriteString("[\n" + strings.Repeat("  ", depth+1))
		writeObjectSkeleton(b, f.Fields, depth+1)
		b.WriteString("\n" + strings.Repeat("  ", depth) + "]")
	case KindStringList:
		fmt.Fprintf(b, "[%q]", f.Hint)
	case KindInt, KindFloat:
		b.WriteString(hintOr(f, "number or null"))
	case KindBool:
		b.WriteString(hintOr(f, "true/false or null"))
	default:
		fmt.Fprintf(b, "%q", f.Hint)
	}
}

func hintOr(f FieldSpec, fallback string) string {
	if f.Hint != "" {
		return f.Hint
	}
	return fallback
}

// JSONSchema renders the profile as a JSON-Schema map for post-normalization
// validation. Enum membership is deliberately not enforced here: declared
// enums are advisory and violations are flagged, not rejected.
func (p *Profile) JSONSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": schemaProps(p.Fields),
	}
}

func schemaProps(fields []FieldSpec) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
	}
	return props
}

func fieldSchema(f FieldSpec) map[string]any {
	switch f.Kind {
	case KindObject:
		return map[string]any{"type": "object", "properties": schemaProps(f.Fields)}
	case KindObjectList:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object", "properties": schemaProps(f.Fields)},
		}
	case KindStringList:
		return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	case KindInt:
		s := map[string]any{"type": []string{"integer", "null"}}
		if f.Min != nil {
			s["minimum"] = *f.Min
		}
		if f.Max != nil {
			s["maximum"] = *f.Max
		}
		return s
	case KindFloat:
		s := map[string]any{"type": []string{"number", "null"}}
		if f.Min != nil {
			s["minimum"] = *f.Min
		}
		if f.Max != nil {
			s["maximum"] = *f.Max
		}
		return s
	case KindBool:
		return map[string]any{"type": []string{"boolean", "null"}}
	case KindDate:
		return map[string]any{
			"type":    []string{"string", "null"},
			"pattern": `^\d{4}-\d{2}-\d{2}$`,
		}
	default:
		return map[string]any{"type": []string{"string", "null"}}
	}
}
