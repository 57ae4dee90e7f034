package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ghda/fieldreports/constants"
	"github.com/ghda/fieldreports/internal/entity"
)

// DegenerateSummary is the executive summary recorded when the model response
// could not be parsed at all.
const DegenerateSummary = "Analysis failed: could not parse model response"

// Degenerate returns the fallback result used when every repair attempt on a
// model response fails. It carries the full shape so downstream consumers
// never branch on a missing field.
func Degenerate() *entity.AnalysisResult {
	res, err := Normalize(map[string]any{}, FullProfile())
	if err != nil {
		// Normalizing an empty map against the built-in profile cannot fail.
		panic(fmt.Sprintf("llm: degenerate normalize: %v", err))
	}
	res.ExecutiveSummary = DegenerateSummary
	res.OverallScore = 0
	return res
}

// Normalize coerces a repaired candidate document into a fully shaped
// AnalysisResult. Every profile field gets a value: absent or unusable fields
// take their declared defaults, numerics are clamped to declared bounds, and
// values outside a declared enum are preserved but recorded in
// low_confidence_fields. Normalizing an already normalized result is a no-op.
func Normalize(candidate any, profile *Profile) (*entity.AnalysisResult, error) {
	if profile == nil {
		profile = FullProfile()
	}
	root, _ := candidate.(map[string]any)
	if root == nil {
		root = map[string]any{}
	}

	w := &walker{}
	shaped := w.walkObject(root, profile.Fields, "")

	// Compact-profile output is merged over full defaults so the stored
	// result always has the complete shape.
	full := w2Defaults()
	mergeShaped(full, shaped)

	recomputeAttendance(full)
	sortRecommendations(full)

	sort.Strings(w.flags)
	full["low_confidence_fields"] = dedupe(w.flags)

	raw, err := json.Marshal(full)
	if err != nil {
		return nil, fmt.Errorf("encoding normalized result: %w", err)
	}
	var res entity.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decoding normalized result: %w", err)
	}
	return &res, nil
}

func w2Defaults() map[string]any {
	var w walker
	return w.walkObject(map[string]any{}, FullProfile().Fields, "")
}

// mergeShaped overlays walked fields onto the full-profile defaults. Both
// sides are walker output, so object shapes already agree.
func mergeShaped(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeShaped(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

type walker struct {
	flags []string
}

func (w *walker) walkObject(src map[string]any, fields []FieldSpec, path string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f.Name] = w.walkField(src[f.Name], f, joinPath(path, f.Name))
	}
	return out
}

func (w *walker) walkField(v any, f FieldSpec, path string) any {
	switch f.Kind {
	case KindObject:
		sub, _ := v.(map[string]any)
		if sub == nil {
			sub = map[string]any{}
		}
		return w.walkObject(sub, f.Fields, path)
	case KindObjectList:
		return w.walkObjectList(v, f, path)
	case KindStringList:
		return coerceStringList(v)
	case KindString:
		return w.walkString(v, f, path)
	case KindInt:
		return walkNumber(v, f, true)
	case KindFloat:
		return walkNumber(v, f, false)
	case KindBool:
		return coerceBool(v, f.Default)
	case KindDate:
		return coerceDate(v)
	default:
		return f.Default
	}
}

func (w *walker) walkObjectList(v any, f FieldSpec, path string) []any {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case map[string]any:
		// A single object where a list was asked for is a common model slip.
		items = []any{t}
	default:
		return []any{}
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		sub, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, w.walkObject(sub, f.Fields, fmt.Sprintf("%s[%d]", path, i)))
	}
	return out
}

func (w *walker) walkString(v any, f FieldSpec, path string) any {
	s, ok := coerceString(v)
	if !ok || strings.TrimSpace(s) == "" {
		return f.Default
	}
	s = strings.TrimSpace(s)
	if len(f.Enum) == 0 {
		return s
	}
	if path == "facility.type" {
		if canon, ok := constants.CanonicalFacilityType(s); ok {
			return string(canon)
		}
		w.flags = append(w.flags, path)
		return s
	}
	for _, e := range f.Enum {
		if strings.EqualFold(s, e) {
			return e
		}
	}
	w.flags = append(w.flags, path)
	return s
}

func walkNumber(v any, f FieldSpec, integer bool) any {
	n, ok := coerceNumber(v)
	if !ok {
		return f.Default
	}
	if f.Min != nil && n < *f.Min {
		n = *f.Min
	}
	if f.Max != nil && n > *f.Max {
		n = *f.Max
	}
	if integer {
		return int(math.Round(n))
	}
	return n
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func coerceBool(v any, def any) any {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		case "false", "no", "n", "0":
			return false
		}
	case float64:
		return t != 0
	}
	return def
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006", "January 2, 2006", "2 January 2006"}

// coerceDate accepts a handful of formats ground staff actually use and
// always emits YYYY-MM-DD, or null when nothing parses.
func coerceDate(v any) any {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return nil
}

func coerceStringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := coerceString(item); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(t) == "" {
			return []string{}
		}
		return []string{strings.TrimSpace(t)}
	default:
		return []string{}
	}
}

// recomputeAttendance derives attendance_rate from expected and attended,
// overriding whatever the model reported. The rate is null unless expected is
// a positive number and attended is present.
func recomputeAttendance(doc map[string]any) {
	ben, _ := doc["beneficiaries"].(map[string]any)
	if ben == nil {
		return
	}
	expected, okE := ben["expected"].(int)
	attended, okA := ben["attended"].(int)
	if !okE || !okA || expected <= 0 {
		ben["attendance_rate"] = nil
		return
	}
	ben["attendance_rate"] = float64(attended) / float64(expected)
}

// sortRecommendations orders recommendations by ascending priority. The sort
// is stable so equal priorities keep the model's original order.
func sortRecommendations(doc map[string]any) {
	recs, _ := doc["recommendations"].([]any)
	if len(recs) < 2 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recPriority(recs[i]) < recPriority(recs[j])
	})
}

func recPriority(v any) int {
	m, _ := v.(map[string]any)
	if m == nil {
		return math.MaxInt
	}
	if p, ok := m["priority"].(int); ok {
		return p
	}
	return math.MaxInt
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	var last string
	for _, s := range in {
		if s == last && len(out) > 0 {
			continue
		}
		out = append(out, s)
		last = s
	}
	return out
}
