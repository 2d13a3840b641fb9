package matching

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Education levels known to the eligibility mapping.
const (
	EducationHighSchool = "High School"
	EducationAssociate  = "Associate's Degree"
	EducationBachelor   = "Bachelor's Degree"
	EducationMaster     = "Master's Degree"
	EducationDoctorate  = "Doctorate"
)

var (
	educationLevels = []string{EducationHighSchool, EducationAssociate, EducationBachelor, EducationMaster, EducationDoctorate}
	categories      = []string{"SC", "ST", "OBC", GeneralCategory}
)

// Profile is the normalized applicant snapshot used by the matcher.
// A nil pointer marks an absent attribute.
type Profile struct {
	ID             string   `json:"id"`
	GPA            *float64 `json:"gpa,omitempty"`
	Age            *int     `json:"age,omitempty"`
	Citizenship    *string  `json:"citizenship,omitempty"`
	EducationLevel *string  `json:"educationLevel,omitempty"`
	AcademicLevel  *string  `json:"academicLevel,omitempty"`
	FieldOfStudy   *string  `json:"fieldOfStudy,omitempty"`
	Category       *string  `json:"category,omitempty"`
	Gender         *string  `json:"gender,omitempty"`
	Region         *string  `json:"region,omitempty"`
	Income         *float64 `json:"income,omitempty"`
	Preferences    []string `json:"preferences,omitempty"`
}

// RawProfile is an applicant record as received from a collaborator. Values
// are loosely typed; Normalize turns them into a Profile.
//
// Education, Interests and State are the field names used by older account
// records and are read when the newer name is absent.
type RawProfile struct {
	ID             any `mapstructure:"id"`
	GPA            any `mapstructure:"gpa"`
	Age            any `mapstructure:"age"`
	Citizenship    any `mapstructure:"citizenship"`
	EducationLevel any `mapstructure:"educationLevel"`
	Education      any `mapstructure:"education"`
	AcademicLevel  any `mapstructure:"academicLevel"`
	FieldOfStudy   any `mapstructure:"fieldOfStudy"`
	Interests      any `mapstructure:"interests"`
	Category       any `mapstructure:"category"`
	Gender         any `mapstructure:"gender"`
	Region         any `mapstructure:"region"`
	State          any `mapstructure:"state"`
	Income         any `mapstructure:"income"`
	Preferences    any `mapstructure:"preferences"`
}

// NormalizeMap decodes a loosely typed record (JSON, YAML, database row) and
// normalizes it.
func NormalizeMap(input map[string]any) (*Profile, error) {
	var raw RawProfile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return Normalize(raw)
}

// Normalize validates the profile identity and converts every optional
// attribute into a typed value or nil. Malformed optional values are treated
// as absent, never as zero.
func Normalize(raw RawProfile) (*Profile, error) {
	id := optionalString(raw.ID)
	if id == nil {
		return nil, &ValidationError{Field: "profile.id", Message: "profile id is required"}
	}

	return &Profile{
		ID:             *id,
		GPA:            optionalFloat(raw.GPA),
		Age:            optionalInt(raw.Age),
		Citizenship:    optionalString(raw.Citizenship),
		EducationLevel: canonical(firstPresent(raw.EducationLevel, raw.Education), educationLevels),
		AcademicLevel:  optionalString(raw.AcademicLevel),
		FieldOfStudy:   optionalString(firstPresent(raw.FieldOfStudy, raw.Interests)),
		Category:       canonical(raw.Category, categories),
		Gender:         optionalString(raw.Gender),
		Region:         optionalString(firstPresent(raw.Region, raw.State)),
		Income:         optionalFloat(raw.Income),
		Preferences:    normalizePreferences(raw.Preferences),
	}, nil
}

func firstPresent(values ...any) any {
	for _, v := range values {
		if optionalString(v) != nil {
			return v
		}
	}
	return nil
}

// CanonicalCategory returns the canonical spelling of a known category and
// the trimmed value otherwise. Offers and profiles must both go through it so
// equal categories stay equal.
func CanonicalCategory(s string) string {
	if c := canonical(s, categories); c != nil {
		return *c
	}
	return ""
}

// canonical fixes the casing of known enumeration values and keeps unknown
// ones verbatim.
func canonical(v any, known []string) *string {
	s := optionalString(v)
	if s == nil {
		return nil
	}
	for _, k := range known {
		if strings.EqualFold(k, *s) {
			value := k
			return &value
		}
	}
	return s
}

func optionalString(v any) *string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case fmt.Stringer:
		s = val.String()
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return nil
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func optionalFloat(v any) *float64 {
	f, ok := coerceFloat(v)
	if !ok || f < 0 {
		return nil
	}
	return &f
}

// optionalInt accepts whole non-negative numbers only.
func optionalInt(v any) *int {
	f, ok := coerceFloat(v)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	i := int(f)
	return &i
}

// normalizePreferences accepts a list or a comma separated string. Blank
// entries are dropped and duplicates are removed case-insensitively, keeping
// the first spelling.
func normalizePreferences(v any) []string {
	var items []any
	switch val := v.(type) {
	case []string:
		for _, s := range val {
			items = append(items, s)
		}
	case []any:
		items = val
	case string:
		for _, s := range strings.Split(val, ",") {
			items = append(items, s)
		}
	default:
		return nil
	}

	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		s := optionalString(item)
		if s == nil {
			continue
		}
		key := strings.ToLower(*s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, *s)
	}
	return out
}
