package matching

import (
	"fmt"
	"strconv"
	"strings"
)

// levelMapping translates a profile education level into the offer level it
// qualifies for. Levels without an entry skip the education predicate.
var levelMapping = map[string]string{
	EducationHighSchool: LevelUndergraduate,
	EducationAssociate:  LevelUndergraduate,
	EducationBachelor:   LevelUndergraduate,
	EducationMaster:     LevelGraduate,
	EducationDoctorate:  LevelGraduate,
}

// Verdict is the eligibility outcome for one profile and offer.
// Reasons holds one entry per failed predicate and is empty iff Eligible.
type Verdict struct {
	OfferID  string   `json:"offerId"`
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// predicate returns a reason when the offer constraint is present, the
// profile attribute is present and the check fails.
type predicate func(p *Profile, o *Offer) (reason string, failed bool)

// predicates run in this order and never short-circuit.
var predicates = []predicate{
	gpaFloor,
	ageCeiling,
	citizenshipAllowed,
	educationLevelMatches,
	fieldOfStudyMatches,
	categoryMatches,
}

// Evaluate runs every eligibility predicate for the pair.
func Evaluate(p *Profile, o *Offer) (Verdict, error) {
	if err := validateProfile(p); err != nil {
		return Verdict{}, err
	}
	if err := validateOffer(o, 0); err != nil {
		return Verdict{}, err
	}
	return evaluate(p, o), nil
}

func evaluate(p *Profile, o *Offer) Verdict {
	reasons := make([]string, 0)
	for _, check := range predicates {
		if reason, failed := check(p, o); failed {
			reasons = append(reasons, reason)
		}
	}
	return Verdict{OfferID: o.ID, Eligible: len(reasons) == 0, Reasons: reasons}
}

func gpaFloor(p *Profile, o *Offer) (string, bool) {
	threshold := o.Eligibility.GPAThreshold
	if threshold == nil || p.GPA == nil {
		return "", false
	}
	if *p.GPA < *threshold {
		return fmt.Sprintf("GPA below requirement (%s)", formatNumber(*threshold)), true
	}
	return "", false
}

func ageCeiling(p *Profile, o *Offer) (string, bool) {
	ceiling := o.Eligibility.AgeCeiling
	if ceiling == nil || p.Age == nil {
		return "", false
	}
	if *p.Age > *ceiling {
		return fmt.Sprintf("Age above limit (%d)", *ceiling), true
	}
	return "", false
}

// citizenshipAllowed matches labels by case-insensitive containment in either
// direction, so "Indian" admits "Non-Resident Indian". This permissive match
// is relied upon by existing catalogs.
func citizenshipAllowed(p *Profile, o *Offer) (string, bool) {
	allowed := o.Eligibility.Citizenship
	if len(allowed) == 0 || p.Citizenship == nil {
		return "", false
	}
	for _, label := range allowed {
		if containsFold(label, *p.Citizenship) || containsFold(*p.Citizenship, label) {
			return "", false
		}
	}
	return fmt.Sprintf("Citizenship not eligible (%s)", strings.Join(allowed, ", ")), true
}

func educationLevelMatches(p *Profile, o *Offer) (string, bool) {
	if o.Level == "" || p.EducationLevel == nil {
		return "", false
	}
	mapped, ok := levelMapping[*p.EducationLevel]
	if !ok {
		return "", false
	}
	if mapped != o.Level {
		return fmt.Sprintf("Education level mismatch (%s required)", o.Level), true
	}
	return "", false
}

// fieldOfStudyMatches uses the same bidirectional containment as citizenship.
func fieldOfStudyMatches(p *Profile, o *Offer) (string, bool) {
	if o.Field == "" || o.Field == AllFields || p.FieldOfStudy == nil {
		return "", false
	}
	if containsFold(o.Field, *p.FieldOfStudy) || containsFold(*p.FieldOfStudy, o.Field) {
		return "", false
	}
	return fmt.Sprintf("Field of study mismatch (%s)", o.Field), true
}

func categoryMatches(p *Profile, o *Offer) (string, bool) {
	if o.Category == "" || o.Category == GeneralCategory || p.Category == nil {
		return "", false
	}
	if o.Category != *p.Category {
		return fmt.Sprintf("Category mismatch (%s)", o.Category), true
	}
	return "", false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// formatNumber renders the shortest exact form: 8, 8.5, 10000.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
