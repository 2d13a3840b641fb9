package matching

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Contribution weights.
const (
	categoryPoints       = 50
	academicLevelPoints  = 40
	genderPoints         = 30
	regionPoints         = 25
	lowIncomePoints      = 20
	moderateIncomePoints = 15
	preferencePoints     = 15
	gpaPoints            = 20
	urgentDeadlinePoints = 25
	nearDeadlinePoints   = 15
	highAwardPoints      = 10
	goodAwardPoints      = 5
)

const (
	lowIncomeCeiling      = 50000
	moderateIncomeCeiling = 100000
	lowIncomeMinAmount    = 10000
	moderateMinAmount     = 5000
	highAwardAmount       = 20000
	goodAwardAmount       = 10000
	urgentDeadlineDays    = 30
	nearDeadlineDays      = 90
)

// Recommendation is the relevance score of one offer for one profile.
type Recommendation struct {
	Offer   Offer    `json:"offer"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// contribution returns the awarded points and the reason; zero points means
// the contribution did not fire.
type contribution func(p *Profile, o *Offer, now time.Time) (int, string)

// contributions run in this order; it determines the order of reasons.
var contributions = []contribution{
	categoryContribution,
	academicLevelContribution,
	genderContribution,
	regionContribution,
	incomeContribution,
	preferenceContribution,
	gpaContribution,
	deadlineContribution,
	awardSizeContribution,
}

// Score computes the additive relevance score of the offer. now is used for
// deadline urgency only.
func Score(p *Profile, o *Offer, now time.Time) (Recommendation, error) {
	if err := validateProfile(p); err != nil {
		return Recommendation{}, err
	}
	if err := validateOffer(o, 0); err != nil {
		return Recommendation{}, err
	}
	return score(p, o, now), nil
}

func score(p *Profile, o *Offer, now time.Time) Recommendation {
	total := 0
	reasons := make([]string, 0)
	for _, contribute := range contributions {
		points, reason := contribute(p, o, now)
		if points <= 0 {
			continue
		}
		total += points
		reasons = append(reasons, reason)
	}
	return Recommendation{Offer: *o, Score: total, Reasons: reasons}
}

func categoryContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	if p.Category == nil || o.Category != *p.Category {
		return 0, ""
	}
	return categoryPoints, fmt.Sprintf("Matches your category (%s)", *p.Category)
}

// academicLevelContribution compares AcademicLevel to the offer level
// verbatim. The eligibility predicate maps EducationLevel instead; both are
// kept because they disagree for existing profiles.
func academicLevelContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	if p.AcademicLevel == nil || o.Level != *p.AcademicLevel {
		return 0, ""
	}
	return academicLevelPoints, fmt.Sprintf("Matches your academic level (%s)", *p.AcademicLevel)
}

func genderContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	required := o.Eligibility.Gender
	if p.Gender == nil || required == "" {
		return 0, ""
	}
	if required != *p.Gender && required != AnyGender {
		return 0, ""
	}
	return genderPoints, "Matches your gender criteria"
}

func regionContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	if p.Region == nil || o.Country != *p.Region {
		return 0, ""
	}
	return regionPoints, fmt.Sprintf("Available in your state (%s)", *p.Region)
}

func incomeContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	if p.Income == nil || o.Amount <= 0 {
		return 0, ""
	}
	income := *p.Income
	switch {
	case income < lowIncomeCeiling && o.Amount >= lowIncomeMinAmount:
		return lowIncomePoints, "High-value scholarship for low-income students"
	case income < moderateIncomeCeiling && o.Amount >= moderateMinAmount:
		return moderateIncomePoints, "Good value scholarship for moderate-income students"
	default:
		return 0, ""
	}
}

func preferenceContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	var matched []string
	for _, pref := range p.Preferences {
		if containsFold(o.Field, pref) || tagsContain(o.Tags, pref) {
			matched = append(matched, pref)
		}
	}
	if len(matched) == 0 {
		return 0, ""
	}
	return len(matched) * preferencePoints, "Matches your interests: " + strings.Join(matched, ", ")
}

func tagsContain(tags []string, pref string) bool {
	for _, tag := range tags {
		if containsFold(tag, pref) {
			return true
		}
	}
	return false
}

func gpaContribution(p *Profile, o *Offer, _ time.Time) (int, string) {
	threshold := o.Eligibility.GPAThreshold
	if p.GPA == nil || threshold == nil || *p.GPA < *threshold {
		return 0, ""
	}
	return gpaPoints, fmt.Sprintf("Meets GPA requirement (%s)", formatNumber(*threshold))
}

func deadlineContribution(_ *Profile, o *Offer, now time.Time) (int, string) {
	if o.Deadline.IsZero() {
		return 0, ""
	}
	days := DaysUntil(o.Deadline, now)
	switch {
	case days > 0 && days <= urgentDeadlineDays:
		return urgentDeadlinePoints, "Urgent deadline - apply soon!"
	case days > urgentDeadlineDays && days <= nearDeadlineDays:
		return nearDeadlinePoints, "Deadline approaching"
	default:
		return 0, ""
	}
}

func awardSizeContribution(_ *Profile, o *Offer, _ time.Time) (int, string) {
	switch {
	case o.Amount >= highAwardAmount:
		return highAwardPoints, "High-value scholarship"
	case o.Amount >= goodAwardAmount:
		return goodAwardPoints, "Good value scholarship"
	default:
		return 0, ""
	}
}

// DaysUntil counts started days between now and deadline, rounding partial
// days up. Past deadlines give zero or a negative number.
func DaysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
