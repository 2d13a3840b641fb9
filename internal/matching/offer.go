// Package matching decides which scholarship offers an applicant qualifies
// for and ranks offers by relevance. Every function is a pure computation over
// its arguments.
package matching

import "time"

// Catalog sentinels meaning "no restriction" for the attribute.
const (
	AllFields       = "All Fields"
	GeneralCategory = "General"
	AnyGender       = "Any"
)

// Offer levels produced by the education level mapping.
const (
	LevelUndergraduate = "Undergraduate"
	LevelGraduate      = "Graduate"
)

// Offer is a scholarship catalog entry. Only active offers are expected to
// reach the matching functions.
type Offer struct {
	ID             string      `json:"id" mapstructure:"id"`
	Title          string      `json:"title" mapstructure:"title"`
	Organization   string      `json:"organization" mapstructure:"organization"`
	Amount         float64     `json:"amount" mapstructure:"amount"`
	Currency       string      `json:"currency,omitempty" mapstructure:"currency"`
	Deadline       time.Time   `json:"deadline" mapstructure:"deadline"`
	Field          string      `json:"field,omitempty" mapstructure:"field"`
	Level          string      `json:"level,omitempty" mapstructure:"level"`
	Country        string      `json:"country,omitempty" mapstructure:"country"`
	Category       string      `json:"category,omitempty" mapstructure:"category"`
	Eligibility    Eligibility `json:"eligibility" mapstructure:"eligibility"`
	Description    string      `json:"description,omitempty" mapstructure:"description"`
	Requirements   []string    `json:"requirements,omitempty" mapstructure:"requirements"`
	Tags           []string    `json:"tags,omitempty" mapstructure:"tags"`
	ApplicationURL string      `json:"applicationUrl,omitempty" mapstructure:"applicationUrl"`
	IsActive       bool        `json:"isActive" mapstructure:"isActive"`
}

// Eligibility holds the optional constraints declared by an offer.
// Nil pointers and empty values mean the constraint is not declared.
type Eligibility struct {
	GPAThreshold *float64 `json:"gpa,omitempty" mapstructure:"gpa"`
	AgeCeiling   *int     `json:"age,omitempty" mapstructure:"age"`
	Citizenship  []string `json:"citizenship,omitempty" mapstructure:"citizenship"`
	Gender       string   `json:"gender,omitempty" mapstructure:"gender"`
}
