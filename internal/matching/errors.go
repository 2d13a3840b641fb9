package matching

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a missing or unusable required identity field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validateProfile(p *Profile) error {
	if p == nil {
		return &ValidationError{Field: "profile", Message: "profile is required"}
	}
	if strings.TrimSpace(p.ID) == "" {
		return &ValidationError{Field: "profile.id", Message: "profile id is required"}
	}
	return nil
}

func validateOffer(o *Offer, idx int) error {
	if o == nil {
		return &ValidationError{Field: fmt.Sprintf("offers[%d]", idx), Message: "offer is required"}
	}
	if strings.TrimSpace(o.ID) == "" {
		return &ValidationError{Field: fmt.Sprintf("offers[%d].id", idx), Message: "offer id is required"}
	}
	return nil
}

func validateCatalog(p *Profile, offers []*Offer) error {
	if err := validateProfile(p); err != nil {
		return err
	}
	for idx, o := range offers {
		if err := validateOffer(o, idx); err != nil {
			return err
		}
	}
	return nil
}
