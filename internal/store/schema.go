package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is wrapped by every schema validation failure.
var ErrInvalidDocument = errors.New("invalid document")

const offerSchemaJSON = `{
  "type": "object",
  "required": ["id", "title"],
  "properties": {
    "id": {"type": ["string", "integer"]},
    "title": {"type": "string"},
    "organization": {"type": "string"},
    "amount": {"type": "number", "minimum": 0},
    "currency": {"type": "string"},
    "deadline": {"type": "string"},
    "field": {"type": "string"},
    "level": {"type": "string"},
    "country": {"type": "string"},
    "category": {"type": "string"},
    "eligibility": {
      "type": "object",
      "properties": {
        "gpa": {"type": "number", "minimum": 0},
        "age": {"type": "integer", "minimum": 0},
        "citizenship": {"type": "array", "items": {"type": "string"}},
        "gender": {"type": "string"}
      }
    },
    "requirements": {"type": "array", "items": {"type": "string"}},
    "tags": {"type": "array", "items": {"type": "string"}},
    "isActive": {"type": "boolean"}
  }
}`

// Profile attributes are normalized leniently, so only the identity is
// enforced here.
const profileSchemaJSON = `{
  "type": "object",
  "required": ["id"],
  "properties": {
    "id": {"type": ["string", "integer"]}
  }
}`

var (
	offerSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(offerSchemaJSON))
	})
	profileSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(profileSchemaJSON))
	})
)

// ValidateOfferDocument checks a raw catalog record before decoding.
func ValidateOfferDocument(doc any) error {
	schema, err := offerSchema()
	if err != nil {
		return fmt.Errorf("compile offer schema: %w", err)
	}
	return validateDocument(schema, doc, "offer")
}

// ValidateProfileDocument checks a raw profile record before normalization.
func ValidateProfileDocument(doc any) error {
	schema, err := profileSchema()
	if err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}
	return validateDocument(schema, doc, "profile")
}

func validateDocument(schema *gojsonschema.Schema, doc any, what string) error {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate %s: %w", what, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, what, strings.Join(errs, "; "))
	}

	return nil
}
