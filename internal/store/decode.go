package store

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/scholar-matcher/internal/matching"
)

var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly}

// DecodeOffer converts a loosely typed catalog record into an offer. Offers
// are active unless the record says otherwise.
func DecodeOffer(doc map[string]any) (*matching.Offer, error) {
	offer := &matching.Offer{IsActive: true}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       deadlineHook,
		WeaklyTypedInput: true,
		Result:           offer,
	})
	if err != nil {
		return nil, fmt.Errorf("create offer decoder: %w", err)
	}

	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}

	offer.ID = strings.TrimSpace(offer.ID)
	offer.Category = matching.CanonicalCategory(offer.Category)
	return offer, nil
}

func deadlineHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return parseDeadline(s)
}

// parseDeadline accepts RFC 3339 timestamps and plain dates. Values without a
// zone are read as UTC.
func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse deadline %q: unsupported format", s)
}
