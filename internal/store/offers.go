package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/scholar-matcher/internal/matching"
)

const (
	OfferIDField           = "ID"
	OfferOrganizationField = "Organization"
)

// Offers is an ordered catalog snapshot. Order is significant: the matcher
// breaks score ties by it.
type Offers struct {
	Items []*matching.Offer
}

func (o *Offers) Len() int {
	return len(o.Items)
}

// Slice returns the offers in catalog order for the matcher.
func (o *Offers) Slice() []*matching.Offer {
	return o.Items
}

func (o *Offers) FindByID(id string) *matching.Offer {
	for _, offer := range o.Items {
		if offer.ID == id {
			return offer
		}
	}
	return nil
}

func (o *Offers) IDs() []string {
	ids := make([]string, 0, len(o.Items))
	for _, offer := range o.Items {
		ids = append(ids, offer.ID)
	}
	return ids
}

func getStringField(offer *matching.Offer, name string) string {
	switch name {
	case OfferIDField:
		return offer.ID
	case OfferOrganizationField:
		return offer.Organization
	default:
		return ""
	}
}

// Exclude removes offers whose field equals one of targets and returns the
// removed ids. Organizations are compared case-insensitively. The order of
// the remaining offers is preserved.
func (o *Offers) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	match := func(value, target string) bool { return value == target }
	if name == OfferOrganizationField {
		match = strings.EqualFold
	}

	return o.removeIf(func(offer *matching.Offer) bool {
		value := getStringField(offer, name)
		for _, target := range targets {
			if match(value, strings.TrimSpace(target)) {
				return true
			}
		}
		return false
	})
}

// ExcludeInactive removes offers that are not accepting applications.
func (o *Offers) ExcludeInactive() []string {
	return o.removeIf(func(offer *matching.Offer) bool { return !offer.IsActive })
}

func (o *Offers) removeIf(drop func(*matching.Offer) bool) []string {
	var excluded []string
	kept := o.Items[:0]
	for _, offer := range o.Items {
		if drop(offer) {
			excluded = append(excluded, offer.ID)
			continue
		}
		kept = append(kept, offer)
	}
	// release dropped pointers held by the tail of the backing array
	for i := len(kept); i < len(o.Items); i++ {
		o.Items[i] = nil
	}
	o.Items = kept
	return excluded
}

// ToExcluded converts the offers into exclude-file entries stamped with at.
func (o *Offers) ToExcluded(at time.Time) *ExcludedOffers {
	excluded := &ExcludedOffers{}
	for _, offer := range o.Items {
		excluded.Items = append(excluded.Items, &ExcludedOffer{
			ID:           offer.ID,
			Title:        offer.Title,
			URL:          offer.ApplicationURL,
			Organization: offer.Organization,
			ExcludedAt:   at.UTC(),
		})
	}
	return excluded
}

// ReportByOrganization groups offers by organization for a quick overview.
func (o *Offers) ReportByOrganization() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, offer := range o.Items {
		key := offer.Organization
		if key == "" {
			key = "unknown organization"
		}
		entry := map[string]string{
			"id":     offer.ID,
			"title":  offer.Title,
			"amount": strings.TrimSpace(fmt.Sprintf("%s %s", strconv.FormatFloat(offer.Amount, 'f', -1, 64), offer.Currency)),
			"field":  offer.Field,
			"level":  offer.Level,
		}
		if !offer.Deadline.IsZero() {
			entry["deadline"] = offer.Deadline.Format(time.DateOnly)
		}
		if offer.ApplicationURL != "" {
			entry["url"] = offer.ApplicationURL
		}
		report[key] = append(report[key], entry)
	}
	return report
}

// DumpToTmpFile writes v as indented JSON into a new temporary file and
// returns its name.
func DumpToTmpFile(pattern string, v any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return file.Name(), nil
}
