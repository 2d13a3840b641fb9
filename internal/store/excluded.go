package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"
)

// ExcludedOffers is the content of a student's exclude file: offers they
// dismissed or already applied to.
type ExcludedOffers struct {
	Items []*ExcludedOffer
}

type ExcludedOffer struct {
	ID           string
	Title        string
	URL          string
	Organization string
	ExcludedAt   time.Time
}

// GetExcludedOffersFromFile reads an exclude file. A missing or empty file
// yields an empty list.
func GetExcludedOffersFromFile(path string) (*ExcludedOffers, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ExcludedOffers{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedOffers{}, nil
	}

	var excluded ExcludedOffers
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries whose id is not in the list yet.
func (e *ExcludedOffers) Append(s *ExcludedOffers) {
	seen := make(map[string]bool, len(e.Items))
	for _, item := range e.Items {
		seen[item.ID] = true
	}
	for _, item := range s.Items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedOffers) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, offer := range e.Items {
		ids = append(ids, offer.ID)
	}
	return ids
}

func (e *ExcludedOffers) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
