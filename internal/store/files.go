package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spigell/scholar-matcher/internal/matching"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// CatalogSource provides the catalog snapshot handed to the matcher.
type CatalogSource interface {
	Offers(ctx context.Context) (*Offers, error)
}

// ProfileSource resolves an applicant profile by id.
type ProfileSource interface {
	Profile(ctx context.Context, id string) (*matching.Profile, error)
}

// FileCatalog reads the catalog from a JSON or YAML file.
type FileCatalog struct {
	Path string
}

func (f FileCatalog) Offers(_ context.Context) (*Offers, error) {
	return LoadCatalogFile(f.Path)
}

// FileProfile reads a single profile from a JSON or YAML file.
type FileProfile struct {
	Path string
}

// Profile returns the file profile. A non-empty id must match the one in the
// file.
func (f FileProfile) Profile(_ context.Context, id string) (*matching.Profile, error) {
	profile, err := LoadProfileFile(f.Path)
	if err != nil {
		return nil, err
	}
	if id = strings.TrimSpace(id); id != "" && id != profile.ID {
		return nil, fmt.Errorf("profile %q in %s: %w", id, f.Path, ErrNotFound)
	}
	return profile, nil
}

// LoadCatalogFile reads offers from path. The document is either a list of
// offers or an object with an "offers" list.
func LoadCatalogFile(path string) (*Offers, error) {
	var doc any
	if err := readDocument(path, &doc); err != nil {
		return nil, err
	}

	items, err := catalogItems(doc)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	offers := &Offers{Items: make([]*matching.Offer, 0, len(items))}
	for idx, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("catalog %s: offers[%d] is not an object", path, idx)
		}
		if err := ValidateOfferDocument(record); err != nil {
			return nil, fmt.Errorf("catalog %s: offers[%d]: %w", path, idx, err)
		}
		offer, err := DecodeOffer(record)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: offers[%d]: %w", path, idx, err)
		}
		offers.Items = append(offers.Items, offer)
	}

	return offers, nil
}

func catalogItems(doc any) ([]any, error) {
	switch val := doc.(type) {
	case []any:
		return val, nil
	case map[string]any:
		if items, ok := val["offers"].([]any); ok {
			return items, nil
		}
		return nil, fmt.Errorf("%w: expected an \"offers\" list", ErrInvalidDocument)
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: expected a list of offers", ErrInvalidDocument)
	}
}

// LoadProfileFile reads and normalizes a single profile record.
func LoadProfileFile(path string) (*matching.Profile, error) {
	var record map[string]any
	if err := readDocument(path, &record); err != nil {
		return nil, err
	}
	if err := ValidateProfileDocument(record); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	profile, err := matching.NormalizeMap(record)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return profile, nil
}

func readDocument(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, target)
	case ".json":
		err = json.Unmarshal(data, target)
	default:
		return fmt.Errorf("read %s: unsupported file extension", path)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
