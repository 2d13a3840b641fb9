package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spigell/scholar-matcher/internal/filtering"
	"github.com/spigell/scholar-matcher/internal/store"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

const testCatalog = `
offers:
  - id: a
    title: Merit Award
    organization: Tata Trusts
    amount: 50000
    currency: INR
    deadline: "2025-03-20"
    category: General
    eligibility:
      gpa: 8
      citizenship: [Indian]
  - id: b
    title: Closed Grant
    category: General
    isActive: false
  - id: c
    title: Toppers Fund
    organization: Reliance Foundation
    category: General
    eligibility:
      gpa: 9.5
  - id: d
    title: Skipped Org Award
    organization: Skip Org
    category: General
  - id: e
    title: Already Applied
    category: General
`

const testProfile = `{"id": "u1", "gpa": 8.5, "citizenship": "Indian", "category": "General"}`

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestSession(t *testing.T, config *Config) *session {
	t.Helper()
	config.setDefaults()
	return &session{
		ctx:    context.Background(),
		config: config,
		logger: zaptest.NewLogger(t),
		now:    testNow,
		steps:  prepareFilters(config.Filters),
	}
}

func fileConfig(t *testing.T) *Config {
	t.Helper()
	exclude := &store.ExcludedOffers{Items: []*store.ExcludedOffer{{ID: "e", Title: "Already Applied"}}}
	excludeFile := filepath.Join(t.TempDir(), "excluded.json")
	require.NoError(t, exclude.ToFile(excludeFile))

	return &Config{
		Profile: &ProfileConfig{File: writeTestFile(t, "profile.json", testProfile)},
		Catalog: &CatalogConfig{File: writeTestFile(t, "catalog.yaml", testCatalog)},
		Filters: &FiltersConfig{
			ExcludeOrganizations: []string{"skip org"},
			ExcludeFile:          excludeFile,
		},
	}
}

func TestParseNow(t *testing.T) {
	clock := func() time.Time { return time.Date(2030, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600)) }

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Date(2030, 1, 2, 2, 4, 5, 0, time.UTC)},
		{in: " 2025-03-01 ", want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2025-03-01T10:00:00+02:00", want: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)},
		{in: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseNow(tt.in, clock)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestPrepareFiltersIncludeInactive(t *testing.T) {
	statuses := filtering.Describe(prepareFilters(&FiltersConfig{IncludeInactive: true}))

	require.NotEmpty(t, statuses)
	assert.Equal(t, filtering.ActiveStepName, statuses[0].Name)
	assert.False(t, statuses[0].Enabled)

	for _, status := range filtering.Describe(prepareFilters(nil)) {
		assert.True(t, status.Enabled, status.Name)
	}
}

func TestSourcesPreferFiles(t *testing.T) {
	s := newTestSession(t, &Config{
		Profile: &ProfileConfig{File: "profile.json", ID: "u1"},
		Catalog: &CatalogConfig{File: "catalog.yaml"},
	})

	profiles, err := s.profileSource()
	require.NoError(t, err)
	assert.Equal(t, store.FileProfile{Path: "profile.json"}, profiles)

	catalog, err := s.catalogSource()
	require.NoError(t, err)
	assert.Equal(t, store.FileCatalog{Path: "catalog.yaml"}, catalog)
}

func TestProfileSourceRequiresFileOrID(t *testing.T) {
	s := newTestSession(t, &Config{})

	_, err := s.profileSource()

	assert.ErrorContains(t, err, "profile.file or profile.id")
}

func TestPostgresRequiresDSN(t *testing.T) {
	t.Setenv(postgresDSNEnv, "")
	s := newTestSession(t, &Config{Profile: &ProfileConfig{ID: "u1"}})

	_, err := s.profileSource()

	assert.ErrorContains(t, err, postgresDSNEnv)
	assert.Nil(t, s.pg)
}

func TestAdvisorDisabled(t *testing.T) {
	s := newTestSession(t, &Config{})

	_, err := s.advisor()

	assert.ErrorContains(t, err, "ai.enabled")
}

func TestLoadAppliesFilters(t *testing.T) {
	s := newTestSession(t, fileConfig(t))

	profile, offers, err := s.load()
	require.NoError(t, err)

	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, []string{"a", "c"}, offers.IDs())
}

func TestLoadKeepsInactiveWhenRequested(t *testing.T) {
	config := fileConfig(t)
	config.Filters.IncludeInactive = true
	s := newTestSession(t, config)

	_, offers, err := s.load()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, offers.IDs())
}

func TestStatsJSON(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSession(t, fileConfig(t))

	require.NoError(t, stats(s, &buf, outputJSON))

	var got map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]int{"totalScholarships": 2, "eligibleCount": 1, "eligibilityPercentage": 50}, got)
}

func TestEligibilityJSON(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSession(t, fileConfig(t))

	require.NoError(t, eligibility(s, &buf, outputJSON))

	var got struct {
		Eligible []struct {
			Offer struct {
				ID string `json:"id"`
			} `json:"offer"`
		} `json:"eligible"`
		Ineligible []struct {
			Offer struct {
				ID string `json:"id"`
			} `json:"offer"`
			Reasons []string `json:"reasons"`
		} `json:"ineligible"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got.Eligible, 1)
	assert.Equal(t, "a", got.Eligible[0].Offer.ID)
	require.Len(t, got.Ineligible, 1)
	assert.Equal(t, "c", got.Ineligible[0].Offer.ID)
	assert.NotEmpty(t, got.Ineligible[0].Reasons)
}

func TestRecommendTable(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSession(t, fileConfig(t))

	require.NoError(t, recommend(s, &buf, outputTable))

	out := buf.String()
	assert.Contains(t, out, "Merit Award")
	assert.NotContains(t, out, "Closed Grant")
	assert.NotContains(t, out, "Skipped Org Award")
	assert.NotContains(t, out, "Already Applied")
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	called := false

	err := render(&bytes.Buffer{}, "xml", nil, func() { called = true })

	assert.ErrorContains(t, err, "xml")
	assert.False(t, called)
}
