package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/scholar-matcher/internal/ai"
	"github.com/spigell/scholar-matcher/internal/ai/gemini"
	"github.com/spigell/scholar-matcher/internal/filtering"
	"github.com/spigell/scholar-matcher/internal/logger"
	"github.com/spigell/scholar-matcher/internal/matching"
	"github.com/spigell/scholar-matcher/internal/secrets"
	"github.com/spigell/scholar-matcher/internal/store"
)

const (
	postgresDSNEnv  = "SCHOLAR_POSTGRES_DSN"
	geminiAPIKeyEnv = "GEMINI_API_KEY"
)

// session carries everything a command needs for one invocation.
type session struct {
	ctx    context.Context
	config *Config
	logger *zap.Logger
	now    time.Time
	steps  []filtering.Filter

	pg *store.Postgres
}

// newSession builds the logger and config for cmd. Failures are fatal, as the
// command cannot proceed without them.
func newSession(cmd *cobra.Command) *session {
	base, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	runLogger := logger.WithRunID(base, uuid.NewString())

	config, err := getConfig()
	if err != nil {
		runLogger.Fatal("getting a config", zap.Error(err))
	}

	runLogger.Info("starting the scholar-matcher", zap.String("version", resolveVersion(version, debug.ReadBuildInfo)), zap.String("command", cmd.Name()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	runLogger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	now, err := parseNow(config.Matching.Now, time.Now)
	if err != nil {
		runLogger.Fatal("parsing matching.now", zap.Error(err))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return &session{
		ctx:    ctx,
		config: config,
		logger: runLogger,
		now:    now,
		steps:  prepareFilters(config.Filters),
	}
}

func (s *session) close() {
	if s.pg == nil {
		return
	}
	if err := s.pg.Close(); err != nil {
		s.logger.Warn("closing postgres", zap.Error(err))
	}
}

// parseNow returns the evaluation time: the override when set, otherwise the clock.
func parseNow(value string, clock func() time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return clock().UTC(), nil
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported time %q: expected RFC3339 or YYYY-MM-DD", value)
}

func prepareFilters(cfg *FiltersConfig) []filtering.Filter {
	steps := filtering.Default()
	if cfg != nil && cfg.IncludeInactive {
		filtering.DisableByName(steps, filtering.ActiveStepName, "include inactive requested")
	}
	return steps
}

func (s *session) filteringConfig() *filtering.Config {
	return &filtering.Config{
		ExcludeOrganizations: s.config.Filters.ExcludeOrganizations,
		ExcludeFile:          s.config.Filters.ExcludeFile,
	}
}

func (s *session) options() matching.Options {
	return matching.Options{
		Limit:   s.config.Matching.Limit,
		Workers: s.config.Matching.Workers,
	}
}

// postgres opens the database on first use.
func (s *session) postgres() (*store.Postgres, error) {
	if s.pg != nil {
		return s.pg, nil
	}

	dsn, err := secrets.Load(secrets.Source{
		Name:  "postgres dsn",
		File:  s.config.Postgres.DSNFile,
		Env:   postgresDSNEnv,
		Value: s.config.Postgres.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set postgres.dsn-file or %s)", err, postgresDSNEnv)
	}

	pg, err := store.OpenPostgres(s.ctx, dsn, s.logger)
	if err != nil {
		return nil, err
	}
	s.pg = pg
	return pg, nil
}

func (s *session) profileSource() (store.ProfileSource, error) {
	if file := strings.TrimSpace(s.config.Profile.File); file != "" {
		return store.FileProfile{Path: file}, nil
	}
	if strings.TrimSpace(s.config.Profile.ID) == "" {
		return nil, errors.New("either profile.file or profile.id is required")
	}
	return s.postgres()
}

func (s *session) catalogSource() (store.CatalogSource, error) {
	if file := strings.TrimSpace(s.config.Catalog.File); file != "" {
		return store.FileCatalog{Path: file}, nil
	}
	return s.postgres()
}

// load fetches the profile and the prepared catalog in parallel.
func (s *session) load() (*matching.Profile, *store.Offers, error) {
	profiles, err := s.profileSource()
	if err != nil {
		return nil, nil, err
	}
	catalog, err := s.catalogSource()
	if err != nil {
		return nil, nil, err
	}

	var (
		profile *matching.Profile
		offers  *store.Offers
	)

	g, ctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		p, err := profiles.Profile(ctx, strings.TrimSpace(s.config.Profile.ID))
		if err != nil {
			return fmt.Errorf("loading profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		o, err := catalog.Offers(ctx)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		offers = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	s.logger.Info("catalog loaded",
		zap.String(logger.FieldProfileID, profile.ID),
		zap.Int("count", offers.Len()),
	)

	offers, err = filtering.Run(s.ctx, s.filteringConfig(), filtering.Deps{Logger: s.logger}, s.steps, offers)
	if err != nil {
		return nil, nil, fmt.Errorf("preparing catalog: %w", err)
	}

	return profile, offers, nil
}

// advisor builds the Gemini advisor from the ai config.
func (s *session) advisor() (ai.Advisor, error) {
	cfg := s.config.AI
	if !cfg.Enabled {
		return nil, errors.New("advisor is disabled (set ai.enabled)")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Env:   geminiAPIKeyEnv,
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or %s)", err, geminiAPIKeyEnv)
	}

	genLogger := s.logger.With(
		zap.String(logger.FieldProvider, "gemini"),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(s.ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	advisor := gemini.NewAdvisor(generator, s.logger, cfg.Gemini.MaxLogLength, cfg.Gemini.TopOffers)
	advisor.SetPromptOverrides(gemini.PromptOverrides{
		Tone:             cfg.Tone,
		Language:         cfg.Language,
		UserInstructions: cfg.Instructions,
	})

	return advisor, nil
}
