package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "scholar-matcher"
	envPrefix = "SCHOLAR"

	redactedValue = "<redacted>"
)

type Config struct {
	Profile  *ProfileConfig  `mapstructure:"profile"`
	Catalog  *CatalogConfig  `mapstructure:"catalog"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Filters  *FiltersConfig  `mapstructure:"filters"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type ProfileConfig struct {
	File string `mapstructure:"file"`
	ID   string `mapstructure:"id"`
}

type CatalogConfig struct {
	File string `mapstructure:"file"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type MatchingConfig struct {
	Limit   int    `mapstructure:"limit"`
	Workers int    `mapstructure:"workers"`
	Now     string `mapstructure:"now"`
}

type FiltersConfig struct {
	ExcludeOrganizations []string `mapstructure:"exclude-organizations"`
	ExcludeFile          string   `mapstructure:"exclude-file"`
	IncludeInactive      bool     `mapstructure:"include-inactive"`
}

type AIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Tone         string        `mapstructure:"tone"`
	Language     string        `mapstructure:"language"`
	Instructions string        `mapstructure:"instructions"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	TopOffers    int    `mapstructure:"top-offers"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "scholar-matcher checks scholarship eligibility and recommends the best matching scholarships for a student",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "a config file (default is scholar-matcher.yaml in current directory)")
	flags.BoolP("debug", "d", false, "verbose/debug output")
	flags.BoolP("json", "j", false, "json format for logging")
	flags.StringP("profile", "p", "", "student profile file (json or yaml)")
	flags.String("profile-id", "", "student id, required when the profile is read from postgres")
	flags.StringP("catalog", "c", "", "scholarship catalog file (json or yaml); postgres is used when unset")
	flags.StringP("exclude-file", "e", "", "file with dismissed scholarships to exclude")
	flags.Bool("include-inactive", false, "keep scholarships that are not accepting applications")
	flags.Int("limit", 0, "maximum number of recommendations (default 20)")
	flags.Int("workers", 0, "number of offers evaluated in parallel")
	flags.String("now", "", "evaluate deadlines at this time (RFC3339 or YYYY-MM-DD) instead of the current time")

	bindings := map[string]string{
		"debug":                    "debug",
		"json":                     "json",
		"profile.file":             "profile",
		"profile.id":               "profile-id",
		"catalog.file":             "catalog",
		"filters.exclude-file":     "exclude-file",
		"filters.include-inactive": "include-inactive",
		"matching.limit":           "limit",
		"matching.workers":         "workers",
		"matching.now":             "now",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Fatalf("binding %s flag: %v", flag, err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func initConfig() {
	// .env is optional; values already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			// We can't proceed if the config file parsed with error.
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	config.setDefaults()

	return config, nil
}

// setDefaults replaces missing sections with empty ones.
func (c *Config) setDefaults() {
	if c.Profile == nil {
		c.Profile = &ProfileConfig{}
	}
	if c.Catalog == nil {
		c.Catalog = &CatalogConfig{}
	}
	if c.Postgres == nil {
		c.Postgres = &PostgresConfig{}
	}
	if c.Matching == nil {
		c.Matching = &MatchingConfig{}
	}
	if c.Filters == nil {
		c.Filters = &FiltersConfig{}
	}
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.AI.Gemini == nil {
		c.AI.Gemini = &GeminiConfig{}
	}
}

// redacted returns a copy safe for logging: inline secrets are masked.
func (c *Config) redacted() *Config {
	out := *c
	if c.Postgres != nil && c.Postgres.DSN != "" {
		pg := *c.Postgres
		pg.DSN = redactedValue
		out.Postgres = &pg
	}
	if c.AI != nil && c.AI.Gemini != nil && c.AI.Gemini.APIKey != "" {
		aiCfg := *c.AI
		gemini := *c.AI.Gemini
		gemini.APIKey = redactedValue
		aiCfg.Gemini = &gemini
		out.AI = &aiCfg
	}
	return &out
}
