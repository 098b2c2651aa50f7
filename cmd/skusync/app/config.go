package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/pipeline"
	"github.com/agentstation/skusync/pkg/reconciler"
	"github.com/agentstation/skusync/pkg/save"
)

// Config holds the application configuration loaded from config files,
// environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Run configuration
	InputDir    string
	OutputDir   string
	MappingFile string
	WebhookURL  string
	Formats     []string
	Bundles     bool
	Unmapped    string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (handled by cobra)
//  2. Environment variables
//  3. .env files
//  4. Config file (~/.skusync.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	// .env files first, before Viper env binding
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	bindEnvKeys()

	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".skusync")
		}
	}

	// Config file is optional
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		InputDir:    viper.GetString("input_dir"),
		OutputDir:   viper.GetString("output_dir"),
		MappingFile: viper.GetString("mapping_file"),
		WebhookURL:  viper.GetString("webhook_url"),
		Formats:     viper.GetStringSlice("formats"),
		Bundles:     viper.GetBool("bundles"),
		Unmapped:    viper.GetString("unmapped"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	// Defaults
	if config.InputDir == "" {
		config.InputDir = constants.DefaultInputDir
	}
	if config.OutputDir == "" {
		config.OutputDir = constants.DefaultOutputDir
	}
	if config.MappingFile == "" {
		config.MappingFile = constants.DefaultMappingFile
	}
	if len(config.Formats) == 0 {
		config.Formats = []string{"csv"}
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags so flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// PipelineConfig translates the app configuration into a pipeline config.
func (c *Config) PipelineConfig(dryRun bool) (pipeline.Config, error) {
	var formats []save.Format
	for _, name := range c.Formats {
		f, ok := save.ParseFormat(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return pipeline.Config{}, errors.NewConfigError("config", "unknown output format "+name, nil)
		}
		formats = append(formats, f)
	}

	return pipeline.Config{
		InputDir:   c.InputDir,
		OutputDir:  c.OutputDir,
		Formats:    formats,
		WebhookURL: c.WebhookURL,
		DryRun:     dryRun,
		Bundles:    c.Bundles,
		Unmapped:   reconciler.UnmappedPolicy(c.Unmapped),
	}, nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}
	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindEnvKeys explicitly binds the environment variables operators set in
// .env files.
func bindEnvKeys() {
	keys := []string{
		"INPUT_DIR",
		"OUTPUT_DIR",
		"MAPPING_FILE",
		"WEBHOOK_URL",
		"FORMATS",
		"BUNDLES",
		"UNMAPPED",
	}
	for _, key := range keys {
		_ = viper.BindEnv(strings.ToLower(key), key, "SKUSYNC_"+key)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
