package cli

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/yojana/internal/logger"
	"github.com/ppiankov/yojana/internal/model"
)

// Version is set at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
	jsonLog bool

	conf = newViper()
)

// newViper delimits keys with "::" because map keys under
// rate_limiting.per_domain and jurisdiction.domains are host names
func newViper() *viper.Viper {
	return viper.NewWithOptions(viper.KeyDelimiter("::"))
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "yojana",
	Short: "Yojana - Government scheme eligibility extraction and matching",
	Long: `Yojana turns government scheme pages into machine-readable eligibility
rules and matches citizen profiles against them.

It reads scheme descriptions (HTML, Markdown or plain text), locates the
eligibility passage, normalizes it into typed criteria (income, age,
residency, category, gender, occupation) and evaluates profiles with a
three-valued verdict: eligible, ineligible or indeterminate.

A verdict is a reading of the published text, not an official decision.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Yojana.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("yojana %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.yojana/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "write logs as JSON")

	// Bind flags to viper
	bindFlags()

	rootCmd.AddCommand(versionCmd)
}

func bindFlags() {
	_ = conf.BindPFlag("output::verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = conf.BindPFlag("output::json_log", rootCmd.PersistentFlags().Lookup("json-log"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		conf.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		conf.AddConfigPath(home + "/.yojana")
		conf.SetConfigType("yaml")
		conf.SetConfigName("config")
	}

	// Defaults are registered key by key so YOJANA_* variables can
	// override settings that never appear in the config file
	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	// YOJANA_HTTP_TIMEOUT overrides http.timeout
	conf.SetEnvPrefix("YOJANA")
	conf.SetEnvKeyReplacer(strings.NewReplacer("::", "_"))
	conf.AutomaticEnv()

	if err := conf.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", conf.ConfigFileUsed())
	}
}

func setDefaults(cfg model.Config) error {
	defaults := make(map[string]any)
	if err := mapstructure.Decode(cfg, &defaults); err != nil {
		return err
	}
	setDefaultLeaves("", defaults)
	return nil
}

// setDefaultLeaves registers every leaf of m. Empty maps are skipped so
// they do not shadow host keys from the config file.
func setDefaultLeaves(prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "::" + k
		}
		if nested, ok := v.(map[string]any); ok {
			setDefaultLeaves(key, nested)
			continue
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map && rv.Len() == 0 {
			continue
		}
		conf.SetDefault(key, v)
	}
}

// loadConfig decodes the merged defaults, config file, environment and
// global flags into a Config
func loadConfig() (*model.Config, error) {
	// Decoding into a populated slice would keep its tail, so start
	// empty; defaults are already registered with conf
	var cfg model.Config

	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := conf.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "ollama" {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	return &cfg, nil
}

// apiKeyFromEnv reads the provider's conventional key variable
func apiKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini", "google":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("GOOGLE_API_KEY")
	default:
		return ""
	}
}

// newLogger builds the zap logger from output settings
func newLogger(cfg *model.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Output.JSONLog, cfg.Output.Verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// setup loads config and logger for a command
func setup() (*model.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
