package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every knob the CLI and web demo need. Values are layered:
// flags override environment variables (PRESSWORK_*), which override the
// config file, which overrides defaults.
type Config struct {
	Strategy   string `mapstructure:"strategy"`
	NgramSize  int    `mapstructure:"ngram_size"`
	Tokenizer  string `mapstructure:"tokenizer"`
	Joiner     string `mapstructure:"joiner"`
	Count      int    `mapstructure:"count"`
	DBPath     string `mapstructure:"db_path"`
	ModelName  string `mapstructure:"model_name"`
	ListenAddr string `mapstructure:"listen_addr"`
	LogLevel   string `mapstructure:"log_level"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Strategy:   "gomarkov",
		NgramSize:  2,
		Tokenizer:  "punkt",
		Joiner:     "whitespace",
		Count:      10,
		DBPath:     "./presswork.db",
		ModelName:  "default",
		ListenAddr: "127.0.0.1:7278",
		LogLevel:   "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("strategy", defaults.Strategy, "Model strategy (crude|gomarkov|sqlite)")
	fs.Int("ngram-size", defaults.NgramSize, "Tokens of context used to predict the next token (1-6)")
	fs.String("tokenizer", defaults.Tokenizer, "Sentence tokenizer nickname (whitespace|pattern|punkt)")
	fs.String("joiner", defaults.Joiner, "Joiner nickname (whitespace|detok|random_indent|random_enjamb)")
	fs.Int("count", defaults.Count, "Sentences to generate")
	fs.String("db-path", defaults.DBPath, "SQLite database path for the sqlite strategy")
	fs.String("model-name", defaults.ModelName, "Model name within the database")
	fs.String("listen-addr", defaults.ListenAddr, "Web demo listen address")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("PRESSWORK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("presswork")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("strategy", c.Strategy)
	v.SetDefault("ngram_size", c.NgramSize)
	v.SetDefault("tokenizer", c.Tokenizer)
	v.SetDefault("joiner", c.Joiner)
	v.SetDefault("count", c.Count)
	v.SetDefault("db_path", c.DBPath)
	v.SetDefault("model_name", c.ModelName)
	v.SetDefault("listen_addr", c.ListenAddr)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("ngram_size", "ngram-size")
	v.RegisterAlias("db_path", "db-path")
	v.RegisterAlias("model_name", "model-name")
	v.RegisterAlias("listen_addr", "listen-addr")
	v.RegisterAlias("log_level", "log-level")
}
