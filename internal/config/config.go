package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/coachbook/internal/durable"
)

// EnvPrefix prefixes every environment variable, e.g. COACHBOOK_DRIVER.
const EnvPrefix = "COACHBOOK"

// Keys understood by Load. Flags bound with BindFlags use the same names.
const (
	KeyDriver      = "driver"
	KeyDSN         = "dsn"
	KeyKeyPrefix   = "key-prefix"
	KeyFormat      = "format"
	KeyVerbose     = "verbose"
	KeyPDFAuthor   = "pdf-author"
	KeyPDFCompress = "pdf-compress"
)

// ValidFormats are the accepted output formats.
var ValidFormats = []string{"text", "json"}

// Config is the resolved configuration.
type Config struct {
	Driver      string `mapstructure:"driver"`
	DSN         string `mapstructure:"dsn"`
	KeyPrefix   string `mapstructure:"key-prefix"`
	Format      string `mapstructure:"format"`
	Verbose     bool   `mapstructure:"verbose"`
	PDFAuthor   string `mapstructure:"pdf-author"`
	PDFCompress bool   `mapstructure:"pdf-compress"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDriver, durable.DriverSQLite)
	v.SetDefault(KeyDSN, "")
	v.SetDefault(KeyKeyPrefix, "coachbook:")
	v.SetDefault(KeyFormat, "text")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyPDFAuthor, "")
	v.SetDefault(KeyPDFCompress, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs whose name is a config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range []string{KeyDriver, KeyDSN, KeyKeyPrefix, KeyFormat, KeyVerbose, KeyPDFAuthor, KeyPDFCompress} {
		f := fs.Lookup(key)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	return nil
}

// LoadEnvFiles loads .env files into the process environment. Variables
// already set are kept. Missing files are skipped; with no names, ".env"
// in the working directory is tried.
func LoadEnvFiles(names ...string) error {
	if len(names) == 0 {
		names = []string{".env"}
	}
	for _, name := range names {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file and returns the validated result.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Driver = strings.ToLower(cfg.Driver)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and driver requirements.
func (c *Config) Validate() error {
	if !slices.Contains(durable.Drivers, c.Driver) {
		return fmt.Errorf("invalid driver %q: must be one of %v", c.Driver, durable.Drivers)
	}
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if c.Driver == durable.DriverPostgres && c.DSN == "" {
		return errors.New("driver postgres requires a dsn")
	}
	return nil
}

// Durable returns the storage settings.
func (c *Config) Durable() durable.Config {
	return durable.Config{Driver: c.Driver, DSN: c.DSN, KeyPrefix: c.KeyPrefix}
}
