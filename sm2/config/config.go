// Package config loads module settings from a file and SM2_* environment
// variables and turns them into a Domain, a logger and key-exchange options.
package config

import (
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/ec"
	"github.com/TheusHen/SM2/sm2/keyex"
	"github.com/TheusHen/SM2/sm2/logging"
)

// EnvPrefix prefixes every environment override, e.g. SM2_KEYEX_KEY_LENGTH.
const EnvPrefix = "SM2"

type KeyExchange struct {
	KeyLength int  `mapstructure:"key_length" validate:"min=1,max=65536"`
	Confirm   bool `mapstructure:"confirm"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type Config struct {
	Backend     string      `mapstructure:"backend" validate:"oneof=generic accelerated"`
	UID         string      `mapstructure:"uid" validate:"uidlen"`
	MaxAttempts int         `mapstructure:"max_attempts" validate:"min=1,max=1024"`
	KeyExchange KeyExchange `mapstructure:"keyex"`
	Log         Log         `mapstructure:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Backend:     ec.DefaultBackend,
		UID:         sm2.DefaultUID,
		MaxAttempts: sm2.DefaultMaxAttempts,
		KeyExchange: KeyExchange{KeyLength: keyex.DefaultKeyLength, Confirm: true},
		Log:         Log{Level: "info", Format: "json"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("uid", d.UID)
	v.SetDefault("max_attempts", d.MaxAttempts)
	v.SetDefault("keyex.key_length", d.KeyExchange.KeyLength)
	v.SetDefault("keyex.confirm", d.KeyExchange.Confirm)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads path (YAML, JSON or TOML by extension) over the defaults and
// applies environment overrides. An empty path uses defaults and the
// environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: reading %s", path)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "config: parse error")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = newValidator()

// newValidator adds "uidlen": validator's max counts runes, ENTL counts bytes.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("uidlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= sm2.MaxUIDLength
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "config: validation failed")
	}
	return nil
}

// Logger builds the configured logger writing to w.
func (c *Config) Logger(w io.Writer) (zerolog.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, "config: log level")
	}
	if c.Log.Format == "console" {
		return logging.Console(w, logging.WithLevel(level)), nil
	}
	return logging.New(w, logging.WithLevel(level)), nil
}

// Domain builds a Domain with the configured backend and attempt limit,
// logging through l.
func (c *Config) Domain(l zerolog.Logger) (*sm2.Domain, error) {
	return sm2.NewDomain(
		sm2.WithBackend(c.Backend),
		sm2.WithMaxAttempts(c.MaxAttempts),
		sm2.WithLogger(l),
	)
}

// KeyExchangeOptions returns the options for keyex.NewInitiator and
// keyex.NewResponder.
func (c *Config) KeyExchangeOptions() []keyex.Option {
	return []keyex.Option{
		keyex.WithKeyLength(c.KeyExchange.KeyLength),
		keyex.WithConfirmation(c.KeyExchange.Confirm),
	}
}

// DefaultUID is the configured identifier as bytes.
func (c *Config) DefaultUID() []byte { return []byte(c.UID) }
