// Package config loads the bot settings from the environment, an optional
// .env file and the accounts file.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
)

var ErrInvalid = errors.New("invalid configuration")

const DefaultEnvFile = ".env"

type Config struct {
	MonitorDelay   time.Duration `koanf:"monitor_delay" validate:"gt=0"`
	MonitorTimeout time.Duration `koanf:"monitor_timeout" validate:"gt=0"`

	WebhookSuccess string `koanf:"webhook_success" validate:"required,url"`
	WebhookRefused string `koanf:"webhook_refused" validate:"omitempty,url"`
	WebhookMonitor string `koanf:"webhook_monitor" validate:"omitempty,url"`

	PriceDelta int    `koanf:"price_delta" validate:"gte=0"`
	LogLevel   string `koanf:"log_level"`
	LogDir     string `koanf:"log_dir"`

	Mode          Mode   `koanf:"mode" validate:"oneof=all offers consigns"`
	OfferPolicy   string `koanf:"offer_policy" validate:"oneof=first_sight every_poll"`
	ConsignAction string `koanf:"consign_action" validate:"oneof=notify place"`
	ConsignScope  string `koanf:"consign_scope" validate:"oneof=account all"`

	BootstrapAttempts int     `koanf:"bootstrap_attempts" validate:"gte=1"`
	DeleteAttempts    int     `koanf:"delete_attempts" validate:"gte=1"`
	ClientProfile     string  `koanf:"client_profile" validate:"required"`
	RequestRate       float64 `koanf:"request_rate" validate:"gte=0"`

	RedisAddr   string `koanf:"redis_addr" validate:"omitempty,hostname_port"`
	MetricsAddr string `koanf:"metrics_addr"`

	CaptchaToken      string `koanf:"captcha_token" secret:"true"`
	CaptchaServiceURL string `koanf:"captcha_service_url" validate:"omitempty,url"`
	CaptchaServiceKey string `koanf:"captcha_service_key" secret:"true"`

	AccountsFile string `koanf:"accounts_file" validate:"required"`
	ProxiesFile  string `koanf:"proxies_file" validate:"required"`
}

func defaults() Config {
	return Config{
		LogLevel:          "info",
		Mode:              ModeAll,
		OfferPolicy:       "first_sight",
		ConsignAction:     "notify",
		ConsignScope:      "account",
		BootstrapAttempts: 5,
		DeleteAttempts:    5,
		ClientProfile:     "chrome_120",
		AccountsFile:      "accounts.csv",
		ProxiesFile:       "proxies.txt",
		RequestRate:       2,
	}
}

// Load reads envFile into the process environment when it exists, then
// builds the configuration from defaults overridden by environment variables.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: load %s: %w", ErrInvalid, envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	known := make(map[string]struct{})
	for _, key := range keys() {
		known[key] = struct{}{}
	}
	if err := k.Load(env.ProviderWithValue("", ".", func(name, value string) (string, any) {
		key := strings.ToLower(name)
		if _, ok := known[key]; !ok || strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				secondsHook(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secondsHook decodes durations given as plain seconds ("5", "0.5") as well as
// Go duration strings ("1m30s").
func secondsHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if s == "" {
			return time.Duration(0), nil
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	}
}

func keys() []string {
	t := reflect.TypeOf(Config{})
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.ToUpper(fld.Tag.Get("koanf"))
	})
	return v
}

func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "gt":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not a valid %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Log prints every setting, masking secrets.
func (c *Config) Log(log *logrus.Entry) {
	v := reflect.ValueOf(*c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		val := fmt.Sprint(v.Field(i).Interface())
		if f.Tag.Get("secret") == "true" && val != "" {
			val = strings.Repeat("*", len(val))
		}
		log.Infof("%s: %s", strings.ToUpper(f.Tag.Get("koanf")), val)
	}
}
