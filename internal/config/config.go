package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"PriceSentinel/internal/calculator"
	"PriceSentinel/internal/collector"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Providers lists the accepted data_source.provider values.
var Providers = []string{"yahoo", "financego", "rest", "csv", "mock"}

// Config holds all application configuration.
type Config struct {
	DataSource DataSourceConfig `yaml:"data_source" envconfig:"DATA_SOURCE"`
	Indicators IndicatorConfig  `yaml:"indicators" envconfig:"INDICATORS"`
	Alert      AlertConfig      `yaml:"alert" envconfig:"ALERT"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	Telegram   TelegramConfig   `yaml:"telegram" envconfig:"TELEGRAM"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Schedule   ScheduleConfig   `yaml:"schedule" envconfig:"SCHEDULE"`
	Metrics    MetricsConfig    `yaml:"metrics" envconfig:"METRICS"`
	Proxy      string           `yaml:"proxy" envconfig:"HTTPS_PROXY"`
}

// DataSourceConfig selects where price history comes from.
type DataSourceConfig struct {
	Provider string `yaml:"provider" envconfig:"PROVIDER" validate:"oneof=yahoo financego rest csv mock"`
	Ticker   string `yaml:"ticker" envconfig:"TICKER" validate:"required,ticker"`
	Period   string `yaml:"period" envconfig:"PERIOD"`
	Start    string `yaml:"start" envconfig:"START" validate:"omitempty,datetime=2006-01-02"`
	End      string `yaml:"end" envconfig:"END" validate:"omitempty,datetime=2006-01-02"`
	BaseURL  string `yaml:"base_url" envconfig:"BASE_URL" validate:"required_if=Provider rest"`
	APIKey   string `yaml:"api_key" envconfig:"API_KEY"`
	CSVPath  string `yaml:"csv_path" envconfig:"CSV_PATH" validate:"required_if=Provider csv"`
}

// IndicatorConfig holds the indicator window sizes.
type IndicatorConfig struct {
	MAWindow        int     `yaml:"ma_window" envconfig:"MA_WINDOW" validate:"min=1"`
	STDWindow       int     `yaml:"std_window" envconfig:"STD_WINDOW" validate:"min=1"`
	RSIWindow       int     `yaml:"rsi_window" envconfig:"RSI_WINDOW" validate:"min=1"`
	MACDShort       int     `yaml:"macd_short" envconfig:"MACD_SHORT" validate:"min=1"`
	MACDLong        int     `yaml:"macd_long" envconfig:"MACD_LONG" validate:"min=1,gtfield=MACDShort"`
	MACDSignal      int     `yaml:"macd_signal" envconfig:"MACD_SIGNAL" validate:"min=1"`
	BollingerWindow int     `yaml:"bollinger_window" envconfig:"BOLLINGER_WINDOW" validate:"min=1"`
	NumStdDev       float64 `yaml:"num_std_dev" envconfig:"NUM_STD_DEV" validate:"gt=0"`
}

// AlertConfig holds the fluctuation threshold. A nil threshold disables the
// alert evaluation.
type AlertConfig struct {
	Threshold *float64 `yaml:"threshold" envconfig:"THRESHOLD" validate:"omitempty,gte=0"`
}

// ExportConfig controls where enriched series are written.
type ExportConfig struct {
	Dir  string `yaml:"dir" envconfig:"DIR"`
	File string `yaml:"file" envconfig:"FILE"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" envconfig:"CHAT_ID" validate:"required_with=BotToken"`
}

type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron" envconfig:"CRON"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// Load reads config from a YAML file, then .env, then environment variable
// overrides, and finally fills defaults. A missing file is not an error.
//
// Environment names are the section and field joined, e.g.
// DATA_SOURCE_PROVIDER or ALERT_THRESHOLD; the bare field name
// (SQLITE_PATH, BOT_TOKEN) is accepted as a fallback.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional and never overrides the real environment.
	_ = godotenv.Load()

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	ds := &c.DataSource
	if ds.Provider == "" {
		ds.Provider = "yahoo"
	}
	ds.Provider = strings.ToLower(ds.Provider)
	ds.Ticker = strings.ToUpper(strings.TrimSpace(ds.Ticker))
	if ds.Period == "" && ds.Start == "" && ds.End == "" {
		ds.Period = "1mo"
	}

	defaults := calculator.DefaultParams()
	ind := &c.Indicators
	setInt := func(v *int, d int) {
		if *v == 0 {
			*v = d
		}
	}
	setInt(&ind.MAWindow, defaults.MAWindow)
	setInt(&ind.STDWindow, defaults.STDWindow)
	setInt(&ind.RSIWindow, defaults.RSIWindow)
	setInt(&ind.MACDShort, defaults.MACDShort)
	setInt(&ind.MACDLong, defaults.MACDLong)
	setInt(&ind.MACDSignal, defaults.MACDSignal)
	setInt(&ind.BollingerWindow, defaults.BollingerWindow)
	if ind.NumStdDev == 0 {
		ind.NumStdDev = defaults.NumStdDev
	}

	if c.Export.Dir == "" {
		c.Export.Dir = "csv_files"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/price_sentinel.db"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 18 * * 1-5"
	}
}

// IndicatorParams maps the indicator section onto the engine parameters.
func (c *Config) IndicatorParams() calculator.Params {
	ind := c.Indicators
	return calculator.Params{
		MAWindow:        ind.MAWindow,
		STDWindow:       ind.STDWindow,
		RSIWindow:       ind.RSIWindow,
		MACDShort:       ind.MACDShort,
		MACDLong:        ind.MACDLong,
		MACDSignal:      ind.MACDSignal,
		BollingerWindow: ind.BollingerWindow,
		NumStdDev:       ind.NumStdDev,
	}
}

// Range returns the configured history range.
func (c *Config) Range() collector.Range {
	ds := c.DataSource
	return collector.Range{Period: ds.Period, Start: ds.Start, End: ds.End}
}

// TelegramEnabled reports whether alerts can be delivered to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^/]{0,19}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(strings.ToUpper(fl.Field().String()))
	})
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the history range.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Range().Validate(); err != nil {
		return fmt.Errorf("invalid config: data_source: %w", err)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	// Namespace is "Config.data_source.ticker"; drop the root.
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(Providers, ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", field, strings.ToLower(fe.Param()))
	case "datetime":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date", field)
	case "ticker":
		return fmt.Sprintf("%s %q is not a valid ticker symbol", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
