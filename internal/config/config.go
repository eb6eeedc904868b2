package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"panchcal/internal/model"
	"panchcal/internal/rules"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "/etc/panchcal/config.yaml"

// Environment overrides, applied after the YAML file is read.
const (
	EnvListen   = "PANCHCAL_LISTEN"
	EnvTimezone = "PANCHCAL_TIMEZONE"
	EnvLogLevel = "PANCHCAL_LOG_LEVEL"
	EnvRefresh  = "PANCHCAL_REFRESH"
	EnvAuthUser = "PANCHCAL_BASIC_AUTH_USERNAME"
	EnvAuthPass = "PANCHCAL_BASIC_AUTH_PASSWORD"
)

// HolidayConfig is an extra Gregorian holiday appended to the built-in
// rule table.
type HolidayConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
	// RRule is a yearly RFC 5545 recurrence, e.g. "FREQ=YEARLY;BYMONTH=1;BYMONTHDAY=2".
	RRule       string `yaml:"rrule" json:"rrule" validate:"required"`
	Category    string `yaml:"category" json:"category" validate:"omitempty,oneof=major festival season"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Rule converts h into a civil rule. An empty category means festival.
func (h HolidayConfig) Rule() rules.Rule {
	cat := model.Category(h.Category)
	if cat == "" {
		cat = model.CategoryFestival
	}
	return rules.Rule{
		Name:        h.Name,
		Category:    cat,
		Description: h.Description,
		Match:       rules.Civil{RRule: h.RRule},
	}
}

// ICSConfig controls the iCalendar export and holiday import.
type ICSConfig struct {
	ProductID    string `yaml:"product_id" json:"product_id"`
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`
	// Import lists .ics files or http(s) feeds whose events become extra
	// civil holidays.
	Import []string `yaml:"import,omitempty" json:"import,omitempty" validate:"dive,required"`
	// CacheDir holds downloaded feeds. Empty uses the user cache directory.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
}

// SnapshotConfig controls the headless-browser PNG capture of /calendar.
type SnapshotConfig struct {
	// URL defaults to the local /calendar page when empty.
	URL     string        `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	Output  string        `yaml:"output" json:"output" validate:"required"`
	Width   int           `yaml:"width" json:"width" validate:"gt=0,lte=8192"`
	Height  int           `yaml:"height" json:"height" validate:"gt=0,lte=8192"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	// NoSandbox runs Chromium without its sandbox (root in containers).
	NoSandbox bool `yaml:"no_sandbox" json:"no_sandbox"`
	// Panel, when set, also writes packed black/red planes for that
	// e-paper panel next to the PNG.
	Panel string `yaml:"panel,omitempty" json:"panel,omitempty" validate:"omitempty,oneof=7.5b 5.83b 12.48b"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web UI and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username" validate:"required"`
	Password string `yaml:"password" json:"password" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA zone whose midnight anchors every date.
	Timezone string `yaml:"timezone" json:"timezone" validate:"required,timezone"`

	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	// RefreshCron is a standard 5-field cron spec for grid cache warm-up.
	RefreshCron string `yaml:"refresh" json:"refresh" validate:"required,cronspec"`

	// CacheMonths caps the number of month grids the web server memoizes.
	CacheMonths int `yaml:"cache_months" json:"cache_months" validate:"gte=1,lte=240"`

	Holidays []HolidayConfig `yaml:"holidays" json:"holidays" validate:"dive"`
	ICS      ICSConfig       `yaml:"ics" json:"ics"`
	Snapshot SnapshotConfig  `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Asia/Kolkata",
		LogLevel:    "info",
		RefreshCron: "5 0 * * *",
		CacheMonths: 24,
		Holidays:    []HolidayConfig{},
		ICS: ICSConfig{
			ProductID:    "-//panchcal//Malayalam Calendar//EN",
			CalendarName: "Malayalam Calendar",
		},
		Snapshot: SnapshotConfig{
			Output:  "calendar.png",
			Width:   800,
			Height:  480,
			Timeout: 30 * time.Second,
		},
	}
}

// Normalize fills zero values from DefaultConfig so that partial files
// still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheMonths == 0 {
		c.CacheMonths = def.CacheMonths
	}
	if c.Holidays == nil {
		c.Holidays = []HolidayConfig{}
	}
	for i := range c.Holidays {
		c.Holidays[i].Category = strings.ToLower(strings.TrimSpace(c.Holidays[i].Category))
	}
	if c.ICS.ProductID == "" {
		c.ICS.ProductID = def.ICS.ProductID
	}
	if c.ICS.CalendarName == "" {
		c.ICS.CalendarName = def.ICS.CalendarName
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = def.Snapshot.Output
	}
	if c.Snapshot.Width == 0 {
		c.Snapshot.Width = def.Snapshot.Width
	}
	if c.Snapshot.Height == 0 {
		c.Snapshot.Height = def.Snapshot.Height
	}
	if c.Snapshot.Timeout == 0 {
		c.Snapshot.Timeout = def.Snapshot.Timeout
	}
}

// ApplyEnv overrides fields from PANCHCAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvListen); ok && v != "" {
		c.Listen = v
	}
	if v, ok := os.LookupEnv(EnvTimezone); ok && v != "" {
		c.Timezone = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := os.LookupEnv(EnvRefresh); ok && v != "" {
		c.RefreshCron = v
	}
	user, hasUser := os.LookupEnv(EnvAuthUser)
	pass, hasPass := os.LookupEnv(EnvAuthPass)
	if hasUser || hasPass {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		if hasUser {
			c.BasicAuth.Username = user
		}
		if hasPass {
			c.BasicAuth.Password = pass
		}
	}
}

// Validate checks field constraints. The error lists every offending
// field by its YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	problems := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			problems = append(problems, fmt.Errorf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			problems = append(problems, fmt.Errorf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("config: invalid: %w", errors.Join(problems...))
}

// Location loads the configured zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HolidayRules converts the configured holidays to civil rules.
func (c *Config) HolidayRules() []rules.Rule {
	out := make([]rules.Rule, 0, len(c.Holidays))
	for _, h := range c.Holidays {
		out = append(out, h.Rule())
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Same grammar the scheduler parses, descriptors like @daily included.
	_ = v.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// LoadDotEnv reads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
//
// If the file does not exist a default config is written there with 0600
// permissions (parent directory 0700) and used.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
	case err != nil:
		return nil, fmt.Errorf("config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		cfg.Normalize()
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config: path is empty")
	}
	if cfg == nil {
		return errors.New("config: nil config")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".panchcal-config-*.tmp")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
