// Package config loads ActionPlus settings from an optional YAML file and
// ACTIONPLUS_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

type Config struct {
	DataDir          string   `yaml:"data_dir" validate:"required"`
	Backend          string   `yaml:"backend" validate:"oneof=sqlite file"`
	DBPath           string   `yaml:"db_path"`
	StateFile        string   `yaml:"state_file"`
	LogLevel         string   `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogJSON          bool     `yaml:"log_json"`
	LogFile          string   `yaml:"log_file"`
	RetentionDays    int      `yaml:"retention_days" validate:"gte=1,lte=3650"`
	ShortHorizonDays int      `yaml:"short_horizon_days" validate:"gte=1,lte=366"`
	LongHorizonDays  int      `yaml:"long_horizon_days" validate:"gte=1,lte=366"`
	SchedulerBuffer  int      `yaml:"scheduler_buffer" validate:"gte=1,lte=4096"`
	AutoGenerateDays []string `yaml:"auto_generate_days" validate:"dive,oneof=today tomorrow"`
	// Notifications off makes the delivery backend report a denied
	// permission, so syncs are skipped instead of scheduling.
	Notifications  bool `yaml:"notifications"`
	RepeatingDaily bool `yaml:"repeating_daily"`
}

func Default() Config {
	return Config{
		DataDir:          defaultDataDir(),
		Backend:          BackendSQLite,
		LogLevel:         "info",
		RetentionDays:    120,
		ShortHorizonDays: 30,
		LongHorizonDays:  90,
		SchedulerBuffer:  64,
		AutoGenerateDays: []string{"today", "tomorrow"},
		Notifications:    true,
	}
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".actionplus"
	}
	return filepath.Join(dir, "actionplus")
}

// DefaultPath is where Load looks when no --config flag is given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FromEnv applies ACTIONPLUS_* overrides on top of base. Unparseable values
// are ignored.
func FromEnv(base Config) Config {
	cfg := base
	if v, ok := getEnvString("ACTIONPLUS_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := getEnvString("ACTIONPLUS_BACKEND"); ok {
		cfg.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvString("ACTIONPLUS_DB"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString("ACTIONPLUS_STATE_FILE"); ok {
		cfg.StateFile = v
	}
	if v, ok := getEnvString("ACTIONPLUS_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := getEnvBool("ACTIONPLUS_LOG_JSON"); ok {
		cfg.LogJSON = v
	}
	if v, ok := getEnvString("ACTIONPLUS_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	if v, ok := getEnvInt("ACTIONPLUS_RETENTION_DAYS"); ok && v > 0 {
		cfg.RetentionDays = v
	}
	if v, ok := getEnvInt("ACTIONPLUS_SHORT_HORIZON_DAYS"); ok && v > 0 {
		cfg.ShortHorizonDays = v
	}
	if v, ok := getEnvInt("ACTIONPLUS_LONG_HORIZON_DAYS"); ok && v > 0 {
		cfg.LongHorizonDays = v
	}
	if v, ok := getEnvInt("ACTIONPLUS_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvString("ACTIONPLUS_AUTO_GENERATE_DAYS"); ok {
		days := make([]string, 0, 2)
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
				days = append(days, part)
			}
		}
		cfg.AutoGenerateDays = days
	}
	if v, ok := getEnvBool("ACTIONPLUS_NOTIFICATIONS"); ok {
		cfg.Notifications = v
	}
	if v, ok := getEnvBool("ACTIONPLUS_REPEATING_DAILY"); ok {
		cfg.RepeatingDaily = v
	}
	return cfg
}

var validate = validator.New()

// Validate checks field ranges and enums.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config: invalid %s (%s=%s)", first.Namespace(), first.Tag(), first.Param())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Resolve fills file paths left empty with locations under DataDir.
func (c Config) Resolve() Config {
	out := c
	if strings.TrimSpace(out.DBPath) == "" {
		out.DBPath = filepath.Join(out.DataDir, "actionplus.db")
	}
	if strings.TrimSpace(out.StateFile) == "" {
		out.StateFile = filepath.Join(out.DataDir, "state.json")
	}
	return out
}

// TUILogFile is where logs go while the terminal UI owns the screen.
func (c Config) TUILogFile() string {
	if strings.TrimSpace(c.LogFile) != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "actionplus.log")
}

// GenerationOffsets converts AutoGenerateDays to day offsets from today.
func (c Config) GenerationOffsets() []int {
	out := make([]int, 0, len(c.AutoGenerateDays))
	seen := map[int]bool{}
	for _, d := range c.AutoGenerateDays {
		offset := -1
		switch d {
		case "today":
			offset = 0
		case "tomorrow":
			offset = 1
		}
		if offset < 0 || seen[offset] {
			continue
		}
		seen[offset] = true
		out = append(out, offset)
	}
	return out
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
