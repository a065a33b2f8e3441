// Package config loads the infrastructure config file. User preferences such
// as work hours live in the store, not here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/recurrence"
	"github.com/julianstephens/studyplan/internal/scheduler"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	envPrefix = "STUDYPLAN"
)

type Config struct {
	Database  DatabaseConfig
	Debug     bool
	Calendar  CalendarConfig
	Holidays  []string
	Scheduler SchedulerConfig
}

type DatabaseConfig struct {
	Driver string
	Path   string
	// URL is a PostgreSQL connection string without credentials. When empty
	// the connection string is read from the OS keyring.
	URL string
}

type CalendarConfig struct {
	Enabled         bool
	CredentialsPath string
	TokenPath       string
	CalendarID      string
	HolidayCalendar string
	Export          bool
	RateLimit       float64
}

type SchedulerConfig struct {
	Weights       scheduler.Weights
	BumpBudget    int
	LookaheadDays int
}

// Load reads path, or config.yaml from the default config directory when
// path is empty. A missing default file is not an error. STUDYPLAN_*
// environment variables override file values, e.g. STUDYPLAN_DATABASE_PATH.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(ExpandHome(path))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ExpandHome(constants.DefaultConfigDir))
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Debug = v.GetBool("debug")

	cfg.Database.Driver = strings.ToLower(v.GetString("database.driver"))
	cfg.Database.Path = ExpandHome(v.GetString("database.path"))
	cfg.Database.URL = v.GetString("database.url")

	cfg.Calendar.Enabled = v.GetBool("calendar.enabled")
	cfg.Calendar.CredentialsPath = ExpandHome(v.GetString("calendar.credentials_path"))
	cfg.Calendar.TokenPath = ExpandHome(v.GetString("calendar.token_path"))
	cfg.Calendar.CalendarID = v.GetString("calendar.calendar_id")
	cfg.Calendar.HolidayCalendar = v.GetString("calendar.holiday_calendar")
	cfg.Calendar.Export = v.GetBool("calendar.export")
	cfg.Calendar.RateLimit = v.GetFloat64("calendar.rate_limit")

	cfg.Holidays = stringList(v, "holidays")

	cfg.Scheduler.Weights = scheduler.Weights{
		Urgency:    v.GetFloat64("scheduler.weights.urgency"),
		Importance: v.GetFloat64("scheduler.weights.importance"),
		Difficulty: v.GetFloat64("scheduler.weights.difficulty"),
		DueSoon:    v.GetFloat64("scheduler.weights.due_soon"),
	}
	cfg.Scheduler.BumpBudget = v.GetInt("scheduler.bump_budget")
	cfg.Scheduler.LookaheadDays = v.GetInt("scheduler.lookahead_days")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", constants.DefaultDBPath)
	v.SetDefault("calendar.enabled", false)
	v.SetDefault("calendar.token_path", filepath.Join(constants.DefaultConfigDir, "calendar-token.json"))
	v.SetDefault("calendar.calendar_id", "primary")
	v.SetDefault("calendar.export", false)
	v.SetDefault("calendar.rate_limit", 5)

	w := scheduler.DefaultWeights()
	v.SetDefault("scheduler.weights.urgency", w.Urgency)
	v.SetDefault("scheduler.weights.importance", w.Importance)
	v.SetDefault("scheduler.weights.difficulty", w.Difficulty)
	v.SetDefault("scheduler.weights.due_soon", w.DueSoon)
	v.SetDefault("scheduler.bump_budget", constants.DefaultBumpBudget)
	v.SetDefault("scheduler.lookahead_days", constants.MaxLookaheadDays)
}

// stringList reads a list that may also arrive from the environment as a
// comma-separated string
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for part := range strings.SplitSeq(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("unknown database.driver %q (expected sqlite or postgres)", c.Database.Driver)
	}

	w := c.Scheduler.Weights
	if w.Urgency < 0 || w.Importance < 0 || w.Difficulty < 0 || w.DueSoon < 0 {
		return errors.New("scheduler.weights must not be negative")
	}
	if w.Sum() <= 0 {
		return errors.New("scheduler.weights must not all be zero")
	}
	if c.Scheduler.BumpBudget < 0 {
		return errors.New("scheduler.bump_budget must not be negative")
	}
	if c.Scheduler.LookaheadDays < 1 || c.Scheduler.LookaheadDays > constants.RecurrenceMaxDays {
		return fmt.Errorf("scheduler.lookahead_days must be within 1-%d", constants.RecurrenceMaxDays)
	}

	if c.Calendar.Enabled && c.Calendar.CredentialsPath == "" {
		return errors.New("calendar.credentials_path is required when the calendar is enabled")
	}
	if c.Calendar.Export && !c.Calendar.Enabled {
		return errors.New("calendar.export needs calendar.enabled")
	}
	if _, err := recurrence.ParseHolidaySet(c.Holidays); err != nil {
		return err
	}
	return nil
}

// HolidaySet parses the configured holiday dates
func (c *Config) HolidaySet() recurrence.HolidaySet {
	set, _ := recurrence.ParseHolidaySet(c.Holidays)
	return set
}

// ConfigDir is the directory logs, backups and lock files live in. For
// sqlite it is the database's directory.
func (c *Config) ConfigDir() string {
	if c.Database.Driver == DriverSQLite && c.Database.Path != "" {
		return filepath.Dir(c.Database.Path)
	}
	return ExpandHome(constants.DefaultConfigDir)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !strings.HasPrefix(rest, "/")) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
