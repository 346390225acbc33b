package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"notegenius/internal/platform/validate"
)

const (
	RemoteModeLocal = "local"
	RemoteModeHTTP  = "http"
)

type Config struct {
	DataDir     string           `mapstructure:"data_dir" validate:"required"`
	Env         string           `mapstructure:"env" validate:"required"`
	UserID      string           `mapstructure:"user_id"`
	Debug       bool             `mapstructure:"debug"`
	StudyRoutes []string         `mapstructure:"study_routes" validate:"min=1,dive,route_prefix"`
	Inactivity  InactivityConfig `mapstructure:"inactivity"`
	Session     SessionConfig    `mapstructure:"session"`
	Remote      RemoteConfig     `mapstructure:"remote"`
	Notify      NotifyConfig     `mapstructure:"notify"`
	Outbox      OutboxConfig     `mapstructure:"outbox"`
	Server      ServerConfig     `mapstructure:"server"`
	Export      ExportConfig     `mapstructure:"export"`
	Rollbar     RollbarConfig    `mapstructure:"rollbar"`

	// Derived paths.
	RecordsDBPath string `mapstructure:"-"`
	ClientDBPath  string `mapstructure:"-"`
	LocalDir      string `mapstructure:"-"`
}

// InactivityConfig holds the staged idle ladder measured from the last input.
// A zero stage is disabled.
type InactivityConfig struct {
	Warn  time.Duration `mapstructure:"warn" validate:"gte=0"`
	Pause time.Duration `mapstructure:"pause" validate:"gte=0"`
	End   time.Duration `mapstructure:"end" validate:"gte=0"`
}

type SessionConfig struct {
	MaxDuration       time.Duration `mapstructure:"max_duration" validate:"gt=0"`
	MinDuration       time.Duration `mapstructure:"min_duration" validate:"gte=0"`
	ExcludePausedTime bool          `mapstructure:"exclude_paused_time"`
}

type RemoteConfig struct {
	Mode    string        `mapstructure:"mode" validate:"oneof=local http"`
	URL     string        `mapstructure:"url" validate:"required_if=Mode http,omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type NotifyConfig struct {
	Plugin string `mapstructure:"plugin"`
}

type OutboxConfig struct {
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

type RollbarConfig struct {
	Token string `mapstructure:"token"`
}

// DefaultStudyRoutes is the route allow-list used when none is configured.
var DefaultStudyRoutes = []string{"/flashcards", "/notes", "/quiz", "/study"}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("env", "dev")
	v.SetDefault("debug", false)
	v.SetDefault("study_routes", DefaultStudyRoutes)
	v.SetDefault("inactivity.warn", 2*time.Minute)
	v.SetDefault("inactivity.pause", 3*time.Minute)
	v.SetDefault("inactivity.end", 15*time.Minute)
	v.SetDefault("session.max_duration", 4*time.Hour)
	v.SetDefault("session.min_duration", time.Minute)
	v.SetDefault("session.exclude_paused_time", false)
	v.SetDefault("remote.mode", RemoteModeLocal)
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("notify.plugin", "")
	v.SetDefault("outbox.interval", 15*time.Second)
	v.SetDefault("outbox.max_attempts", 10)
	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("export.dir", "")
	v.SetDefault("rollbar.token", "")
	v.SetDefault("user_id", "")
}

// New loads configuration for dataDir: defaults, then <dataDir>/config.yaml
// when present, then NOTEGENIUS_* environment variables (a <dataDir>/.env
// file is loaded into the environment first).
func New(dataDir string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	dotEnvPath := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("stat %s: %w", dotEnvPath, err)
	}

	v := viper.New()
	setDefaults(v, dataDir)
	v.SetEnvPrefix("NOTEGENIUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	// Env overrides arrive as one comma separated string.
	cfg.StudyRoutes = splitList(strings.Join(cfg.StudyRoutes, ","))
	cfg.RecordsDBPath = filepath.Join(cfg.DataDir, "records.db")
	cfg.ClientDBPath = filepath.Join(cfg.DataDir, "client.db")
	cfg.LocalDir = filepath.Join(cfg.DataDir, "local")
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return c.Inactivity.checkOrder()
}

func (i InactivityConfig) checkOrder() error {
	last := time.Duration(0)
	for _, stage := range []struct {
		name string
		d    time.Duration
	}{{"warn", i.Warn}, {"pause", i.Pause}, {"end", i.End}} {
		if stage.d == 0 {
			continue
		}
		if stage.d <= last {
			return fmt.Errorf("config: inactivity.%s must be later than the previous stage", stage.name)
		}
		last = stage.d
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
