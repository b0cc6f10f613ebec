package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	AppName               = "firetodo"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todo.db"
	DefaultCollection     = "tasks"
)

var ErrInvalidConfig = errors.New("invalid config")

type Keymap struct {
	Quit          string `toml:"quit" validate:"required"`
	Add           string `toml:"add" validate:"required"`
	Up            string `toml:"up" validate:"required"`
	Down          string `toml:"down" validate:"required"`
	Toggle        string `toml:"toggle" validate:"required"`
	Delete        string `toml:"delete" validate:"required"`
	Edit          string `toml:"edit" validate:"required"`
	Confirm       string `toml:"confirm" validate:"required"`
	Cancel        string `toml:"cancel" validate:"required"`
	MoveUp        string `toml:"move_up" validate:"required"`
	MoveDown      string `toml:"move_down" validate:"required"`
	FilterAll     string `toml:"filter_all" validate:"required"`
	FilterDone    string `toml:"filter_done" validate:"required"`
	FilterPending string `toml:"filter_pending" validate:"required"`
	Search        string `toml:"search" validate:"required"`
	MarkAllDone   string `toml:"mark_all_done" validate:"required"`
	ClearAll      string `toml:"clear_all" validate:"required"`
	PriorityNext  string `toml:"priority_next" validate:"required"`
	PriorityPrev  string `toml:"priority_prev" validate:"required"`
}

type FirestoreConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	ProjectID       string `toml:"project_id"`
	Collection      string `toml:"collection"`
}

type SQLiteConfig struct {
	DBPath string `toml:"db_path"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db" validate:"min=0"`
}

type StoreConfig struct {
	// Timeout bounds each store round trip, e.g. "10s". Empty or "0" disables it.
	Timeout string `toml:"timeout"`
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

type Config struct {
	Backend       string          `toml:"backend" validate:"oneof=firestore sqlite redis memory"`
	DefaultFilter string          `toml:"default_filter" validate:"oneof=all done pending"`
	Firestore     FirestoreConfig `toml:"firestore"`
	SQLite        SQLiteConfig    `toml:"sqlite"`
	Redis         RedisConfig     `toml:"redis"`
	Store         StoreConfig     `toml:"store"`
	Log           LogConfig       `toml:"log"`
	Keys          Keymap          `toml:"keys"`
}

// ResolveConfigPath returns $XDG_CONFIG_HOME/firetodo/config.toml, falling
// back to ~/.config and finally the working directory.
func ResolveConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, DefaultConfigFileName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", AppName, DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

// LoadOrCreate reads the config at path, writing the defaults there first
// when the file does not exist yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	cfg.SQLite.DBPath = filepath.Join(filepath.Dir(path), DefaultDBName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if cfg.SQLite.DBPath == "" {
		cfg.SQLite.DBPath = filepath.Join(filepath.Dir(path), DefaultDBName)
	}
	if cfg.Firestore.Collection == "" {
		cfg.Firestore.Collection = DefaultCollection
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// ApplyEnv loads a .env file from the working directory when present and
// lets TODO_* variables override the file.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	overrideString(&cfg.Backend, "TODO_BACKEND")
	overrideString(&cfg.DefaultFilter, "TODO_DEFAULT_FILTER")
	overrideString(&cfg.Firestore.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")
	overrideString(&cfg.Firestore.CredentialsFile, "TODO_CREDENTIALS_FILE")
	overrideString(&cfg.Firestore.ProjectID, "TODO_PROJECT_ID")
	overrideString(&cfg.Firestore.Collection, "TODO_COLLECTION")
	overrideString(&cfg.SQLite.DBPath, "TODO_DB_PATH")
	overrideString(&cfg.Redis.Addr, "TODO_REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "TODO_REDIS_PASSWORD")
	if v := os.Getenv("TODO_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TODO_REDIS_DB: %w", ErrInvalidConfig, err)
		}
		cfg.Redis.DB = db
	}
	overrideString(&cfg.Store.Timeout, "TODO_STORE_TIMEOUT")
	overrideString(&cfg.Log.File, "TODO_LOG_FILE")
	overrideString(&cfg.Log.Level, "TODO_LOG_LEVEL")
	return nil
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required for the redis backend", ErrInvalidConfig)
	}
	if _, err := c.StoreTimeout(); err != nil {
		return err
	}
	return nil
}

// StoreTimeout parses store.timeout; zero means no deadline.
func (c Config) StoreTimeout() (time.Duration, error) {
	if c.Store.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Store.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: store.timeout: %w", ErrInvalidConfig, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: store.timeout must not be negative", ErrInvalidConfig)
	}
	return d, nil
}

func defaultConfig() Config {
	return Config{
		Backend:       "firestore",
		DefaultFilter: "all",
		Firestore: FirestoreConfig{
			CredentialsFile: "firebase-adminsdk.json",
			Collection:      DefaultCollection,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Log: LogConfig{
			Level: "info",
		},
		Keys: Keymap{
			Quit:          "q",
			Add:           "a",
			Up:            "k",
			Down:          "j",
			Toggle:        " ",
			Delete:        "d",
			Edit:          "e",
			Confirm:       "enter",
			Cancel:        "esc",
			MoveUp:        "K",
			MoveDown:      "J",
			FilterAll:     "1",
			FilterDone:    "2",
			FilterPending: "3",
			Search:        "/",
			MarkAllDone:   "D",
			ClearAll:      "X",
			PriorityNext:  "tab",
			PriorityPrev:  "shift+tab",
		},
	}
}
