// Package config reads and writes ~/.posadmin/config.json and resolves the
// current tenant database.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"posadmin/internal/viewstate"

	"github.com/gofrs/flock"
)

const (
	DefaultBannerDelay = 2 * time.Second
	DefaultWorkers     = 4
	DefaultPerPage     = 10
)

type Config struct {
	APIBaseURL string `json:"apiBaseUrl,omitempty"`
	Token      string `json:"token,omitempty"`

	// CurrentDB is the url of the selected tenant database ("acme-db").
	CurrentDB string `json:"currentDb,omitempty"`
	// Databases are the tenants this user can switch between.
	Databases []Database `json:"databases,omitempty"`

	ItemsPerPage      int     `json:"itemsPerPage,omitempty"`
	BulkWorkers       int     `json:"bulkWorkers,omitempty"`
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty"`
	BannerSeconds     float64 `json:"bannerSeconds,omitempty"`
	LogLevel          string  `json:"logLevel,omitempty"`
}

type Database struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

func Dir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.posadmin).
	if v := strings.TrimSpace(os.Getenv("POSADMIN_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".posadmin"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load returns an empty config when the file does not exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return loadFile(path)
}

func loadFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()
	return saveFile(path, cfg)
}

// Update applies fn to the stored config under the file lock, so a CLI run
// and a running TUI never lose each other's writes.
func Update(fn func(*Config) error) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	cfg, err := loadFile(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return saveFile(path, cfg)
}

func saveFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o600)
	}
	// The file holds the API token.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

// NormalizeDB strips whitespace and leading/trailing slashes from a db url.
func NormalizeDB(url string) string {
	return strings.Trim(strings.TrimSpace(url), "/")
}

// ResolveDB picks the database to use: the stored current one while it is
// still a known database, otherwise the first known one.
func (c *Config) ResolveDB() string {
	cur := NormalizeDB(c.CurrentDB)
	if len(c.Databases) == 0 {
		return cur
	}
	for _, d := range c.Databases {
		if NormalizeDB(d.URL) == cur && cur != "" {
			return cur
		}
	}
	return NormalizeDB(c.Databases[0].URL)
}

// HasDB reports whether url is one of the known databases.
func (c *Config) HasDB(url string) bool {
	url = NormalizeDB(url)
	for _, d := range c.Databases {
		if NormalizeDB(d.URL) == url {
			return true
		}
	}
	return false
}

// UseDB selects url, registering it as known when it is new.
func (c *Config) UseDB(url string) error {
	url = NormalizeDB(url)
	if url == "" {
		return errors.New("database url is empty")
	}
	if !c.HasDB(url) {
		c.Databases = append(c.Databases, Database{URL: url})
	}
	c.CurrentDB = url
	return nil
}

// WithEnv returns a copy of c with POSADMIN_API_URL and POSADMIN_TOKEN applied on top.
func (c *Config) WithEnv() Config {
	out := *c
	out.APIBaseURL = envOr("POSADMIN_API_URL", c.APIBaseURL)
	out.Token = envOr("POSADMIN_TOKEN", c.Token)
	return out
}

// EffectiveDB applies precedence flag > POSADMIN_DB > ResolveDB.
func (c *Config) EffectiveDB(flag string) string {
	if v := NormalizeDB(flag); v != "" {
		return v
	}
	if v := NormalizeDB(os.Getenv("POSADMIN_DB")); v != "" {
		return v
	}
	return c.ResolveDB()
}

func (c *Config) BannerDelay() time.Duration {
	if c.BannerSeconds <= 0 {
		return DefaultBannerDelay
	}
	return time.Duration(c.BannerSeconds * float64(time.Second))
}

func (c *Config) Workers() int {
	if c.BulkWorkers <= 0 {
		return DefaultWorkers
	}
	return c.BulkWorkers
}

func (c *Config) PerPage() int {
	if viewstate.AllowedPerPage(c.ItemsPerPage) {
		return c.ItemsPerPage
	}
	return DefaultPerPage
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
