// Package profile holds the runtime configuration of the server, resolved
// from flags, environment variables, and an optional .env file.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Profile is the configuration the server boots with.
type Profile struct {
	// Mode is "prod" or "dev"; dev relaxes CORS and logs more.
	Mode string
	// Addr is the binding address; empty binds all interfaces.
	Addr string
	// Port is the binding port.
	Port int
	// Data is the directory for local state (SQLite database file).
	Data string
	// Driver is the storage backend: sqlite, postgres, or mysql.
	Driver string
	// DSN is the database connection string; defaulted for sqlite.
	DSN string
	// Secret signs and verifies access tokens.
	Secret string

	// LLMAPIKey authenticates against the generation provider. Chat and
	// summarization are disabled without it.
	LLMAPIKey string
	// LLMBaseURL is the OpenAI-compatible endpoint of the provider.
	LLMBaseURL string
	// LLMModel is the default generation model.
	LLMModel string

	// SummarizeInterval is the cadence of the background summarization
	// sweep; zero disables the sweep.
	SummarizeInterval time.Duration
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

var allowedDrivers = []string{"sqlite", "postgres", "mysql"}

// Validate normalizes the profile and fills driver-dependent defaults.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}
	if !slices.Contains(allowedDrivers, p.Driver) {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.Secret == "" {
		return errors.New("secret must not be empty")
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		absDir, err := filepath.Abs(p.Data)
		if err != nil {
			return errors.Wrapf(err, "resolve data dir %q", p.Data)
		}
		if err := os.MkdirAll(absDir, 0o750); err != nil {
			return errors.Wrapf(err, "create data dir %q", absDir)
		}
		p.Data = absDir
		p.DSN = fmt.Sprintf("file:%s", filepath.Join(absDir, "toolhub_"+p.Mode+".db"))
	}
	if p.Driver != "sqlite" && p.DSN == "" {
		return errors.Errorf("dsn is required for driver %q", p.Driver)
	}
	return nil
}

// GetProfile resolves the profile from the environment. A .env file in the
// working directory is honored when present.
func GetProfile() (*Profile, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("toolhub")
	v.AutomaticEnv()
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("data", ".")
	v.SetDefault("driver", "sqlite")
	v.SetDefault("dsn", "")
	v.SetDefault("secret", "")
	v.SetDefault("llm_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm_model", "gemini-2.5-flash")
	v.SetDefault("summarize_interval", "5m")

	profile := &Profile{
		Mode:              v.GetString("mode"),
		Addr:              v.GetString("addr"),
		Port:              v.GetInt("port"),
		Data:              v.GetString("data"),
		Driver:            v.GetString("driver"),
		DSN:               v.GetString("dsn"),
		Secret:            v.GetString("secret"),
		LLMAPIKey:         v.GetString("llm_api_key"),
		LLMBaseURL:        v.GetString("llm_base_url"),
		LLMModel:          v.GetString("llm_model"),
		SummarizeInterval: v.GetDuration("summarize_interval"),
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
