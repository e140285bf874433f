package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoRecipients is the one configuration error that terminates the
// process with a non-zero exit; everything else degrades at runtime.
var ErrNoRecipients = errors.New("no recipients configured")

type Source struct {
	URL       string        `yaml:"url"`
	Mode      string        `yaml:"mode"` // "render" (default), "http", or "feed"
	Container string        `yaml:"container"`
	Pattern   string        `yaml:"pattern"`
	Text      string        `yaml:"text"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Category describes one section of the listing in the category-aware
// setup. Categories inherit Source's mode, pattern, and timeout.
type Category struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Container string `yaml:"container"`
}

type Mail struct {
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	TLS        bool     `yaml:"tls"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	From       string   `yaml:"from"`
	Recipients []string `yaml:"recipients"`
	Subject    string   `yaml:"subject"`
}

type Store struct {
	Type     string `yaml:"type"` // "file" (default) or "valkey"
	Path     string `yaml:"path"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	Key      string `yaml:"key"`
}

type Window struct {
	Name string `yaml:"name"`
	At   string `yaml:"at"` // "HH:MM" local time
}

// Gate confines sends to fixed daily windows. No windows means every run
// may send.
type Gate struct {
	Timezone  string   `yaml:"timezone"`
	Windows   []Window `yaml:"windows"`
	Tolerance int      `yaml:"tolerance"` // minutes, either side of a window
}

type Limits struct {
	BaselineCap int `yaml:"baseline_cap"`
	MaxListed   int `yaml:"max_listed"`
}

type Webhook struct {
	URL      string `yaml:"url"`
	Provider string `yaml:"provider"` // "generic" (default) or "discord"
}

type Config struct {
	Source     Source     `yaml:"source"`
	Categories []Category `yaml:"categories"`
	Mail       Mail       `yaml:"mail"`
	Store      Store      `yaml:"store"`
	Gate       Gate       `yaml:"gate"`
	Limits     Limits     `yaml:"limits"`
	Webhook    Webhook    `yaml:"webhook"`

	// Operator switches, environment only.
	ForceVerdict  string `yaml:"-"`
	ForceSend     bool   `yaml:"-"`
	ResetBaseline bool   `yaml:"-"`
}

// Load reads the YAML config, overlays DOCWATCH_* environment variables,
// and validates the result. A missing config file is fine — everything can
// come from the environment. Components receive the returned value and
// never read the environment themselves.
func Load(path string) (*Config, error) {
	// Defaults
	c := &Config{
		Source: Source{
			Mode:    "render",
			Timeout: 60 * time.Second,
		},
		Mail: Mail{
			Port:    587,
			Subject: "Document listing monitor",
		},
		Store: Store{
			Type: "file",
			Path: "docwatch-state.json",
			Key:  "docwatch:state",
		},
		Gate: Gate{
			Timezone:  "Asia/Tokyo",
			Tolerance: 8,
		},
		Limits: Limits{
			BaselineCap: 1500,
			MaxListed:   25,
		},
	}

	if err := loadYaml(path, c); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	applyEnv(c)

	if len(c.Mail.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if c.Webhook.URL != "" && c.Webhook.Provider == "" {
		c.Webhook.Provider = "generic"
	}

	return c, nil
}

func loadYaml(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyEnv(c *Config) {
	setString(&c.Source.URL, "DOCWATCH_URL")
	setString(&c.Mail.Host, "DOCWATCH_SMTP_HOST")
	setInt(&c.Mail.Port, "DOCWATCH_SMTP_PORT")
	setBool(&c.Mail.TLS, "DOCWATCH_SMTP_TLS")
	setString(&c.Mail.Username, "DOCWATCH_SMTP_USERNAME")
	setString(&c.Mail.Password, "DOCWATCH_SMTP_PASSWORD")
	setString(&c.Mail.From, "DOCWATCH_SMTP_FROM")
	setString(&c.Store.Path, "DOCWATCH_STATE_PATH")

	if v := os.Getenv("DOCWATCH_RECIPIENTS"); v != "" {
		var recipients []string
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				recipients = append(recipients, r)
			}
		}
		c.Mail.Recipients = recipients
	}

	setString(&c.ForceVerdict, "DOCWATCH_FORCE_VERDICT")
	setBool(&c.ForceSend, "DOCWATCH_FORCE_SEND")
	setBool(&c.ResetBaseline, "DOCWATCH_RESET_BASELINE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
