package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment   string `mapstructure:"environment"`
	DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	Log           struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
	DB struct {
		Driver   string `mapstructure:"driver"` // postgres or memory
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	RunLog struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"runlog"`
	Automation Automation `mapstructure:"automation"`
	Notifier   struct {
		Driver       string `mapstructure:"driver"` // log, smtp or webhook
		From         string `mapstructure:"from"`
		WebhookURL   string `mapstructure:"webhook_url"`
		SMTPHost     string `mapstructure:"smtp_host"`
		SMTPPort     int    `mapstructure:"smtp_port"`
		SMTPUsername string `mapstructure:"smtp_username"`
		SMTPPassword string `mapstructure:"smtp_password"`
	} `mapstructure:"notifier"`
	Auth struct {
		OktaDomain      string `mapstructure:"okta_domain"`
		ClientID        string `mapstructure:"client_id"`
		ClientSecret    string `mapstructure:"client_secret"`
		RedirectURL     string `mapstructure:"redirect_url"`
		SwaggerClientID string `mapstructure:"swagger_client_id"`
	} `mapstructure:"auth"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// Automation tunes the automation engine scheduler and workflows.
type Automation struct {
	Autostart           bool          `mapstructure:"autostart"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	FollowUpInterval    time.Duration `mapstructure:"follow_up_interval"`
	MilestoneInterval   time.Duration `mapstructure:"milestone_interval"`
	RescoringInterval   time.Duration `mapstructure:"rescoring_interval"`
	CampaignInterval    time.Duration `mapstructure:"campaign_interval"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
	RevenuePerLead      float64       `mapstructure:"revenue_per_lead"`
	CompanyName         string        `mapstructure:"company_name"`
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// LoadConfig loads the configuration from a file and the environment.
// An empty path searches for config.yaml in . and ./config; a missing file
// leaves the defaults in place.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// normalize OKTA issuer url (strip trailing slash if any)
	config.Auth.OktaDomain = normalizeOktaIssuer(config.Auth.OktaDomain)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "DEV")
	v.SetDefault("dev_mode_bypass", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "crm")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "crm")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("runlog.path", "data/runs.db")

	v.SetDefault("automation.autostart", true)
	v.SetDefault("automation.poll_interval", time.Minute)
	v.SetDefault("automation.follow_up_interval", 5*time.Minute)
	v.SetDefault("automation.milestone_interval", 10*time.Minute)
	v.SetDefault("automation.rescoring_interval", 30*time.Minute)
	v.SetDefault("automation.campaign_interval", time.Hour)
	v.SetDefault("automation.maintenance_interval", 24*time.Hour)
	v.SetDefault("automation.revenue_per_lead", 5000.0)
	v.SetDefault("automation.company_name", "Premier Realty Group")

	v.SetDefault("notifier.driver", "log")
	v.SetDefault("notifier.from", "automation@localhost")
	v.SetDefault("notifier.smtp_host", "")
	v.SetDefault("notifier.smtp_port", 587)
	v.SetDefault("notifier.smtp_username", "")
	v.SetDefault("notifier.smtp_password", "")
	v.SetDefault("notifier.webhook_url", "")

	// registered so CRM_AUTH_* and CRM_TLS_* reach Unmarshal without a file
	v.SetDefault("auth.okta_domain", "")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.redirect_url", "")
	v.SetDefault("auth.swagger_client_id", "")

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.cert_file", "certs/server.crt")
	v.SetDefault("tls.key_file", "certs/server.key")
	v.SetDefault("tls.hostnames", []string{"localhost", "127.0.0.1"})
}

func (c *Config) validate() error {
	var problems []string

	switch c.DB.Driver {
	case "postgres", "memory":
	default:
		problems = append(problems, fmt.Sprintf("db.driver %q must be postgres or memory", c.DB.Driver))
	}
	switch c.Notifier.Driver {
	case "log":
	case "smtp":
		if c.Notifier.SMTPHost == "" {
			problems = append(problems, "notifier.smtp_host is required for the smtp driver")
		}
	case "webhook":
		if c.Notifier.WebhookURL == "" {
			problems = append(problems, "notifier.webhook_url is required for the webhook driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("notifier.driver %q must be log, smtp or webhook", c.Notifier.Driver))
	}
	if c.Automation.PollInterval <= 0 {
		problems = append(problems, "automation.poll_interval must be positive")
	}
	if c.Automation.RevenuePerLead < 0 {
		problems = append(problems, "automation.revenue_per_lead must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// normalizeOktaIssuer ensures the provided Okta issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact.
func normalizeOktaIssuer(input string) string {
	iss := strings.TrimSpace(input)
	return strings.TrimRight(iss, "/")
}
