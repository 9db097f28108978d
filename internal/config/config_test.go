package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: memory
automation:
  follow_up_interval: 2m
  company_name: Acme Homes
auth:
  okta_domain: https://acme.okta.com/oauth2/default/
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Automation.FollowUpInterval)
	assert.Equal(t, 10*time.Minute, cfg.Automation.MilestoneInterval)
	assert.Equal(t, time.Minute, cfg.Automation.PollInterval)
	assert.Equal(t, 5000.0, cfg.Automation.RevenuePerLead)
	assert.Equal(t, "Acme Homes", cfg.Automation.CompanyName)
	assert.Equal(t, "https://acme.okta.com/oauth2/default", cfg.Auth.OktaDomain)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "db:\n  driver: memory\n")
	t.Setenv("CRM_HTTP_ADDR", ":9090")
	t.Setenv("CRM_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: mongo
notifier:
  driver: smtp
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.driver")
	assert.Contains(t, err.Error(), "notifier.smtp_host")
}

func TestLoadConfig_WebhookNeedsURL(t *testing.T) {
	path := writeConfig(t, "notifier:\n  driver: webhook\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notifier.webhook_url")

	t.Setenv("CRM_NOTIFIER_WEBHOOK_URL", "http://relay.local/send")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://relay.local/send", cfg.Notifier.WebhookURL)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Host = "db"
	cfg.DB.Port = 5432
	cfg.DB.User = "u"
	cfg.DB.Password = "p"
	cfg.DB.Name = "crm"
	cfg.DB.SSLMode = "disable"
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=crm sslmode=disable", cfg.DSN())
}
