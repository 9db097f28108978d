package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-crm/backend/internal/config"
	"realestate-crm/backend/internal/logging"
	"realestate-crm/backend/internal/notify"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "db:\n  driver: memory\nrunlog:\n  path: " + filepath.Join(dir, "runs.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestWorkflowsCommand(t *testing.T) {
	out, err := runCmd(t, "workflows", "--config", writeConfig(t))
	require.NoError(t, err)

	assert.Contains(t, out, "WORKFLOW")
	assert.Contains(t, out, "new_lead")
	assert.Contains(t, out, "hot_lead_identified")
	assert.Contains(t, out, "daily_report_generation")
	assert.Contains(t, out, "milestone_overdue")
}

func TestScanCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := runCmd(t, "scan", "lead_follow_ups", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "lead_follow_ups: 0 processed")

	_, err = runCmd(t, "scan", "defragment", "--config", path)
	assert.Error(t, err)
}

func TestIntervals(t *testing.T) {
	in := intervals(config.Automation{PollInterval: 30 * time.Second, RescoringInterval: time.Minute})

	assert.Equal(t, 30*time.Second, in.Poll)
	assert.Equal(t, time.Minute, in.Rescoring)
	assert.Equal(t, 5*time.Minute, in.FollowUp, "unset cadences keep their defaults")
	assert.Equal(t, 24*time.Hour, in.Maintenance)
}

func TestNewSender(t *testing.T) {
	cfg := &config.Config{}
	logger := logging.Discard()

	cfg.Notifier.Driver = "log"
	assert.IsType(t, notify.LogSender{}, newSender(cfg, logger))

	cfg.Notifier.Driver = "smtp"
	cfg.Notifier.SMTPHost = "smtp.example.com"
	assert.IsType(t, &notify.SMTPSender{}, newSender(cfg, logger))

	cfg.Notifier.Driver = "webhook"
	cfg.Notifier.WebhookURL = "http://hooks.example.com/mail"
	assert.IsType(t, &notify.WebhookSender{}, newSender(cfg, logger))
}
