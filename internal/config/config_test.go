package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Database: DatabaseConfig{
			Host:   "localhost",
			User:   "test",
			DBName: "test",
		},
		Graph: GraphConfig{
			TenantID:     "tenant",
			ClientID:     "client",
			ClientSecret: "secret",
		},
		Poller: PollerConfig{
			Mailbox:         "ap@example.com",
			IntervalSeconds: 60,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	invalid := &Config{Server: ServerConfig{Port: ""}}
	assert.Error(t, invalid.Validate())

	noInterval := validConfig()
	noInterval.Poller.IntervalSeconds = 0
	assert.Error(t, noInterval.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "require",
	}

	dsn := cfg.GetDSN()
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require"
	assert.Equal(t, expected, dsn)
}

func TestPollerEnabledRequiresAllValues(t *testing.T) {
	assert.True(t, validConfig().PollerEnabled())

	// Any missing value of {mailbox, tenant, client, secret} disables the
	// poller entirely.
	noMailbox := validConfig()
	noMailbox.Poller.Mailbox = ""
	assert.False(t, noMailbox.PollerEnabled())

	noTenant := validConfig()
	noTenant.Graph.TenantID = ""
	assert.False(t, noTenant.PollerEnabled())

	noClient := validConfig()
	noClient.Graph.ClientID = ""
	assert.False(t, noClient.PollerEnabled())

	noSecret := validConfig()
	noSecret.Graph.ClientSecret = ""
	assert.False(t, noSecret.PollerEnabled())
}

func TestMailboxFallsBackToSharedMailboxes(t *testing.T) {
	cfg := validConfig()
	cfg.Poller.Mailbox = ""
	cfg.Mail.SharedMailboxes = "shared@example.com, other@example.com"
	assert.Equal(t, "shared@example.com", cfg.Mailbox())
	assert.True(t, cfg.PollerEnabled())

	cfg.Mail.SharedMailboxes = ""
	assert.Equal(t, "", cfg.Mailbox())
	assert.False(t, cfg.PollerEnabled())
}

func TestSenderAllowed(t *testing.T) {
	// Comma-separated list, normalized to lower case
	mail := MailConfig{SharedMailboxes: "AP@Example.com,ops@example.com"}
	assert.True(t, mail.SenderAllowed("ap@example.com"))
	assert.True(t, mail.SenderAllowed(" Ops@Example.com "))
	assert.False(t, mail.SenderAllowed("intruder@example.com"))

	// Empty allow-list permits any sender
	open := MailConfig{}
	assert.True(t, open.SenderAllowed("anyone@example.com"))
}
