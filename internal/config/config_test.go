package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.WindowDuration != 24*time.Hour {
		t.Errorf("WindowDuration = %v, want 24h", cfg.WindowDuration)
	}
	if cfg.ExtensionDuration != 12*time.Hour {
		t.Errorf("ExtensionDuration = %v, want 12h", cfg.ExtensionDuration)
	}
	if cfg.ReminderLead != 4*time.Hour {
		t.Errorf("ReminderLead = %v, want 4h", cfg.ReminderLead)
	}
	if cfg.DecayWindow != 7*24*time.Hour {
		t.Errorf("DecayWindow = %v, want 168h", cfg.DecayWindow)
	}
	if cfg.GhostingSilence != 72*time.Hour {
		t.Errorf("GhostingSilence = %v, want 72h", cfg.GhostingSilence)
	}
	if cfg.ExpirySweepInterval != 5*time.Minute {
		t.Errorf("ExpirySweepInterval = %v, want 5m", cfg.ExpirySweepInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid, got %v", err)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("MATCH_WINDOW_DURATION", "48h")
	t.Setenv("REPUTATION_DECAY_RATE", "0.5")
	t.Setenv("GHOSTING_MIN_MESSAGES", "3")
	t.Setenv("ENABLE_SMS_NOTIFICATIONS", "true")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "not-a-duration")

	cfg := Load()

	if cfg.WindowDuration != 48*time.Hour {
		t.Errorf("WindowDuration = %v, want 48h", cfg.WindowDuration)
	}
	if cfg.DecayRate != 0.5 {
		t.Errorf("DecayRate = %v, want 0.5", cfg.DecayRate)
	}
	if cfg.GhostingMinMessages != 3 {
		t.Errorf("GhostingMinMessages = %d, want 3", cfg.GhostingMinMessages)
	}
	if !cfg.EnableSMSNotifications {
		t.Error("EnableSMSNotifications should be true")
	}
	if cfg.ExpirySweepInterval != 5*time.Minute {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.ExpirySweepInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing database", func(c *Config) { c.DatabaseURL = "" }, true},
		{"reminder lead longer than window", func(c *Config) { c.ReminderLead = 25 * time.Hour }, true},
		{"score out of range", func(c *Config) { c.HighMatchMinScore = 1.5 }, true},
		{"negative decay", func(c *Config) { c.DecayRate = -1 }, true},
		{"redis cache without url", func(c *Config) { c.FlagCacheBackend = "redis"; c.RedisURL = "" }, true},
		{"redis cache with url", func(c *Config) { c.FlagCacheBackend = "redis"; c.RedisURL = "redis://localhost:6379/0" }, false},
		{"unknown cache backend", func(c *Config) { c.FlagCacheBackend = "memcached" }, true},
		{"production default secret", func(c *Config) { c.Environment = "production" }, true},
		{"sendgrid enabled without key", func(c *Config) {
			c.EmailProvider = "sendgrid"
			c.EnableEmailNotifications = true
		}, true},
		{"twilio enabled without credentials", func(c *Config) {
			c.SMSProvider = "twilio"
			c.EnableSMSNotifications = true
		}, true},
		{"unknown sms provider", func(c *Config) { c.SMSProvider = "carrier-pigeon" }, true},
		{"push enabled without credentials", func(c *Config) { c.EnablePushNotifications = true }, true},
		{"push with inline credentials", func(c *Config) {
			c.EnablePushNotifications = true
			c.FirebaseCredentialsJSON = `{"type":"service_account"}`
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
