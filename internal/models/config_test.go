package models

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ibgw.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings_DefaultsApplied(t *testing.T) {
	path := writeSettings(t, `
user_id = "testuser"
password = "secret"
`)
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.TradingMode != "paper" {
		t.Errorf("TradingMode = %q, want paper", s.TradingMode)
	}
	if s.CPU != "1024" || s.Memory != "2048" {
		t.Errorf("sizing defaults = %s/%s, want 1024/2048", s.CPU, s.Memory)
	}
	if s.Image == "" {
		t.Error("expected default image")
	}
	if s.TwoFATimeoutAction != "restart" {
		t.Errorf("TwoFATimeoutAction = %q, want restart", s.TwoFATimeoutAction)
	}
}

func TestLoadSettings_EnvOverridesFile(t *testing.T) {
	path := writeSettings(t, `
user_id = "fileuser"
password = "filepass"
`)
	t.Setenv(EnvUserID, "envuser")
	t.Setenv(EnvPassword, "envpass")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.UserID != "envuser" || s.Password != "envpass" {
		t.Errorf("credentials = %s/%s, want env values", s.UserID, s.Password)
	}
}

func TestLoadSettings_MissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing settings file")
	}
}

func TestSettingsValidate(t *testing.T) {
	base := func() *Settings {
		s := &Settings{UserID: "u", Password: "p"}
		s.ApplyDefaults()
		return s
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"valid defaults", func(s *Settings) {}, false},
		{"live mode", func(s *Settings) { s.TradingMode = "live" }, false},
		{"missing user", func(s *Settings) { s.UserID = " " }, true},
		{"missing password", func(s *Settings) { s.Password = "" }, true},
		{"bad trading mode", func(s *Settings) { s.TradingMode = "demo" }, true},
		{"bad 2fa action", func(s *Settings) { s.TwoFATimeoutAction = "reboot" }, true},
		{"restart time ok", func(s *Settings) { s.AutoRestartTime = "11:59 PM" }, false},
		{"restart time 24h rejected", func(s *Settings) { s.AutoRestartTime = "23:59" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
