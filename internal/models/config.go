// Package models provides shared data structures used across the ibgw application
package models

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Settings holds everything interpolated into the gateway task definition:
// IB credentials, trading behaviour, and container sizing. Loaded once at
// startup from a TOML file, with credentials overridable via environment.
type Settings struct {
	UserID             string `toml:"user_id"`
	Password           string `toml:"password"`
	TradingMode        string `toml:"trading_mode"` // "paper" or "live"
	ReadOnlyAPI        bool   `toml:"read_only_api"`
	VNCPassword        string `toml:"vnc_password"`
	TwoFATimeoutAction string `toml:"twofa_timeout_action"` // "restart" or "exit"
	AutoRestartTime    string `toml:"auto_restart_time"`    // "HH:MM AM/PM", empty to disable
	TimeZone           string `toml:"time_zone"`
	Image              string `toml:"image"`
	CPU                string `toml:"cpu"`    // Fargate CPU units, e.g. "1024"
	Memory             string `toml:"memory"` // MiB, e.g. "2048"
}

const (
	// EnvUserID and EnvPassword override the settings file when set, so
	// credentials never have to live on disk.
	EnvUserID   = "IBGW_USERID"
	EnvPassword = "IBGW_PASSWORD"

	defaultImage  = "ghcr.io/gnzsnz/ib-gateway:stable"
	defaultCPU    = "1024"
	defaultMemory = "2048"
)

var autoRestartPattern = regexp.MustCompile(`^(0?[1-9]|1[0-2]):[0-5][0-9] (AM|PM)$`)

// LoadSettings reads the settings file, applies environment overrides and
// defaults, and validates the result.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{}
	if _, err := toml.DecodeFile(path, s); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("settings file '%s' not found (copy ibgw.example.toml and fill it in)", path)
		}
		return nil, fmt.Errorf("failed to parse settings file '%s': %w", path, err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ApplyDefaults fills environment overrides and defaults for optional fields.
func (s *Settings) ApplyDefaults() {
	if v := os.Getenv(EnvUserID); v != "" {
		s.UserID = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		s.Password = v
	}
	if s.TradingMode == "" {
		s.TradingMode = "paper"
	}
	if s.TwoFATimeoutAction == "" {
		s.TwoFATimeoutAction = "restart"
	}
	if s.TimeZone == "" {
		s.TimeZone = "Etc/UTC"
	}
	if s.Image == "" {
		s.Image = defaultImage
	}
	if s.CPU == "" {
		s.CPU = defaultCPU
	}
	if s.Memory == "" {
		s.Memory = defaultMemory
	}
}

// Validate checks the settings against what the gateway container accepts.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ValidationError{Field: "user_id", Message: "IB user ID is required (file or " + EnvUserID + ")"}
	}
	if s.Password == "" {
		return ValidationError{Field: "password", Message: "IB password is required (file or " + EnvPassword + ")"}
	}
	switch s.TradingMode {
	case "paper", "live":
	default:
		return ValidationError{Field: "trading_mode", Message: "must be 'paper' or 'live'"}
	}
	switch s.TwoFATimeoutAction {
	case "restart", "exit":
	default:
		return ValidationError{Field: "twofa_timeout_action", Message: "must be 'restart' or 'exit'"}
	}
	if s.AutoRestartTime != "" && !autoRestartPattern.MatchString(s.AutoRestartTime) {
		return ValidationError{Field: "auto_restart_time", Message: "must look like '11:59 PM'"}
	}
	return nil
}
