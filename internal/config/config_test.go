package config

import (
	"errors"
	"testing"
	"time"
)

// setBase sets the API identity every valid config needs.
func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("API_ID", "12345")
	t.Setenv("API_HASH", "hash")
	t.Setenv("SESSION_STRING", "")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "")
}

func TestLoad_UserMode(t *testing.T) {
	setBase(t)
	t.Setenv("SESSION_STRING", "session")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode() != ModeUser {
		t.Errorf("Mode() = %q, want %q", cfg.Mode(), ModeUser)
	}
	if cfg.TGApiID != 12345 {
		t.Errorf("TGApiID = %d, want 12345", cfg.TGApiID)
	}
}

func TestLoad_BotMode(t *testing.T) {
	setBase(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "777000111")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mode() != ModeBot {
		t.Errorf("Mode() = %q, want %q", cfg.Mode(), ModeBot)
	}
	if cfg.AdminID != 777000111 {
		t.Errorf("AdminID = %d, want 777000111", cfg.AdminID)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"no api", map[string]string{"API_ID": "", "SESSION_STRING": "s"}, ErrMissingAPI},
		{"no credential", map[string]string{}, ErrNoCredential},
		{"both credentials", map[string]string{"SESSION_STRING": "s", "BOT_TOKEN": "t", "ADMIN_ID": "1"}, ErrTwoCredentials},
		{"bot without admin", map[string]string{"BOT_TOKEN": "t"}, ErrMissingAdmin},
		{"negative pacing", map[string]string{"SESSION_STRING": "s", "INVITE_DELAY": "-1s"}, ErrNegativePacing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBase(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad_PacingDefaults(t *testing.T) {
	setBase(t)
	t.Setenv("SESSION_STRING", "session")
	t.Setenv("INVITE_DELAY", "")
	t.Setenv("FLOOD_COOLDOWN", "")
	t.Setenv("ERROR_DELAY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InviteDelay != 2*time.Second {
		t.Errorf("InviteDelay = %v, want 2s", cfg.InviteDelay)
	}
	if cfg.FloodCooldown != 60*time.Second {
		t.Errorf("FloodCooldown = %v, want 60s", cfg.FloodCooldown)
	}
	if cfg.ErrorDelay != time.Second {
		t.Errorf("ErrorDelay = %v, want 1s", cfg.ErrorDelay)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "90")
	if got := getEnvDuration("TEST_DURATION", 0); got != 90*time.Second {
		t.Errorf("bare seconds: got %v, want 90s", got)
	}

	t.Setenv("TEST_DURATION", "250ms")
	if got := getEnvDuration("TEST_DURATION", 0); got != 250*time.Millisecond {
		t.Errorf("go duration: got %v, want 250ms", got)
	}

	t.Setenv("TEST_DURATION", "soon")
	if got := getEnvDuration("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("invalid value: got %v, want default 1m", got)
	}
}
