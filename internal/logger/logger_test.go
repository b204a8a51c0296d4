package logger

import "testing"

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "docker", "local", "dev"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Errorf("NewLogger(%q): %v", env, err)
			continue
		}
		_ = l.Sync()
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	if _, err := NewLogger("prod", "warn"); err != nil {
		t.Errorf("valid override: %v", err)
	}
	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
