package storage

import (
	"errors"
	"testing"
	"time"
)

func TestGetString(t *testing.T) {
	config := map[string]string{"set": "value", "empty": ""}

	if got := GetString(config, "set", "def"); got != "value" {
		t.Errorf("GetString(set) = %q", got)
	}
	if got := GetString(config, "empty", "def"); got != "def" {
		t.Errorf("GetString(empty) = %q", got)
	}
	if got := GetString(config, "missing", "def"); got != "def" {
		t.Errorf("GetString(missing) = %q", got)
	}
}

func TestGetBool(t *testing.T) {
	config := map[string]string{
		"t1": "true", "t2": "1", "t3": "YES",
		"f1": "false", "f2": "0", "f3": "no",
		"bad": "maybe",
	}

	for _, key := range []string{"t1", "t2", "t3"} {
		got, err := GetBool(config, key, false)
		if err != nil || !got {
			t.Errorf("GetBool(%s) = %v, %v", key, got, err)
		}
	}
	for _, key := range []string{"f1", "f2", "f3"} {
		got, err := GetBool(config, key, true)
		if err != nil || got {
			t.Errorf("GetBool(%s) = %v, %v", key, got, err)
		}
	}

	if got, err := GetBool(config, "missing", true); err != nil || !got {
		t.Errorf("GetBool(missing) = %v, %v", got, err)
	}

	_, err := GetBool(config, "bad", false)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("GetBool(bad) = %v, want ConfigError", err)
	}
}

func TestGetInt(t *testing.T) {
	config := map[string]string{"n": "42", "bad": "forty-two"}

	if got, err := GetInt(config, "n", 0); err != nil || got != 42 {
		t.Errorf("GetInt(n) = %d, %v", got, err)
	}
	if got, err := GetInt(config, "missing", 7); err != nil || got != 7 {
		t.Errorf("GetInt(missing) = %d, %v", got, err)
	}
	if _, err := GetInt(config, "bad", 0); err == nil {
		t.Error("GetInt(bad) succeeded")
	}
}

func TestGetDuration(t *testing.T) {
	config := map[string]string{"d": "1m30s", "secs": "45", "bad": "soon"}

	if got, err := GetDuration(config, "d", 0); err != nil || got != 90*time.Second {
		t.Errorf("GetDuration(d) = %v, %v", got, err)
	}
	if got, err := GetDuration(config, "secs", 0); err != nil || got != 45*time.Second {
		t.Errorf("GetDuration(secs) = %v, %v", got, err)
	}
	if got, err := GetDuration(config, "missing", time.Minute); err != nil || got != time.Minute {
		t.Errorf("GetDuration(missing) = %v, %v", got, err)
	}
	if _, err := GetDuration(config, "bad", 0); err == nil {
		t.Error("GetDuration(bad) succeeded")
	}
}

func TestMergeConfig(t *testing.T) {
	defaults := map[string]string{"a": "1", "b": "2"}
	overrides := map[string]string{"b": "22", "c": "3"}

	merged := MergeConfig(defaults, overrides)
	if merged["a"] != "1" || merged["b"] != "22" || merged["c"] != "3" {
		t.Errorf("merged = %v", merged)
	}

	// Inputs stay untouched.
	if defaults["b"] != "2" {
		t.Error("MergeConfig mutated its input")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	tests := []struct {
		err  *ConfigError
		want string
	}{
		{NewConfigError("badger", "", "broken"), "badger: broken"},
		{NewConfigError("badger", "path", "cannot be empty"), "badger: path: cannot be empty"},
		{NewConfigErrorWithValue("redis", "db", "x", "must be an integer"), `redis: db="x": must be an integer`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewConfigErrorWithCause("sqlite", "path", "failed to open", cause)

	if !errors.Is(err, cause) {
		t.Error("ConfigError does not unwrap to its cause")
	}
}
