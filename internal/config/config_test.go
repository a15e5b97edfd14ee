package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// resetViper resets viper global state and sets the required defaults to
// mirror what initConfig() in cmd/root.go does.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	viper.SetDefault("bind-address", "127.0.0.1")
	viper.SetDefault("port", 8089)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("cache-size", 1024)
	viper.SetDefault("cache-ttl", "30s")
	viper.SetDefault("ban.threshold", 10)
	viper.SetDefault("ban.timeout", "1h")
	viper.SetDefault("ban.port", 1935)
}

// writeConfigFile writes YAML content to a temp file and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// loadConfigFile merges a YAML config file into viper.
func loadConfigFile(t *testing.T, path string) {
	t.Helper()
	viper.SetConfigFile(path)
	if err := viper.MergeInConfig(); err != nil {
		t.Fatalf("failed to merge config file: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	resetViper(t)

	cfg, err := BuildConfigFromViper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"BindAddress", cfg.BindAddress, "127.0.0.1"},
		{"Port", cfg.Port, 8089},
		{"LogLevel", cfg.LogLevel, "info"},
		{"CacheSize", cfg.CacheSize, 1024},
		{"CacheTTL", cfg.CacheTTL, 30 * time.Second},
		{"Ban.Enabled", cfg.Ban.Enabled, false},
		{"Ban.Threshold", cfg.Ban.Threshold, 10},
		{"Ban.Timeout", cfg.Ban.Timeout, time.Hour},
		{"Ban.Port", cfg.Ban.Port, 1935},
		{"Vhosts", len(cfg.Vhosts), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestConfigFromFile(t *testing.T) {
	resetViper(t)

	yaml := `
bind-address: 0.0.0.0
port: 9090
log-level: DEBUG
api-secret: hunter2
cache-ttl: 2m
ban:
  enabled: true
  threshold: 5
  timeout: 30m
  port: 1935
vhosts:
  - name: live.example.com
    security:
      enabled: true
      rules:
        - action: allow
          operation: play
          target: all
        - action: deny
          operation: publish
          target: 203.0.113.0/24
  - name: __defaultVhost__
    security:
      enabled: false
`
	path := writeConfigFile(t, yaml)
	loadConfigFile(t, path)

	cfg, err := BuildConfigFromViper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.BindAddress != "0.0.0.0" {
		t.Errorf("BindAddress = %v, want 0.0.0.0", cfg.BindAddress)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %v, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug (normalized)", cfg.LogLevel)
	}
	if cfg.APISecret != "hunter2" {
		t.Errorf("APISecret = %v, want hunter2", cfg.APISecret)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v, want 2m", cfg.CacheTTL)
	}
	if !cfg.Ban.Enabled || cfg.Ban.Threshold != 5 || cfg.Ban.Timeout != 30*time.Minute {
		t.Errorf("Ban = %+v", cfg.Ban)
	}

	if len(cfg.Vhosts) != 2 {
		t.Fatalf("Vhosts count = %d, want 2", len(cfg.Vhosts))
	}

	v := cfg.Vhosts[0]
	if v.Name != "live.example.com" || !v.Security.Enabled {
		t.Errorf("Vhost[0] = %+v", v)
	}
	if len(v.Security.Rules) != 2 {
		t.Fatalf("Rules count = %d, want 2", len(v.Security.Rules))
	}
	r0 := v.Security.Rules[0]
	if r0.Action != "allow" || r0.Operation != "play" || r0.Target != "all" {
		t.Errorf("Rule[0] = %+v", r0)
	}
	r1 := v.Security.Rules[1]
	if r1.Action != "deny" || r1.Operation != "publish" || r1.Target != "203.0.113.0/24" {
		t.Errorf("Rule[1] = %+v", r1)
	}
}

func TestInvalidRuleAction(t *testing.T) {
	resetViper(t)

	yaml := `
vhosts:
  - name: live.example.com
    security:
      enabled: true
      rules:
        - action: block
          operation: play
          target: all
`
	path := writeConfigFile(t, yaml)
	loadConfigFile(t, path)

	if _, err := BuildConfigFromViper(); err == nil {
		t.Fatal("expected error for action=block, got none")
	}
}

func TestMissingRuleTarget(t *testing.T) {
	resetViper(t)

	yaml := `
vhosts:
  - name: live.example.com
    security:
      enabled: true
      rules:
        - action: deny
          operation: play
`
	path := writeConfigFile(t, yaml)
	loadConfigFile(t, path)

	if _, err := BuildConfigFromViper(); err == nil {
		t.Fatal("expected error for missing target, got none")
	}
}

func TestDuplicateVhost(t *testing.T) {
	resetViper(t)

	yaml := `
vhosts:
  - name: live.example.com
  - name: live.example.com
`
	path := writeConfigFile(t, yaml)
	loadConfigFile(t, path)

	if _, err := BuildConfigFromViper(); err == nil {
		t.Fatal("expected error for duplicate vhost, got none")
	}
}

func TestVhostLookup(t *testing.T) {
	cfg := &Config{Vhosts: []Vhost{
		{Name: "live.example.com"},
		{Name: DefaultVhost},
	}}

	if v := cfg.Vhost("live.example.com"); v == nil || v.Name != "live.example.com" {
		t.Errorf("exact lookup = %+v", v)
	}
	if v := cfg.Vhost("other.example.com"); v == nil || v.Name != DefaultVhost {
		t.Errorf("fallback lookup = %+v", v)
	}

	cfg = &Config{Vhosts: []Vhost{{Name: "live.example.com"}}}
	if v := cfg.Vhost("other.example.com"); v != nil {
		t.Errorf("lookup without default = %+v, want nil", v)
	}
}

func TestRuleSetNilVsEmpty(t *testing.T) {
	// No rules key at all: the evaluator must see an absent ruleset.
	s := SecurityConfig{Enabled: true}
	if rs := s.RuleSet(); rs != nil {
		t.Errorf("RuleSet() = %+v, want nil for absent rules", rs)
	}

	// Explicitly empty list: present ruleset with zero directives.
	s = SecurityConfig{Enabled: true, Rules: []Rule{}}
	rs := s.RuleSet()
	if rs == nil {
		t.Fatal("RuleSet() = nil, want non-nil for empty rules list")
	}
	if len(rs.Directives) != 0 {
		t.Errorf("Directives = %d, want 0", len(rs.Directives))
	}
}

func TestGenerateTemplateConfig(t *testing.T) {
	cfg, err := GenerateTemplateConfig(false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Vhosts) == 0 || cfg.Vhosts[0].Name != DefaultVhost {
		t.Errorf("template vhosts = %+v", cfg.Vhosts)
	}
	if len(cfg.Vhosts[0].Security.Rules) == 0 {
		t.Error("template vhost has no rules")
	}
}
