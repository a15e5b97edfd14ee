package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sunbk201/mediagate/internal/security"
)

// DefaultVhost is the catch-all vhost consulted when no configured vhost
// matches the requested name, mirroring the convention of the streaming
// servers mediagate sits in front of.
const DefaultVhost = "__defaultVhost__"

type Config struct {
	BindAddress string `mapstructure:"bind-address" yaml:"bind-address" validate:"required"`
	Port        int    `mapstructure:"port" yaml:"port" validate:"gte=1,lte=65535"`
	LogLevel    string `mapstructure:"log-level" yaml:"log-level"`

	// APISecret, when set, is required as a bearer token on every API call.
	APISecret string `mapstructure:"api-secret" yaml:"api-secret,omitempty"`

	// StatsDumpFile overrides the default decision-stats dump location.
	StatsDumpFile string `mapstructure:"stats-dump-file" yaml:"stats-dump-file,omitempty"`

	// CacheSize and CacheTTL bound the verdict cache. A TTL of zero disables
	// caching entirely.
	CacheSize int           `mapstructure:"cache-size" yaml:"cache-size"`
	CacheTTL  time.Duration `mapstructure:"cache-ttl" yaml:"cache-ttl"`

	Ban    BanConfig `mapstructure:"ban" yaml:"ban"`
	Vhosts []Vhost   `mapstructure:"vhosts" yaml:"vhosts" validate:"dive"`
}

// BanConfig controls kernel-level banning of repeatedly denied addresses.
type BanConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Threshold is the number of denials for one address before it is banned.
	Threshold int `mapstructure:"threshold" yaml:"threshold" validate:"omitempty,gte=1"`

	// Timeout is how long a ban lasts.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// Port is the streaming ingress port the drop rule applies to.
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,gte=1,lte=65535"`
}

type Vhost struct {
	Name     string         `mapstructure:"name" yaml:"name" validate:"required"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
}

type SecurityConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Rules is nil when the config file has no rules key for the vhost,
	// which is not the same thing as an empty list: no rules at all means
	// default deny, while an explicitly empty list is evaluated normally.
	Rules []Rule `mapstructure:"rules" yaml:"rules"`
}

// Rule is one ordered allow/deny entry. Operation is free-form on purpose: a
// rule scoped to anything other than play or publish never matches, it is
// not a config error.
type Rule struct {
	Action    string `mapstructure:"action" yaml:"action" validate:"required,oneof=allow deny"`
	Operation string `mapstructure:"operation" yaml:"operation" validate:"required"`
	Target    string `mapstructure:"target" yaml:"target" validate:"required"`
}

// BuildConfigFromViper assembles and validates a Config from whatever viper
// currently holds (defaults, env, merged config files, bound flags).
func BuildConfigFromViper() (*Config, error) {
	var cfg Config
	err := viper.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	for _, v := range cfg.Vhosts {
		for i := range v.Security.Rules {
			if err := validate.Struct(&v.Security.Rules[i]); err != nil {
				return nil, fmt.Errorf("vhost %s rule %d: %w", v.Name, i, err)
			}
		}
	}

	seen := make(map[string]struct{}, len(cfg.Vhosts))
	for _, v := range cfg.Vhosts {
		if _, dup := seen[v.Name]; dup {
			return nil, fmt.Errorf("duplicate vhost %q", v.Name)
		}
		seen[v.Name] = struct{}{}
	}

	return &cfg, nil
}

// Vhost returns the configuration for name, falling back to the
// __defaultVhost__ entry, or nil when neither exists.
func (c *Config) Vhost(name string) *Vhost {
	var def *Vhost
	for i := range c.Vhosts {
		switch c.Vhosts[i].Name {
		case name:
			return &c.Vhosts[i]
		case DefaultVhost:
			def = &c.Vhosts[i]
		}
	}
	return def
}

// RuleSet converts the configured rules into the evaluator's directive list.
// It returns nil when the vhost has no rules configured at all.
func (s *SecurityConfig) RuleSet() *security.RuleSet {
	if s.Rules == nil {
		return nil
	}
	directives := make([]security.Directive, 0, len(s.Rules))
	for _, r := range s.Rules {
		directives = append(directives, security.Directive{
			Action:    security.Action(r.Action),
			Operation: r.Operation,
			Target:    r.Target,
		})
	}
	return &security.RuleSet{Directives: directives}
}

func (c *Config) LogValue() slog.Value {
	secured := 0
	rules := 0
	for _, v := range c.Vhosts {
		if v.Security.Enabled {
			secured++
		}
		rules += len(v.Security.Rules)
	}
	return slog.GroupValue(
		slog.String("Log Level", c.LogLevel),
		slog.String("Listen Address", fmt.Sprintf("%s:%d", c.BindAddress, c.Port)),
		slog.Int("Vhosts", len(c.Vhosts)),
		slog.Int("Secured Vhosts", secured),
		slog.Int("Rules", rules),
		slog.Bool("Ban", c.Ban.Enabled),
		slog.Duration("Cache TTL", c.CacheTTL),
	)
}
