package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// GenerateTemplateConfig returns a starter configuration and optionally
// writes it to config.yaml in the working directory.
func GenerateTemplateConfig(writeToFile bool) (Config, error) {
	cfg := Config{
		BindAddress: "127.0.0.1",
		Port:        8089,

		LogLevel: "info",

		CacheSize: 1024,
		CacheTTL:  30 * time.Second,

		Ban: BanConfig{
			Enabled:   false,
			Threshold: 10,
			Timeout:   time.Hour,
			Port:      1935,
		},

		Vhosts: []Vhost{
			{
				Name: DefaultVhost,
				Security: SecurityConfig{
					Enabled: true,
					Rules: []Rule{
						{Action: "allow", Operation: "play", Target: "all"},
						{Action: "deny", Operation: "publish", Target: "all"},
						{Action: "allow", Operation: "publish", Target: "127.0.0.1"},
					},
				},
			},
		},
	}

	if writeToFile {
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return Config{}, fmt.Errorf("failed to marshal template config to YAML: %w", err)
		}
		if err := os.WriteFile("config.yaml", data, 0644); err != nil {
			return Config{}, fmt.Errorf("failed to write template config to file: %w", err)
		}
	}
	return cfg, nil
}
