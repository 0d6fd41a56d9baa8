package lifeline

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the persisted gateway settings, backed by a viper config file
// in the configuration directory.
type Config struct {
	viper          *viper.Viper
	ConfigDir      string   `mapstructure:"config_dir"`      // Current config dir
	Version        string   `mapstructure:"version"`         // Build version tag for the static generation
	APIPrefix      string   `mapstructure:"api_prefix"`      // Path prefix marking API-like requests
	OfflinePage    string   `mapstructure:"offline_page"`    // URL of the offline substitute resource
	Manifest       []string `mapstructure:"manifest"`        // Static asset URLs pre-warmed at install
	DefaultAddress string   `mapstructure:"default_address"` // Listener address
	DefaultPort    string   `mapstructure:"default_port"`    // Listener port
}

// SetVersion persists a new build version. The next install builds a static
// generation under the new version; the running generation is untouched
// until activation.
func (cfg *Config) SetVersion(version string) error {
	cfg.Version = version
	cfg.viper.Set("version", version)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	if err := cfg.viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}

// SetManifest persists the asset manifest for the next install.
func (cfg *Config) SetManifest(urls []string) error {
	cfg.Manifest = urls
	cfg.viper.Set("manifest", urls)
	if err := cfg.viper.WriteConfig(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	if err := cfg.viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	return nil
}
