package lifeline

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/viper"

	"github.com/bloodbridge/lifeline/domain"
)

// WithConfigDir configures the gateway to use the specified configuration
// directory. It creates the directory if it doesn't exist and initializes the
// configuration file using Viper. Settings already set by earlier options are
// not overwritten by the file.
func WithConfigDir(appConfigDir string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		_, err := os.ReadDir(appConfigDir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Println("[*] creating config dir")
				err := os.MkdirAll(appConfigDir, 0700)
				if err != nil {
					return fmt.Errorf("creating config dir %s: %w", appConfigDir, err)
				}
			} else {
				return fmt.Errorf("checking if directory exists %s: %w", appConfigDir, err)
			}
		}
		// At this point, the directory exists or was created successfully
		gateway.ConfigDir = appConfigDir

		// VIPER
		v := viper.New()
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appConfigDir)
		v.SetDefault("version", "v1.0.0")
		v.SetDefault("api_prefix", DefaultAPIPrefix)
		v.SetDefault("default_address", "127.0.0.1")
		v.SetDefault("default_port", "8080")
		err = v.ReadInConfig()
		if err != nil {
			// need to check if the error is config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Config file is not found
				err = v.SafeWriteConfig()
				if err != nil {
					return fmt.Errorf("writing config file : %w", err)
				}
			} else {
				return fmt.Errorf("reading config file : %w", err)
			}
		}
		config := &Config{viper: v}
		if err := v.Unmarshal(config); err != nil {
			return fmt.Errorf("unmarshalling config to struct : %w", err)
		}
		config.ConfigDir = appConfigDir
		gateway.Config = config

		if gateway.Version == "" {
			gateway.Version = config.Version
		}
		if len(gateway.Manifest) == 0 {
			gateway.Manifest = config.Manifest
		}
		if gateway.OfflinePage == "" {
			gateway.OfflinePage = config.OfflinePage
		}
		if config.APIPrefix != "" {
			gateway.Classifier.APIPrefix = config.APIPrefix
		}

		// Rewrite entire file from struct
		err = v.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config after unmarshalling : %w", err)
		}
		return nil
	}
}

// WithRepo will take the gateway Repository interface, closing any repository
// configured before it.
func WithRepo(repo Repository) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if gateway.Repo != nil {
			if err := gateway.Repo.Close(); err != nil {
				return err
			}
		}
		gateway.Repo = repo
		return nil
	}
}

// WithVersion sets the build version tag. The static generation for this
// version is named after it.
func WithVersion(version string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if version == "" {
			return errors.New("version cannot be empty")
		}
		gateway.Version = version
		return nil
	}
}

// WithManifest sets the asset URLs pre-warmed into the static generation at
// install.
func WithManifest(urls ...string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		gateway.Manifest = urls
		return nil
	}
}

// WithOfflinePage sets the URL served as a substitute when a static asset is
// neither cached nor fetchable. The URL should be part of the manifest so the
// substitute is available offline.
func WithOfflinePage(url string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		gateway.OfflinePage = url
		return nil
	}
}

// WithOrigin restricts classification to the application origin. Requests to
// any other host bypass the cache layer.
func WithOrigin(origin string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		gateway.Classifier.Origin = origin
		return nil
	}
}

// WithAPIPrefix overrides the path prefix marking API-like requests.
func WithAPIPrefix(prefix string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if prefix == "" {
			return errors.New("api prefix cannot be empty")
		}
		gateway.Classifier.APIPrefix = prefix
		return nil
	}
}

// WithSyncTag marks mutations under the path prefix as deferrable under the
// given tag. Failed mutations for the prefix are queued and replayed on the
// tag's sync trigger.
func WithSyncTag(prefix string, tag string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if prefix == "" || tag == "" {
			return errors.New("sync tag requires a prefix and a tag")
		}
		gateway.Classifier.AddTagRule(prefix, tag)
		return nil
	}
}

// WithClient overrides the HTTP client used for all live fetches.
func WithClient(client *http.Client) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if client == nil {
			return errors.New("client cannot be nil")
		}
		gateway.Client = client
		return nil
	}
}

// WithAlerter sets the surface that displays push notifications.
func WithAlerter(alerter Alerter) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if gateway.Dispatcher == nil {
			gateway.Dispatcher = &Dispatcher{}
		}
		gateway.Dispatcher.Alerter = alerter
		return nil
	}
}

// WithWindowRegistry sets the registry used to focus or open client windows
// on notification clicks.
func WithWindowRegistry(windows WindowRegistry) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if gateway.Dispatcher == nil {
			gateway.Dispatcher = &Dispatcher{}
		}
		gateway.Dispatcher.Windows = windows
		return nil
	}
}

// WithAlertIcons sets the icon and badge attached to displayed alerts.
func WithAlertIcons(icon string, badge string) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if gateway.Dispatcher == nil {
			gateway.Dispatcher = &Dispatcher{}
		}
		gateway.Dispatcher.Icon = icon
		gateway.Dispatcher.Badge = badge
		return nil
	}
}

// WithLogHandler takes a handler function that will be executed on each Log
func WithLogHandler(handler func(log domain.Log) error) func(*Gateway) error {
	return func(gateway *Gateway) error {
		if gateway.OnLog != nil {
			return errors.New("gateway already has a log handler defined")
		}
		gateway.OnLog = handler
		return nil
	}
}
