// conf/config.go
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings holds the full configuration tree for the console process.
type Settings struct {
	Debug bool // true to enable debug mode

	Main struct {
		Name string // node name; no package reads it
		Log  LogConfig
	}

	Server struct {
		Listen         string // HTTP bind address, e.g. ":8090"
		ShutdownGrace  string // graceful shutdown timeout, parsed as time.Duration
		ReadTimeout    string
		WriteTimeout   string
	}

	Storage struct {
		CueListPath    string // path to the cue-list/catalog JSON file
		BreakpointPath string // path to the breakpoints JSON file
	}

	Audio struct {
		SFXChannels    int     // number of concurrent SFX voices
		DefaultVolume  float64 // initial BGM/SFX volume, 0.0-3.0
		OutputDevice   string  // portaudio device name, "" for system default
		SampleRate     int
	}

	Silence struct {
		TickInterval string // scheduler poll interval, parsed as time.Duration
	}

	Priority struct {
		LocalPriorityDefault bool // initial value of the local/remote arbiter flag
	}

	MQTT struct {
		Enabled  bool
		Broker   string // tcp://host:port
		Topic    string
		Username string
		Password string
		ClientID string
	}

	Metrics struct {
		Enabled bool
		Listen  string
	}
}

// LogConfig defines the configuration for a log file.
type LogConfig struct {
	Enabled     bool
	Path        string
	Rotation    RotationType
	MaxSize     int64 // bytes, converted to MB for lumberjack
	MaxBackups  int
	MaxAgeDays  int
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the embedded defaults, a user config file (if present), and
// environment overrides into a Settings value.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("SHOWCONSOLE")
	viper.AutomaticEnv()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := mergeEmbeddedDefaults(); err != nil {
		return fmt.Errorf("error merging embedded defaults: %w", err)
	}

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No user config file on disk yet; embedded defaults already loaded.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// mergeEmbeddedDefaults loads config.yaml from the binary itself so the
// service runs with sane defaults even with no config file on disk.
func mergeEmbeddedDefaults() error {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("reading embedded config: %w", err)
	}
	defaultViper := viper.New()
	defaultViper.SetConfigType("yaml")
	if err := defaultViper.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("parsing embedded config: %w", err)
	}
	return viper.MergeConfigMap(defaultViper.AllSettings())
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings persists the current in-memory settings back to the config file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	settingsMap, err := structToMap(settingsInstance)
	if err != nil {
		return fmt.Errorf("error converting settings to map: %w", err)
	}
	if err := viper.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("error merging settings with viper: %w", err)
	}
	return viper.WriteConfig()
}

// Setting returns the current settings, lazily loading defaults on first call.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// structToMap round-trips a Settings value through YAML to obtain the
// map[string]any shape viper.MergeConfigMap expects.
func structToMap(s *Settings) (map[string]any, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling settings: %w", err)
	}
	m := make(map[string]any)
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling settings into map: %w", err)
	}
	return m, nil
}
