package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tcriess/lightspeed-code/globals"
)

const (
	defaultAddr          = ":8000"
	defaultHistorySize   = 50
	defaultIdleRooms     = 64
	defaultMaxFileSize   = 5 * 1024 * 1024
	defaultMaxRoomSize   = 32 * 1024 * 1024
	defaultFlushSpec     = "@every 30s"
	defaultExecTimeout   = 10 * time.Second
	defaultAITimeout     = 60 * time.Second
	defaultAutosaveDelay = 1500 * time.Millisecond
	defaultReconnectMax  = 30 * time.Second
	defaultClientURL     = "ws://localhost:8000/ws"
)

// Config is the global configuration object which is filled via the configuration file, the environment
// (LSCODE_ prefix) and command line flags.
type Config struct {
	LogLevel          string            `mapstructure:"log_level"`
	Addr              string            `mapstructure:"addr"`
	HistoryConfig     HistoryConfig     `mapstructure:"history"`
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	RoomsConfig       RoomsConfig       `mapstructure:"rooms"`
	PluginsConfig     PluginsConfig     `mapstructure:"plugins"`
	ExecutionConfig   TimeoutConfig     `mapstructure:"execution"`
	AIConfig          TimeoutConfig     `mapstructure:"ai"`
	ClientConfig      ClientConfig      `mapstructure:"client"`
	SnippetsConfig    SnippetsConfig    `mapstructure:"snippets"`
}

// HistoryConfig configures the size of the chat history that is kept in memory in a ring buffer per room and
// sent to newly joined clients
type HistoryConfig struct {
	HistorySize int `mapstructure:"history_size"`
}

// PersistenceConfig selects the storage backend: "buntdb" (DSN is the file name, ":memory:" for none),
// "sqlite" or "postgres" (DSN is passed to the gorm driver). An empty type disables persistence, rooms then
// live as long as the relay keeps them in memory.
type PersistenceConfig struct {
	Type      string `mapstructure:"type"`
	DSN       string `mapstructure:"dsn"`
	FlockPath string `mapstructure:"flock_path"` // buntdb only, defaults to <dsn>.lock
}

type RoomsConfig struct {
	IdleRooms    int    `mapstructure:"idle_rooms"`    // rooms without members kept in memory
	MaxFileSize  int    `mapstructure:"max_file_size"` // bytes
	MaxRoomSize  int    `mapstructure:"max_room_size"` // bytes, all files of a room together
	FlushSpec    string `mapstructure:"flush_spec"`    // cron spec for writing modified files
	UseTemplates bool   `mapstructure:"use_templates"`
}

// PluginsConfig holds the commands that start the collaborator plugins. Empty means not configured.
type PluginsConfig struct {
	Executor  string `mapstructure:"executor"`
	Assistant string `mapstructure:"assistant"`
}

type TimeoutConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// ClientConfig is used by the headless client.
type ClientConfig struct {
	URL                  string        `mapstructure:"url"`
	AutosaveDelay        time.Duration `mapstructure:"autosave_delay"`
	EditRate             float64       `mapstructure:"edit_rate"`
	EditBurst            int           `mapstructure:"edit_burst"`
	ReconnectMaxInterval time.Duration `mapstructure:"reconnect_max_interval"`
	MaxMessageSize       int64         `mapstructure:"max_message_size"` // bytes, 0 is unlimited
}

// SnippetsConfig points to a directory with <language>.json snippet files, empty means built-in snippets only.
type SnippetsConfig struct {
	Dir string `mapstructure:"dir"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.String("addr", "", "listen address of the relay")
	flagSet.String("log-level", "", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	flagSet.String("persistence-type", "", "persistence backend (buntdb, sqlite, postgres)")
	flagSet.String("persistence-dsn", "", "persistence data source")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := "-"
	to := "_"
	name = strings.Replace(name, from, to, -1)
	return pflag.NormalizedName(name)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "INFO")
	v.SetDefault("addr", defaultAddr)
	v.SetDefault("history.history_size", defaultHistorySize)
	v.SetDefault("persistence.type", "")
	v.SetDefault("persistence.dsn", "")
	v.SetDefault("persistence.flock_path", "")
	v.SetDefault("rooms.idle_rooms", defaultIdleRooms)
	v.SetDefault("rooms.max_file_size", defaultMaxFileSize)
	v.SetDefault("rooms.max_room_size", defaultMaxRoomSize)
	v.SetDefault("rooms.flush_spec", defaultFlushSpec)
	v.SetDefault("rooms.use_templates", true)
	v.SetDefault("plugins.executor", "")
	v.SetDefault("plugins.assistant", "")
	v.SetDefault("execution.timeout", defaultExecTimeout)
	v.SetDefault("ai.timeout", defaultAITimeout)
	v.SetDefault("client.url", defaultClientURL)
	v.SetDefault("client.autosave_delay", defaultAutosaveDelay)
	v.SetDefault("client.edit_rate", 0)
	v.SetDefault("client.edit_burst", 1)
	v.SetDefault("client.reconnect_max_interval", defaultReconnectMax)
	v.SetDefault("client.max_message_size", 0)
	v.SetDefault("snippets.dir", "")
}

// ReadConfiguration reads and parses the configuration located at configPath, which can either point to a single TOML
// file or to a directory, in which case all *.toml files in this directory are concatenated. It returns a Config
// object. flagSet may be nil.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	v := viper.New()
	setDefaults(v)
	if flagSet != nil {
		flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
		bindings := map[string]string{
			"addr":             "addr",
			"log_level":        "log_level",
			"persistence.type": "persistence_type",
			"persistence.dsn":  "persistence_dsn",
		}
		for key, flag := range bindings {
			if f := flagSet.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					globals.AppLogger.Error("could not bind flag (ignored)", "flag", flag, "error", err)
				}
			}
		}
	}
	v.SetEnvPrefix("LSCODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		v.SetConfigType("toml")
		err = v.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			return nil, err
		}
	}
	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	globals.AppLogger.Debug("config", "cfg", cfg, "all", v.AllSettings())
	return &cfg, nil
}
