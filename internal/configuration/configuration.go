package configuration

import (
	"encoding/json"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/pkg/errors"

	"github.com/plume-cli/plume/internal/file"
)

var defaultConfig = Config{
	OpenaiAPIKey:   "API_KEY",
	OpenaiAPIHost:  "https://api.openai.com/v1",
	RequestTimeout: 60,

	Chat: &ChatConfig{
		DefaultModel: "gpt-4o-mini",
		SummaryModel: "gpt-4o-mini",
		Directory:    "~/.config/plume/Chat History",
	},
}

// Config holds configuration for the plume tool.
type Config struct {
	OpenaiAPIKey   string `json:"openai_api_key"`
	OpenaiAPIHost  string `json:"openai_api_host"`
	RequestTimeout int    `json:"request_timeout"`

	Chat *ChatConfig `json:"chat"`
}

// ChatConfig holds configuration for plume chat.
type ChatConfig struct {
	// The model used for conversations.
	DefaultModel string `json:"default_model"`
	// The model used to summarize a conversation into a title.
	SummaryModel string `json:"summary_model"`
	// The directory where we store chats.
	Directory string `json:"directory"`
}

// Parse a configuration file.
func Parse(path string) (*Config, error) {
	path, err := file.ExpandPath(path)
	if err != nil {
		return nil, errors.Wrap(err, "expanding path")
	}

	if err := initializeIfNotPresent(path); err != nil {
		return nil, errors.Wrap(err, "initializing configuration")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	config := &Config{}
	if err = json.Unmarshal(bytes, config); err != nil {
		return nil, errors.Wrap(err, "unmarshaling into config")
	}

	// Backfill anything the user's file omits.
	if err := mergo.Merge(config, defaultConfig); err != nil {
		return nil, errors.Wrap(err, "merging default config")
	}

	expandedChatDirectoryPath, err := file.ExpandPath(config.Chat.Directory)
	if err != nil {
		return nil, errors.Wrap(err, "expanding chat directory path")
	}
	config.Chat.Directory = expandedChatDirectoryPath
	return config, nil
}

// save a configuration file.
func (c *Config) save(path string) error {
	bytes, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}

	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}
	return nil
}

// initializeIfNotPresent initializes a config if it does not exist.
func initializeIfNotPresent(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	// Create the directories.
	dir, _ := filepath.Split(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating folders")
	}

	if err := defaultConfig.save(path); err != nil {
		return errors.Wrap(err, "saving default config")
	}
	return nil
}
