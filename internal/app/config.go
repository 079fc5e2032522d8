package app

import (
	"errors"
	"time"

	"github.com/vk/livespan/internal/config"
	"github.com/vk/livespan/internal/locator"
)

// Command selects what the application does.
type Command string

const (
	// CommandRender renders one markdown file to HTML.
	CommandRender Command = "render"
	// CommandAttach connects to an editor host and serves live documents.
	CommandAttach Command = "attach"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command Command
	// Input is the markdown file for render.
	Input string
	// ConfigPaths are CUE files applied before the flags.
	ConfigPaths []string
	// ComponentsPath holds *.tpl component files.
	ComponentsPath string

	BridgeURL       string
	BridgeNamespace string
	Insecure        bool

	Debounce        time.Duration
	Syntax          locator.Syntax
	LogFormat       string
	LogLevel        string
	Journal         bool
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandRender:
		if cfg.Input == "" {
			return nil, errors.New("render needs a markdown file")
		}
	case CommandAttach:
	default:
		return nil, errors.New("command must be 'render' or 'attach'")
	}
	return &cfg, nil
}

// applyFile fills the fields not set by flags from the loaded file model.
func (c *Config) applyFile(m *config.Model) error {
	if c.ComponentsPath == "" {
		c.ComponentsPath = m.Components
	}
	if c.BridgeURL == "" {
		c.BridgeURL = m.Bridge.URL
	}
	if c.BridgeNamespace == "" {
		c.BridgeNamespace = m.Bridge.Namespace
	}
	c.Insecure = c.Insecure || m.Bridge.Insecure
	if c.LogLevel == "" {
		c.LogLevel = m.Log.Level
	}
	if c.LogFormat == "" {
		c.LogFormat = m.Log.Format
	}
	c.Journal = c.Journal || m.Log.Journal
	if c.HealthcheckPort == 0 {
		c.HealthcheckPort = m.HealthcheckPort
	}
	if c.Debounce == 0 {
		d, err := m.DebounceDuration()
		if err != nil {
			return err
		}
		c.Debounce = d
	}
	c.Syntax = locator.DefaultSyntax().Merge(m.Syntax).Merge(c.Syntax)
	return nil
}
