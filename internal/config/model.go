package config

import (
	"fmt"
	"time"

	"github.com/vk/livespan/internal/locator"
)

// Model is the decoded configuration. Zero fields mean "not set".
type Model struct {
	Log        Log            `json:"log"`
	Debounce   string         `json:"debounce"`
	Components string         `json:"components"`
	Syntax     locator.Syntax `json:"syntax"`
	Bridge     Bridge         `json:"bridge"`
	// HealthcheckPort enables the health endpoint in attach mode.
	HealthcheckPort int `json:"healthcheck_port"`
}

// Log configures the application logger.
type Log struct {
	Level   string `json:"level"`
	Format  string `json:"format"`
	Journal bool   `json:"journal"`
}

// Bridge configures the editor connection.
type Bridge struct {
	URL       string `json:"url"`
	Namespace string `json:"namespace"`
	Insecure  bool   `json:"insecure"`
}

// DebounceDuration parses Debounce. An empty value yields zero.
func (m *Model) DebounceDuration() (time.Duration, error) {
	if m.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce %q: %w", m.Debounce, err)
	}
	return d, nil
}

// merge copies the fields set in o over m.
func (m *Model) merge(o Model) {
	if o.Log.Level != "" {
		m.Log.Level = o.Log.Level
	}
	if o.Log.Format != "" {
		m.Log.Format = o.Log.Format
	}
	m.Log.Journal = m.Log.Journal || o.Log.Journal
	if o.Debounce != "" {
		m.Debounce = o.Debounce
	}
	if o.Components != "" {
		m.Components = o.Components
	}
	m.Syntax = m.Syntax.Merge(o.Syntax)
	if o.Bridge.URL != "" {
		m.Bridge.URL = o.Bridge.URL
	}
	if o.Bridge.Namespace != "" {
		m.Bridge.Namespace = o.Bridge.Namespace
	}
	m.Bridge.Insecure = m.Bridge.Insecure || o.Bridge.Insecure
	if o.HealthcheckPort != 0 {
		m.HealthcheckPort = o.HealthcheckPort
	}
}
