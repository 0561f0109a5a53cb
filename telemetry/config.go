package telemetry

import (
	"errors"
	"fmt"
)

// Config enables sinks individually; an empty path or address leaves that
// sink off.
type Config struct {
	Dir           string `yaml:"dir"`
	SQLitePath    string `yaml:"sqlite_path"`
	DashboardAddr string `yaml:"dashboard_addr"`
	Buffer        int    `yaml:"buffer"`
}

func DefaultConfig() Config {
	return Config{Buffer: 1024}
}

func (c Config) Validate() error {
	if c.Buffer <= 0 {
		return fmt.Errorf("telemetry.buffer must be > 0 (got %d)", c.Buffer)
	}
	return nil
}

// Open builds the configured sinks. The hub is returned separately so the
// caller can mount it on an HTTP server; it is nil when the dashboard is off.
func Open(cfg Config) (Sink, *Hub, error) {
	var sinks Fanout
	var hub *Hub

	if cfg.Dir != "" {
		w, err := NewJSONLWriter(cfg.Dir, "hivemind", cfg.Buffer)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, w)
	}
	if cfg.SQLitePath != "" {
		r, err := OpenSQLite(cfg.SQLitePath, cfg.Buffer)
		if err != nil {
			return nil, nil, errors.Join(err, sinks.Close())
		}
		sinks = append(sinks, r)
	}
	if cfg.DashboardAddr != "" {
		hub = NewHub(cfg.Buffer)
		sinks = append(sinks, hub)
	}

	switch len(sinks) {
	case 0:
		return Nop{}, nil, nil
	case 1:
		return sinks[0], hub, nil
	}
	return sinks, hub, nil
}
