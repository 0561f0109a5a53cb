// Package config loads the sidecar's YAML configuration. Every section
// starts from its package defaults and the file only overrides what it names.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nstehr/vimy/hivemind/arbiter"
	"github.com/nstehr/vimy/hivemind/combat"
	"github.com/nstehr/vimy/hivemind/model"
	"github.com/nstehr/vimy/hivemind/rules"
	"github.com/nstehr/vimy/hivemind/sitrep"
	"github.com/nstehr/vimy/hivemind/strategy"
	"github.com/nstehr/vimy/hivemind/telemetry"
)

const EnvPath = "HIVEMIND_CONFIG"

type Config struct {
	Socket   string `yaml:"socket"`
	LogLevel string `yaml:"log_level"`

	Scorer    sitrep.Config    `yaml:"scorer"`
	Machine   strategy.Config  `yaml:"machine"`
	Arbiter   arbiter.Config   `yaml:"arbiter"`
	Combat    combat.Config    `yaml:"combat"`
	Doctrine  rules.Doctrine   `yaml:"doctrine"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Socket:    "/tmp/hivemind.sock",
		LogLevel:  "info",
		Scorer:    sitrep.DefaultConfig(),
		Machine:   strategy.DefaultConfig(),
		Arbiter:   arbiter.DefaultConfig(),
		Combat:    combat.DefaultConfig(),
		Doctrine:  rules.DefaultDoctrine(),
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Unknown keys are rejected so a typo cannot silently leave a default in place.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("hivemind.yaml: %w", err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("hivemind.yaml: %w", err)
	}
	return c, nil
}

// Normalize clamps values that have a safe nearest setting.
func (c *Config) Normalize() {
	c.Doctrine.Validate()
	c.Machine.ExitStreak = max(c.Machine.ExitStreak, 2)
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Socket == "" {
		errs = append(errs, errors.New("socket must be set"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	s := c.Scorer
	errs = append(errs,
		positive("scorer.interval", s.Interval),
		positive("scorer.threat_radius", s.ThreatRadius),
		positive("scorer.defense_radius", s.DefenseRadius),
		unit("scorer.critical_health", s.CriticalHealth),
		positive("scorer.critical_ratio", s.CriticalRatio),
		positive("scorer.kill_threshold", s.KillThreshold),
		positive("scorer.min_attack_army", s.MinAttackArmy),
	)

	if c.Arbiter.Cooldown < 0 || math.IsNaN(c.Arbiter.Cooldown) {
		errs = append(errs, fmt.Errorf("arbiter.cooldown must be >= 0 (got %v)", c.Arbiter.Cooldown))
	}
	if _, err := model.ParseUnitTypes(c.Arbiter.Unique); err != nil {
		errs = append(errs, fmt.Errorf("arbiter.unique: %w", err))
	}

	k := c.Combat
	errs = append(errs,
		positive("combat.engagement_radius", k.EngagementRadius),
		positive("combat.defend_radius", k.DefendRadius),
		unit("combat.structure_health_floor", k.StructureHealthFloor),
		unit("combat.aggressive_health_floor", k.AggressiveHealthFloor),
		unit("combat.retreat_threshold", k.RetreatThreshold),
	)
	if k.ProximityWeight < 0 || k.FinishWeight < 0 {
		errs = append(errs, errors.New("combat weights must be >= 0"))
	}
	if k.MaxUnitsPerTarget < 1 {
		errs = append(errs, fmt.Errorf("combat.max_units_per_target must be >= 1 (got %d)", k.MaxUnitsPerTarget))
	}
	if k.MinUnitsPerStructure < 1 || k.MinUnitsPerStructure > k.MaxUnitsPerTarget {
		errs = append(errs, fmt.Errorf("combat.min_units_per_structure must be in [1, %d] (got %d)",
			k.MaxUnitsPerTarget, k.MinUnitsPerStructure))
	}

	errs = append(errs, c.Telemetry.Validate())
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// PathFromEnv returns the config path from HIVEMIND_CONFIG, or fallback.
func PathFromEnv(fallback string) string {
	return envOr(EnvPath, fallback)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be > 0 (got %v)", name, v)
	}
	return nil
}

func unit(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return fmt.Errorf("%s must be in [0, 1] (got %v)", name, v)
	}
	return nil
}
