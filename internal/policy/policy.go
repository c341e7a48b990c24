// Package policy loads the adjustment methodology file: rollback trigger
// behavior, anchor policy, and per-component spike threshold overrides. Run
// parameters such as the rollback window length stay in the main
// configuration; this file carries the choices analysts revise between
// publications.
package policy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ONSdigital/gdhi-adj/internal/apportion"
	"github.com/ONSdigital/gdhi-adj/internal/model"
)

// Config is the top-level adjustment policy.
type Config struct {
	Rollback       RollbackConfig             `yaml:"rollback"`
	ChainedAnchors bool                       `yaml:"chained_anchors"`
	Components     map[string]ComponentConfig `yaml:"components"`
}

// RollbackConfig selects the rollback trigger and weighting.
type RollbackConfig struct {
	Mode         string  `yaml:"mode"`
	DeficitRatio float64 `yaml:"deficit_ratio"`
	Weights      string  `yaml:"weights"`
}

// ComponentConfig overrides flagging behavior for one component.
type ComponentConfig struct {
	SpikeThreshold *float64 `yaml:"spike_threshold,omitempty"`
}

// Default returns the policy used when no file is supplied: any floor
// triggers rollback, window years weighted equally, observed-only anchors.
func Default() *Config {
	return &Config{
		Rollback: RollbackConfig{
			Mode:    string(apportion.TriggerAnyFloor),
			Weights: string(apportion.WeightsEqual),
		},
	}
}

// Load reads the policy from a YAML file. The file has a top-level
// "adjustment" key. Fields left empty fall back to the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "policy: read %s", path)
	}

	var wrapper struct {
		Adjustment Config `yaml:"adjustment"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "policy: parse %s", path)
	}

	cfg := &wrapper.Adjustment
	def := Default()
	if cfg.Rollback.Mode == "" {
		cfg.Rollback.Mode = def.Rollback.Mode
	}
	if cfg.Rollback.Weights == "" {
		cfg.Rollback.Weights = def.Rollback.Weights
	}

	if err := cfg.RollbackPolicy(0).Validate(); err != nil {
		return nil, eris.Wrapf(err, "policy: invalid rollback in %s", path)
	}
	return cfg, nil
}

// RollbackPolicy builds the rollback policy with the given window length.
func (c *Config) RollbackPolicy(windowYears int) apportion.Policy {
	return apportion.Policy{
		Mode:         apportion.TriggerMode(c.Rollback.Mode),
		DeficitRatio: c.Rollback.DeficitRatio,
		WindowYears:  windowYears,
		Weights:      apportion.WeightScheme(c.Rollback.Weights),
	}
}

// ComponentThresholds returns the per-component spike threshold overrides.
func (c *Config) ComponentThresholds() map[model.Component]float64 {
	if len(c.Components) == 0 {
		return nil
	}
	out := make(map[model.Component]float64)
	for code, cc := range c.Components {
		if cc.SpikeThreshold != nil {
			out[model.Component(code)] = *cc.SpikeThreshold
		}
	}
	return out
}
