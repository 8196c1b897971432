package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendulum/internal/dynamo"
)

type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]Preset{
	"default": {
		Description: "random start, b=0.2, 200 s",
		Apply:       func(*Config) {},
	},
	"small": {
		Description: "small swing from rest",
		Apply: func(c *Config) {
			c.Horizon = 20
			c.Initial.Theta0, c.Initial.Omega0 = Float(0.2), Float(0)
		},
	},
	"large": {
		Description: "large swing from rest",
		Apply: func(c *Config) {
			c.Horizon = 40
			c.Initial.Theta0, c.Initial.Omega0 = Float(2.5), Float(0)
		},
	},
	"spinning": {
		Description: "spins over the top before settling",
		Apply: func(c *Config) {
			c.Horizon = 60
			c.Initial.Theta0, c.Initial.Omega0 = Float(0.1), Float(8)
		},
	},
	"undamped": {
		Description: "no friction, energy conserved",
		Apply: func(c *Config) {
			c.Horizon = 60
			c.Params.Damping = 0
			c.Initial.Theta0, c.Initial.Omega0 = Float(1.0), Float(0)
		},
	},
	"overdamped": {
		Description: "heavy damping, returns without oscillating",
		Apply: func(c *Config) {
			c.Horizon = 20
			c.Params.Damping = 15
			c.Initial.Theta0, c.Initial.Omega0 = Float(1.0), Float(0)
		},
	},
}

func GetPreset(name string) (Preset, bool) {
	p, ok := Presets[name]
	return p, ok
}

// ApplyPreset applies the named preset to cfg.
func ApplyPreset(cfg *Config, name string) error {
	p, ok := GetPreset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q (available: %v): %w", name, ListPresets(), dynamo.ErrInvalidConfig)
	}
	p.Apply(cfg)
	return nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
