package main

import (
	"testing"

	"github.com/pthm-cable/froth/config"
)

func TestApplyToConfigClampsAndRounds(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()

	pv.ApplyToConfig(cfg, []float64{9, 3.6, -1, 0.4})

	if cfg.Particles.BandWidth != 5 {
		t.Errorf("band width = %v, want clamped to 5", cfg.Particles.BandWidth)
	}
	if cfg.Particles.PerCell != 4 {
		t.Errorf("per cell = %d, want 3.6 rounded to 4", cfg.Particles.PerCell)
	}
	if cfg.Particles.MinRadius != 0.02 {
		t.Errorf("min radius = %v, want clamped to 0.02", cfg.Particles.MinRadius)
	}
	if got := pv.ExtractFromConfig(cfg); got[3] != 0.4 {
		t.Errorf("extracted max radius = %v, want 0.4", got[3])
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config default %v, spec default %v", spec.Path, got[i], spec.Default)
		}
	}
}
