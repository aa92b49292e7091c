package config

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDesignDefaults(t *testing.T) {
	cfg, err := ParseConfig("consort", []string{"--scores", "scores.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Mode != ModeDesign {
		t.Errorf("Mode = %q, want design", cfg.Mode)
	}
	if cfg.Strategy != "greedy" {
		t.Errorf("Strategy = %q, want greedy", cfg.Strategy)
	}
	if cfg.PoolSize != 50 || cfg.KMin != 2 || cfg.KMax != 5 {
		t.Errorf("pool/k defaults = %d/[%d,%d], want 50/[2,5]", cfg.PoolSize, cfg.KMin, cfg.KMax)
	}
	if !cfg.RequireFunctional {
		t.Error("RequireFunctional default = false, want true")
	}
	if cfg.Weights.Alpha != 0.2 || cfg.Weights.Mu != -0.05 {
		t.Errorf("weights = %+v, want scoring defaults", cfg.Weights)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
}

func TestParseConfigEvaluate(t *testing.T) {
	cfg, err := ParseConfig("consort", []string{
		"--mode", "evaluate", "--profile", "community.yaml",
		"--alpha", "0.8", "--robust", "--workers", "3",
	}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Alpha != 0.8 || !cfg.Robustness || cfg.Workers != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.TargetExchange != DefaultTargetExchange {
		t.Errorf("TargetExchange = %q, want %q", cfg.TargetExchange, DefaultTargetExchange)
	}
	tol := cfg.Tolerances()
	if tol.Distance != 1e-3 || tol.Growth != 1e-4 || tol.MaxIterations != 30 {
		t.Errorf("tolerances = %+v", tol)
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"design without scores", nil},
		{"unknown mode", []string{"--mode", "calibrate", "--scores", "s.csv"}},
		{"unknown strategy", []string{"--scores", "s.csv", "--strategy", "random"}},
		{"kmax below kmin", []string{"--scores", "s.csv", "--kmin", "4", "--kmax", "2"}},
		{"evaluate without profile", []string{"--mode", "evaluate"}},
		{"alpha above one", []string{"--mode", "evaluate", "--profile", "p.yaml", "--alpha", "1.2"}},
		{"quiet and verbose", []string{"--scores", "s.csv", "--quiet", "--verbose"}},
		{"positional args", []string{"--scores", "s.csv", "extra"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseConfig("consort", tc.args, io.Discard); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CONSORT_STRATEGY", "exhaustive")
	t.Setenv("CONSORT_KMAX", "4")
	t.Setenv("CONSORT_TIMEOUT", "30s")
	t.Setenv("CONSORT_REQUIRE_FUNCTIONAL", "no")

	cfg, err := ParseConfig("consort", []string{"--scores", "s.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Strategy != "exhaustive" {
		t.Errorf("Strategy = %q, want env override exhaustive", cfg.Strategy)
	}
	if cfg.KMax != 4 {
		t.Errorf("KMax = %d, want env override 4", cfg.KMax)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.RequireFunctional {
		t.Error("RequireFunctional = true, want env override false")
	}
}

func TestFlagBeatsEnv(t *testing.T) {
	t.Setenv("CONSORT_KMAX", "9")
	cfg, err := ParseConfig("consort", []string{"--scores", "s.csv", "--kmax", "3"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.KMax != 3 {
		t.Errorf("KMax = %d, want CLI value 3 over env", cfg.KMax)
	}
}

func TestSearchOptions(t *testing.T) {
	cfg, err := ParseConfig("consort", []string{
		"--scores", "s.csv", "--strategy", "exhaustive", "--topk", "7", "--cap", "100",
	}, io.Discard)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	opts := cfg.SearchOptions()
	if opts.TopK != 7 || opts.HardCap != 100 {
		t.Errorf("opts = %+v, want TopK 7, HardCap 100", opts)
	}
}

func TestApplyAdaptiveWorkers(t *testing.T) {
	cfg := ApplyAdaptiveWorkers(AppConfig{})
	if cfg.Workers < 1 {
		t.Errorf("adaptive Workers = %d, want >= 1", cfg.Workers)
	}
	pinned := ApplyAdaptiveWorkers(AppConfig{Workers: 2})
	if pinned.Workers != 2 {
		t.Errorf("explicit Workers overwritten to %d", pinned.Workers)
	}
}

func TestConfigString(t *testing.T) {
	cfg := AppConfig{Mode: ModeDesign, ScoresFile: "s.csv", Strategy: "greedy", PoolSize: 50, KMin: 2, KMax: 5, HardCap: 500000}
	if s := cfg.String(); !strings.Contains(s, "mode=design") || !strings.Contains(s, "s.csv") {
		t.Errorf("String() = %q", s)
	}
}
