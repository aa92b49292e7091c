package oracle

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	apperrors "github.com/agbru/consort/internal/errors"
)

func testProfile() Profile {
	p, err := ParseProfile([]byte(`
name: dbp-consortium
members: [gordonia_sp, rhodococcus_ruber, pseudomonas_putida]
biomass_max: 1.0
target_exchange: EX_dbp_m
uptake_limit: -40.0
growth_response:
  drop: 1.0
  shape: 1.0
exchanges:
  - id: EX_glc__D_m
    lower: -10.0
    upper: 1000.0
`))
	if err != nil {
		panic(err)
	}
	return p
}

func TestParseProfileValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"no members", "name: x\nbiomass_max: 1\ntarget_exchange: EX_dbp_m\nuptake_limit: -1"},
		{"negative biomass", "members: [a]\nbiomass_max: -1\ntarget_exchange: EX_dbp_m\nuptake_limit: -1"},
		{"missing target", "members: [a]\nbiomass_max: 1\nuptake_limit: -1"},
		{"positive uptake limit", "members: [a]\nbiomass_max: 1\ntarget_exchange: EX_dbp_m\nuptake_limit: 3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseProfile([]byte(tc.yaml)); err == nil {
				t.Fatal("expected a validation error, got nil")
			}
		})
	}
}

func TestParseProfileAppendsTargetExchange(t *testing.T) {
	p := testProfile()
	if !p.hasExchange("EX_dbp_m") {
		t.Fatal("target exchange was not auto-declared")
	}
	c, err := NewResponseCommunity(p)
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}
	lo, hi, err := c.Bounds("EX_dbp_m")
	if err != nil {
		t.Fatalf("Bounds: %v", err)
	}
	if lo != -40.0 || hi != 0 {
		t.Errorf("auto-declared target bounds = [%v, %v], want [-40, 0]", lo, hi)
	}
}

func TestWithFixedBoundRestores(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}

	origLo, origHi, _ := c.Bounds("EX_dbp_m")
	err = WithFixedBound(c, "EX_dbp_m", -7.5, func() error {
		lo, hi, err := c.Bounds("EX_dbp_m")
		if err != nil {
			return err
		}
		if lo != -7.5 || hi != -7.5 {
			t.Errorf("inside fn bounds = [%v, %v], want pinned to -7.5", lo, hi)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithFixedBound: %v", err)
	}

	lo, hi, _ := c.Bounds("EX_dbp_m")
	if lo != origLo || hi != origHi {
		t.Errorf("bounds after restore = [%v, %v], want [%v, %v]", lo, hi, origLo, origHi)
	}
}

func TestWithFixedBoundRestoresOnError(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}

	origLo, origHi, _ := c.Bounds("EX_glc__D_m")
	sentinel := errors.New("solver blew up")
	err = WithFixedBound(c, "EX_glc__D_m", -2, func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("error = %v, want sentinel preserved", err)
	}

	lo, hi, _ := c.Bounds("EX_glc__D_m")
	if lo != origLo || hi != origHi {
		t.Errorf("bounds after failed fn = [%v, %v], want [%v, %v]", lo, hi, origLo, origHi)
	}
}

func TestWithFixedBoundClampsDriftedBounds(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}

	// A saved pair inverted within the restore tolerance is clamped to a
	// consistent ordering instead of being written back inverted.
	drifted := -5.0 + 5e-10
	if err := c.SetBounds("EX_glc__D_m", drifted, -5.0); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	if err := WithFixedBound(c, "EX_glc__D_m", -2, func() error { return nil }); err != nil {
		t.Fatalf("WithFixedBound: %v", err)
	}
	lo, hi, _ := c.Bounds("EX_glc__D_m")
	if lo != drifted || hi != drifted {
		t.Errorf("bounds = [%v, %v], want both clamped to %v", lo, hi, drifted)
	}
}

func TestWithFixedBoundReordersInvertedBounds(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}

	// An inversion wider than the tolerance is no drift artifact; the pair
	// is restored reordered.
	if err := c.SetBounds("EX_glc__D_m", 3.0, -5.0); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	if err := WithFixedBound(c, "EX_glc__D_m", -2, func() error { return nil }); err != nil {
		t.Fatalf("WithFixedBound: %v", err)
	}
	lo, hi, _ := c.Bounds("EX_glc__D_m")
	if lo != -5.0 || hi != 3.0 {
		t.Errorf("bounds = [%v, %v], want reordered [-5, 3]", lo, hi)
	}
}

func TestWithFixedBoundUnknownReaction(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}
	err = WithFixedBound(c, "EX_nope_m", 0, func() error {
		t.Fatal("fn must not run for an unknown reaction")
		return nil
	})
	var oe apperrors.OracleError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want OracleError", err)
	}
	if oe.ReactionID != "EX_nope_m" {
		t.Errorf("ReactionID = %q, want EX_nope_m", oe.ReactionID)
	}
}

func TestSetMediumReportsMissing(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}
	applied, missing, err := c.SetMedium(map[string]float64{
		"EX_glc__D_m": 5.0,
		"EX_unknown":  1.0,
	})
	if err != nil {
		t.Fatalf("SetMedium: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
	if len(missing) != 1 || missing[0] != "EX_unknown" {
		t.Errorf("missing = %v, want [EX_unknown]", missing)
	}
	lo, _, _ := c.Bounds("EX_glc__D_m")
	if lo != -5.0 {
		t.Errorf("lower bound after SetMedium = %v, want -5 (import is negative flux)", lo)
	}
}

func TestCooperativeTradeoffUnconstrained(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}
	sol, err := c.CooperativeTradeoff(context.Background())
	if err != nil {
		t.Fatalf("CooperativeTradeoff: %v", err)
	}
	if math.Abs(sol.GrowthRate-1.0) > 1e-12 {
		t.Errorf("unconstrained growth = %v, want biomass_max 1.0", sol.GrowthRate)
	}
	if len(sol.MemberGrowth) != 3 {
		t.Errorf("member growth entries = %d, want 3", len(sol.MemberGrowth))
	}
}

func TestGrowthFallsWithForcedUptake(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}

	growthAt := func(flux float64) float64 {
		var g float64
		err := WithFixedBound(c, "EX_dbp_m", flux, func() error {
			sol, err := c.CooperativeTradeoff(context.Background())
			if err != nil {
				return err
			}
			g = sol.GrowthRate
			return nil
		})
		if err != nil {
			t.Fatalf("growth at %v: %v", flux, err)
		}
		return g
	}

	prev := growthAt(0)
	for _, f := range []float64{-10, -20, -30, -40} {
		g := growthAt(f)
		if g > prev+1e-12 {
			t.Errorf("growth at flux %v is %v, above growth %v at a milder flux", f, g, prev)
		}
		prev = g
	}
	if g := growthAt(-40); math.Abs(g) > 1e-12 {
		t.Errorf("growth at full uptake = %v, want 0 with drop=1", g)
	}
}

func TestOptimizeFluxTargetCappedByNetwork(t *testing.T) {
	c, err := NewResponseCommunity(testProfile())
	if err != nil {
		t.Fatalf("NewResponseCommunity: %v", err)
	}
	// A medium bound looser than the network capacity must not raise the
	// achievable uptake past the uptake limit.
	if err := c.SetBounds("EX_dbp_m", -1000, 0); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	v, err := c.OptimizeFlux(context.Background(), "EX_dbp_m", Minimize)
	if err != nil {
		t.Fatalf("OptimizeFlux: %v", err)
	}
	if v != -40.0 {
		t.Errorf("max uptake = %v, want network limit -40", v)
	}
}

func TestBuilderRejectsUnknownMember(t *testing.T) {
	b := NewProfileBuilder(testProfile())
	if _, err := b.Build(context.Background(), []string{"gordonia_sp", "intruder"}); err == nil {
		t.Fatal("expected an error for a member outside the profile")
	}
	if _, err := b.Build(context.Background(), nil); err == nil {
		t.Fatal("expected an error for an empty member set")
	}
}

func TestEssentialMemberRemovalZerosBiomass(t *testing.T) {
	p := testProfile()
	p.Essential = []string{"gordonia_sp"}
	b := NewProfileBuilder(p)
	c, err := b.Build(context.Background(), []string{"rhodococcus_ruber", "pseudomonas_putida"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sol, err := c.CooperativeTradeoff(context.Background())
	if err != nil {
		t.Fatalf("CooperativeTradeoff: %v", err)
	}
	if sol.GrowthRate != 0 {
		t.Errorf("growth without essential member = %v, want 0", sol.GrowthRate)
	}
}

func TestMediumEnsureUptakeCapacity(t *testing.T) {
	m := Medium{{Reaction: "EX_glc__D_m", Upper: 10}, {Reaction: "EX_dbp_m", Upper: 5}}

	raised := m.EnsureUptakeCapacity("EX_dbp_m", DefaultUptakeFloor)
	if got := raised.ToMap()["EX_dbp_m"]; got != DefaultUptakeFloor {
		t.Errorf("raised capacity = %v, want %v", got, DefaultUptakeFloor)
	}
	if got := m.ToMap()["EX_dbp_m"]; got != 5 {
		t.Errorf("original medium mutated: %v", got)
	}

	appended := Medium{{Reaction: "EX_glc__D_m", Upper: 10}}.EnsureUptakeCapacity("EX_dbp_m", 20)
	if len(appended) != 2 || appended[1].Reaction != "EX_dbp_m" || appended[1].Upper != 20 {
		t.Errorf("absent entry not appended: %v", appended)
	}

	generous := Medium{{Reaction: "EX_dbp_m", Upper: 50}}.EnsureUptakeCapacity("EX_dbp_m", 20)
	if got := generous.ToMap()["EX_dbp_m"]; got != 50 {
		t.Errorf("bound above the floor was lowered to %v", got)
	}
}

func TestReadMediumCSV(t *testing.T) {
	csvData := "reaction,flux,description\nEX_glc__D_m,10,glucose\nEX_nh4_m,5,ammonium\n,3,blank\nEX_pi_m,,phosphate\n"
	m, err := ReadMediumCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("ReadMediumCSV: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("entries = %d, want 3 (blank reaction skipped)", len(m))
	}
	if m[0].Reaction != "EX_glc__D_m" || m[0].Upper != 10 {
		t.Errorf("first entry = %+v", m[0])
	}
	if m[2].Reaction != "EX_pi_m" || m[2].Upper != 0 {
		t.Errorf("blank bound should coerce to 0, got %+v", m[2])
	}
}

func TestReadMediumCSVSuggestedUpperBound(t *testing.T) {
	m, err := ReadMediumCSV(strings.NewReader("reaction,suggested_upper_bound\nEX_o2_m,18.5\n"))
	if err != nil {
		t.Fatalf("ReadMediumCSV: %v", err)
	}
	if len(m) != 1 || m[0].Upper != 18.5 {
		t.Errorf("medium = %+v, want one entry with bound 18.5", m)
	}
}

func TestReadMediumCSVMissingColumns(t *testing.T) {
	if _, err := ReadMediumCSV(strings.NewReader("id,flux\nEX_a,1\n")); err == nil {
		t.Error("expected an error without a reaction column")
	}
	if _, err := ReadMediumCSV(strings.NewReader("reaction,notes\nEX_a,x\n")); err == nil {
		t.Error("expected an error without a bound column")
	}
}
