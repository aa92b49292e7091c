package oracle

import (
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/consort/internal/errors"
)

// ExchangeSpec declares one boundary reaction of a community profile with
// its initial flux bounds (negative flux = import).
type ExchangeSpec struct {
	ID    string  `yaml:"id"`
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper"`
}

// ResponseSpec parameterizes the analytic growth response of a
// ResponseCommunity: growth falls off as the forced uptake magnitude
// approaches the network's uptake limit,
//
//	growth(f) = biomass_eff · (1 − Drop · (|f| / |uptake_limit|)^Shape)
//
// Drop is the total growth fraction lost at full uptake; Shape controls the
// curvature. Both default to 1.
type ResponseSpec struct {
	Drop  float64 `yaml:"drop"`
	Shape float64 `yaml:"shape"`
}

// Profile is the YAML description of a reference community: its members,
// boundary reactions, and analytic growth response. It exists so the engine
// can be exercised end to end without a linear-program solver.
type Profile struct {
	// Name labels the community.
	Name string `yaml:"name"`
	// Members lists the member organism identifiers.
	Members []string `yaml:"members"`
	// BiomassMax is the community growth optimum with unconstrained uptake.
	BiomassMax float64 `yaml:"biomass_max"`
	// TargetExchange is the pollutant exchange reaction id.
	TargetExchange string `yaml:"target_exchange"`
	// UptakeLimit is the most negative flux the network can route through
	// the target exchange regardless of bounds.
	UptakeLimit float64 `yaml:"uptake_limit"`
	// Response parameterizes the growth fall-off under forced uptake.
	Response ResponseSpec `yaml:"growth_response"`
	// MemberShare optionally weights each member's biomass contribution;
	// omitted members default to equal shares.
	MemberShare map[string]float64 `yaml:"member_share"`
	// Essential lists members without which the community cannot grow at
	// all (their removal makes the reduced model infeasible).
	Essential []string `yaml:"essential"`
	// Exchanges declares the boundary reactions and their initial bounds.
	Exchanges []ExchangeSpec `yaml:"exchanges"`
}

// ParseProfile decodes and validates a community profile.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, apperrors.WrapError(err, "decoding community profile")
	}
	if len(p.Members) == 0 {
		return Profile{}, apperrors.NewValidationError("members", "community profile has no members")
	}
	if p.BiomassMax < 0 {
		return Profile{}, apperrors.NewValidationError("biomass_max", "must be >= 0, got %v", p.BiomassMax)
	}
	if p.TargetExchange == "" {
		return Profile{}, apperrors.NewValidationError("target_exchange", "must be set")
	}
	if p.UptakeLimit > 0 {
		return Profile{}, apperrors.NewValidationError("uptake_limit", "must be <= 0 (uptake is negative flux), got %v", p.UptakeLimit)
	}
	if p.Response.Drop == 0 {
		p.Response.Drop = 1
	}
	if p.Response.Shape == 0 {
		p.Response.Shape = 1
	}
	if p.Response.Drop < 0 || p.Response.Shape < 0 {
		return Profile{}, apperrors.NewValidationError("growth_response", "drop and shape must be positive")
	}
	if !p.hasExchange(p.TargetExchange) {
		p.Exchanges = append(p.Exchanges, ExchangeSpec{ID: p.TargetExchange, Lower: p.UptakeLimit, Upper: 0})
	}
	return p, nil
}

// LoadProfile reads and parses the community profile at path.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, apperrors.WrapError(err, "reading community profile")
	}
	return ParseProfile(data)
}

func (p Profile) hasExchange(id string) bool {
	for _, ex := range p.Exchanges {
		if ex.ID == id {
			return true
		}
	}
	return false
}
