package oracle

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	apperrors "github.com/agbru/consort/internal/errors"
)

// ResponseCommunity is the in-memory reference implementation of the
// Community contract. Growth follows the profile's analytic response
// instead of a linear program: it is maximal when the target exchange is
// free to stay near zero flux and falls off monotonically as larger uptake
// magnitudes are forced, which is exactly the precondition the bisection
// optimizer assumes of the real simulator.
type ResponseCommunity struct {
	profile Profile
	members []string

	mu     sync.Mutex
	bounds map[string][2]float64
}

// NewResponseCommunity builds a reference community with the profile's full
// member set.
func NewResponseCommunity(p Profile) (*ResponseCommunity, error) {
	return newResponseCommunity(p, p.Members)
}

func newResponseCommunity(p Profile, members []string) (*ResponseCommunity, error) {
	if len(members) == 0 {
		return nil, apperrors.NewValidationError("members", "community needs at least one member")
	}
	known := make(map[string]struct{}, len(p.Members))
	for _, m := range p.Members {
		known[m] = struct{}{}
	}
	for _, m := range members {
		if _, ok := known[m]; !ok {
			return nil, apperrors.NewValidationError("members", "member %q is not part of profile %q", m, p.Name)
		}
	}

	c := &ResponseCommunity{
		profile: p,
		members: append([]string{}, members...),
		bounds:  make(map[string][2]float64, len(p.Exchanges)),
	}
	for _, ex := range p.Exchanges {
		c.bounds[ex.ID] = [2]float64{ex.Lower, ex.Upper}
	}
	return c, nil
}

// Members returns the member organism identifiers.
func (c *ResponseCommunity) Members() []string {
	return append([]string{}, c.members...)
}

// Exchanges returns the boundary-reaction ids in sorted order.
func (c *ResponseCommunity) Exchanges() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.bounds))
	for id := range c.bounds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetMedium applies import capacities: each known exchange's lower bound
// becomes −upper (imports are negative flux). Unknown ids are reported in
// missing, not applied and not fatal.
func (c *ResponseCommunity) SetMedium(medium map[string]float64) (int, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(medium))
	for id := range medium {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	applied := 0
	var missing []string
	for _, id := range ids {
		b, ok := c.bounds[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		b[0] = -medium[id]
		c.bounds[id] = b
		applied++
	}
	return applied, missing, nil
}

// CooperativeTradeoff evaluates the analytic growth response at the least
// burdensome flux the target exchange's bounds admit.
func (c *ResponseCommunity) CooperativeTradeoff(_ context.Context) (Solution, error) {
	c.mu.Lock()
	b, ok := c.bounds[c.profile.TargetExchange]
	c.mu.Unlock()
	if !ok {
		return Solution{}, fmt.Errorf("target exchange %q not in model", c.profile.TargetExchange)
	}

	// Growth is maximal at the in-bounds flux closest to zero.
	flux := 0.0
	if b[1] < 0 {
		flux = b[1]
	} else if b[0] > 0 {
		flux = b[0]
	}
	growth := c.growthAt(flux)

	memberGrowth := make(map[string]float64, len(c.members))
	shares := c.presentShares()
	n := float64(len(c.members))
	for _, m := range c.members {
		memberGrowth[m] = growth * shares[m] * n
	}
	return Solution{GrowthRate: growth, MemberGrowth: memberGrowth}, nil
}

// OptimizeFlux returns the extreme flux the bounds and the network capacity
// admit for the reaction, ignoring growth.
func (c *ResponseCommunity) OptimizeFlux(_ context.Context, reactionID string, dir Direction) (float64, error) {
	c.mu.Lock()
	b, ok := c.bounds[reactionID]
	c.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("reaction %q not in model", reactionID)
	}
	if dir == Maximize {
		return b[1], nil
	}
	if reactionID == c.profile.TargetExchange {
		// The network cannot route more uptake than its capacity even when
		// the bound allows it.
		return math.Max(b[0], c.profile.UptakeLimit), nil
	}
	return b[0], nil
}

// Bounds returns the reaction's current flux bounds.
func (c *ResponseCommunity) Bounds(reactionID string) (float64, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bounds[reactionID]
	if !ok {
		return 0, 0, fmt.Errorf("reaction %q not in model", reactionID)
	}
	return b[0], b[1], nil
}

// SetBounds replaces the reaction's flux bounds.
func (c *ResponseCommunity) SetBounds(reactionID string, lower, upper float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.bounds[reactionID]; !ok {
		return fmt.Errorf("reaction %q not in model", reactionID)
	}
	c.bounds[reactionID] = [2]float64{lower, upper}
	return nil
}

// growthAt evaluates the analytic response for a pinned target-exchange
// flux. Export flux (f > 0) carries no uptake burden.
func (c *ResponseCommunity) growthAt(flux float64) float64 {
	biomass := c.effectiveBiomass()
	if biomass <= 0 {
		return 0
	}
	if flux >= 0 || c.profile.UptakeLimit == 0 {
		return biomass
	}
	u := math.Min(math.Abs(flux), math.Abs(c.profile.UptakeLimit))
	frac := u / math.Abs(c.profile.UptakeLimit)
	growth := biomass * (1 - c.profile.Response.Drop*math.Pow(frac, c.profile.Response.Shape))
	return math.Max(growth, 0)
}

// effectiveBiomass scales the profile's biomass optimum by the share of
// members present; a missing essential member zeroes it.
func (c *ResponseCommunity) effectiveBiomass() float64 {
	present := make(map[string]struct{}, len(c.members))
	for _, m := range c.members {
		present[m] = struct{}{}
	}
	for _, essential := range c.profile.Essential {
		if _, ok := present[essential]; !ok {
			return 0
		}
	}

	var presentShare float64
	for m, s := range c.fullShares() {
		if _, ok := present[m]; ok {
			presentShare += s
		}
	}
	return c.profile.BiomassMax * presentShare
}

// fullShares returns the biomass share of every profile member, defaulting
// to equal shares and renormalizing whatever the profile declares.
func (c *ResponseCommunity) fullShares() map[string]float64 {
	shares := make(map[string]float64, len(c.profile.Members))
	var total float64
	for _, m := range c.profile.Members {
		s := c.profile.MemberShare[m]
		if s <= 0 {
			s = 1
		}
		shares[m] = s
		total += s
	}
	for m := range shares {
		shares[m] /= total
	}
	return shares
}

// presentShares renormalizes the full shares over the present members.
func (c *ResponseCommunity) presentShares() map[string]float64 {
	full := c.fullShares()
	var total float64
	for _, m := range c.members {
		total += full[m]
	}
	out := make(map[string]float64, len(c.members))
	for _, m := range c.members {
		if total > 0 {
			out[m] = full[m] / total
		}
	}
	return out
}

// ProfileBuilder builds ResponseCommunity instances for member subsets of a
// profile. Satisfies Builder for the robustness scanner.
type ProfileBuilder struct {
	profile Profile
}

// NewProfileBuilder wraps a profile as a community Builder.
func NewProfileBuilder(p Profile) *ProfileBuilder {
	return &ProfileBuilder{profile: p}
}

// Build constructs a fresh community over the given member subset.
func (b *ProfileBuilder) Build(_ context.Context, members []string) (Community, error) {
	return newResponseCommunity(b.profile, members)
}
