package oracle

import (
	"errors"

	apperrors "github.com/agbru/consort/internal/errors"
)

// boundRestoreEpsilon is the tolerance within which an inverted bound pair
// (lower > upper after floating drift) is clamped to a consistent ordering
// during restoration.
const boundRestoreEpsilon = 1e-9

// WithFixedBound pins both bounds of the named reaction to value, runs fn,
// and restores the original bounds afterwards. Restoration happens on every
// exit path, including when fn returns an error, so no later read can
// observe a half-restored bound.
//
// If the saved bounds come back inverted within boundRestoreEpsilon they are
// clamped to the lower value; a larger inversion is reordered outright.
func WithFixedBound(c Community, reactionID string, value float64, fn func() error) (err error) {
	lower, upper, err := c.Bounds(reactionID)
	if err != nil {
		return apperrors.NewOracleError("bounds", reactionID, err)
	}
	if err := c.SetBounds(reactionID, value, value); err != nil {
		return apperrors.NewOracleError("set_bounds", reactionID, err)
	}

	defer func() {
		lo, hi := lower, upper
		if lo > hi {
			if lo-hi <= boundRestoreEpsilon {
				hi = lo
			} else {
				lo, hi = hi, lo
			}
		}
		if restoreErr := c.SetBounds(reactionID, lo, hi); restoreErr != nil {
			err = errors.Join(err, apperrors.NewOracleError("restore_bounds", reactionID, restoreErr))
		}
	}()

	return fn()
}
