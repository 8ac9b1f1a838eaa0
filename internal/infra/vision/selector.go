package vision

import (
	"math"

	"github.com/ecodrop/ecodrop-keyframe-service/internal/domain/entity"
)

// RoleTarget binds a keyframe role to its target position in the analysis
// window. Building the full list once and consuming it uniformly keeps the
// quality pass from re-deriving indices by loop position.
type RoleTarget struct {
	Role           entity.KeyframeRole
	WindowPosition int
}

// selectTargets derives the five target positions from the window length and
// the detected peak. The pre-hold and final-state frames use fractional
// offsets so they scale with clip length; the frames around the action are
// anchored to the peak with a fixed real-time offset, which keeps the
// selection fps-invariant.
//
// Clamping near the window edges may collapse two roles onto the same frame
// index. Duplicates are allowed: each role keeps its slot and the classifier
// sees the same frame twice.
func selectTargets(windowLen, peak int, fps float64, cfg Config) []RoleTarget {
	last := windowLen - 1
	offset := int(math.Round(cfg.ActionOffsetSeconds * fps))

	return []RoleTarget{
		{entity.RolePreHold, clampInt(int(cfg.EarlyFraction*float64(windowLen)), 0, last)},
		{entity.RolePreAction, clampInt(peak-offset, 0, last)},
		{entity.RoleAction, clampInt(peak, 0, last)},
		{entity.RolePostAction, clampInt(peak+offset, 0, last)},
		{entity.RoleFinalState, clampInt(int(cfg.LateFraction*float64(windowLen)), 0, last)},
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
