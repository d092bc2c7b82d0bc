package engine

import (
	"math"

	"github.com/creatorlens/creatorlens/internal/models"
)

// EngagementRate computes the engagement rate for a set of interaction
// counts: (likes+comments+shares+saves) / views * 100, rounded to two
// decimal places. Returns 0 when views is zero or negative.
func EngagementRate(views, likes, comments, shares, saves int64) float64 {
	if views <= 0 {
		return 0
	}
	interactions := likes + comments + shares + saves
	return round2(float64(interactions) / float64(views) * 100)
}

// FollowerEngagementRate computes an account-level engagement rate using
// followers as the denominator. Returns 0 when followers is zero.
func FollowerEngagementRate(followers, likes, comments, shares int64) float64 {
	if followers <= 0 {
		return 0
	}
	interactions := likes + comments + shares
	return round2(float64(interactions) / float64(followers) * 100)
}

// MergeMetadata merges provider metadata maps with shallow key overwrite:
// incoming keys override existing ones, override keys win over both.
// Unrelated existing keys survive; keys are never deleted. Merging with
// two empty maps is the identity, so repeated application is idempotent.
func MergeMetadata(existing, incoming, overrides models.Metadata) models.Metadata {
	return existing.Merge(incoming, overrides)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
