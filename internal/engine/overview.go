package engine

import (
	"sort"

	"github.com/creatorlens/creatorlens/internal/models"
)

// PlatformBreakdown holds one platform's aggregated totals.
type PlatformBreakdown struct {
	Platform          models.Platform `json:"platform"`
	Accounts          int             `json:"accounts"`
	Posts             int             `json:"posts"`
	Followers         int64           `json:"followers"`
	Views             int64           `json:"views"`
	Likes             int64           `json:"likes"`
	Comments          int64           `json:"comments"`
	Shares            int64           `json:"shares"`
	Impressions       int64           `json:"impressions"`
	AvgEngagementRate float64         `json:"avgEngagementRate"`
}

// OverviewReport holds global totals plus a per-platform breakdown.
type OverviewReport struct {
	TotalAccounts     int                 `json:"totalAccounts"`
	TotalPosts        int                 `json:"totalPosts"`
	Followers         int64               `json:"followers"`
	Views             int64               `json:"views"`
	Likes             int64               `json:"likes"`
	Comments          int64               `json:"comments"`
	Shares            int64               `json:"shares"`
	Impressions       int64               `json:"impressions"`
	AvgEngagementRate float64             `json:"avgEngagementRate"`
	Platforms         []PlatformBreakdown `json:"platforms"`
}

// BuildOverview folds account and post collections into platform-level
// and global totals. Pure fold, no side effects; empty input yields an
// all-zero report.
//
// The global average engagement rate is the mean of the per-platform
// averages, not a weighted mean over accounts, so a platform with many
// small accounts does not drown out the others. Each platform's average
// is the mean of its posts' engagement rates, falling back to the mean
// of its accounts' rates while the platform has no posts yet.
func BuildOverview(accounts []*models.Account, posts []*models.Post) *OverviewReport {
	report := &OverviewReport{
		TotalAccounts: len(accounts),
		TotalPosts:    len(posts),
		Platforms:     []PlatformBreakdown{},
	}

	type platformAccum struct {
		breakdown    PlatformBreakdown
		accountRates float64
		postRates    float64
	}

	accums := make(map[models.Platform]*platformAccum)
	accountPlatform := make(map[int64]models.Platform, len(accounts))

	for _, a := range accounts {
		accum, ok := accums[a.Platform]
		if !ok {
			accum = &platformAccum{breakdown: PlatformBreakdown{Platform: a.Platform}}
			accums[a.Platform] = accum
		}
		accountPlatform[a.ID] = a.Platform

		accum.breakdown.Accounts++
		accum.breakdown.Followers += a.Followers
		accum.breakdown.Views += a.TotalViews
		accum.breakdown.Likes += a.TotalLikes
		accum.breakdown.Comments += a.TotalComments
		accum.breakdown.Shares += a.TotalShares
		accum.breakdown.Impressions += a.TotalImpressions
		accum.accountRates += a.EngagementRate

		report.Followers += a.Followers
		report.Views += a.TotalViews
		report.Likes += a.TotalLikes
		report.Comments += a.TotalComments
		report.Shares += a.TotalShares
		report.Impressions += a.TotalImpressions
	}

	for _, p := range posts {
		platform, ok := accountPlatform[p.AccountID]
		if !ok {
			continue
		}
		accum := accums[platform]
		accum.breakdown.Posts++
		accum.postRates += p.EngagementRate
	}

	rateSum := 0.0
	for _, accum := range accums {
		b := &accum.breakdown
		if b.Posts > 0 {
			b.AvgEngagementRate = round2(accum.postRates / float64(b.Posts))
		} else if b.Accounts > 0 {
			b.AvgEngagementRate = round2(accum.accountRates / float64(b.Accounts))
		}
		rateSum += b.AvgEngagementRate
		report.Platforms = append(report.Platforms, *b)
	}

	if len(report.Platforms) > 0 {
		report.AvgEngagementRate = round2(rateSum / float64(len(report.Platforms)))
	}

	sort.Slice(report.Platforms, func(i, j int) bool {
		return report.Platforms[i].Platform < report.Platforms[j].Platform
	})

	return report
}
