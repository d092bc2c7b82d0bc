package engine

import (
	"sort"
	"time"

	"github.com/creatorlens/creatorlens/internal/models"
)

const dayFormat = "2006-01-02"

// RankedPost is one post's position within its publish day.
type RankedPost struct {
	Post      *models.Post `json:"post"`
	Rank      int          `json:"rank"`
	ViewShare float64      `json:"viewShare"`
}

// DailyTotals are the summed counters of one publish day.
type DailyTotals struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
	Saves    int64 `json:"saves"`
}

// DailyGroup is one publish day's leaderboard.
type DailyGroup struct {
	Date              string       `json:"date"`
	Posts             []RankedPost `json:"posts"`
	TopPost           *models.Post `json:"topPost"`
	Totals            DailyTotals  `json:"totals"`
	AverageEngagement float64      `json:"averageEngagement"`
}

// TrendPoint is one day in the ascending trend series. ViewsDelta and
// ViewsDeltaPct are nil on the first point, which has no prior day.
type TrendPoint struct {
	Date          string   `json:"date"`
	Views         int64    `json:"views"`
	ViewsDelta    *int64   `json:"viewsDelta"`
	ViewsDeltaPct *float64 `json:"viewsDeltaPct"`
}

// DailyPerformance pairs the leaderboard groups (most recent day first)
// with the ascending trend series.
type DailyPerformance struct {
	Groups      []DailyGroup `json:"groups"`
	TrendSeries []TrendPoint `json:"trendSeries"`
}

// BuildDailyPerformance groups posts by the UTC calendar date they were
// published, ranks each day's posts by views, and derives day totals and
// day-over-day view deltas. Posts without a valid publish date are
// excluded entirely.
func BuildDailyPerformance(posts []*models.Post) *DailyPerformance {
	byDay := make(map[string][]*models.Post)
	for _, p := range posts {
		if !p.PublishedAt.Valid {
			continue
		}
		day := p.PublishedAt.Time.UTC().Format(dayFormat)
		byDay[day] = append(byDay[day], p)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	groups := make([]DailyGroup, 0, len(days))
	for _, day := range days {
		groups = append(groups, buildGroup(day, byDay[day]))
	}

	trend := make([]TrendPoint, 0, len(groups))
	for i, g := range groups {
		point := TrendPoint{Date: g.Date, Views: g.Totals.Views}
		if i > 0 {
			prev := groups[i-1].Totals.Views
			delta := g.Totals.Views - prev
			point.ViewsDelta = &delta
			if prev > 0 {
				pct := round2(float64(delta) / float64(prev) * 100)
				point.ViewsDeltaPct = &pct
			}
		}
		trend = append(trend, point)
	}

	// Leaderboard order: most recent day first
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})

	return &DailyPerformance{Groups: groups, TrendSeries: trend}
}

func buildGroup(day string, posts []*models.Post) DailyGroup {
	// Stable sort keeps encounter order for view ties
	ranked := make([]*models.Post, len(posts))
	copy(ranked, posts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Views > ranked[j].Views
	})

	group := DailyGroup{Date: day, Posts: make([]RankedPost, 0, len(ranked))}
	engagementSum := 0.0
	for _, p := range ranked {
		group.Totals.Views += p.Views
		group.Totals.Likes += p.Likes
		group.Totals.Comments += p.Comments
		group.Totals.Shares += p.Shares
		group.Totals.Saves += p.Saves
		engagementSum += p.EngagementRate
	}

	for i, p := range ranked {
		share := 0.0
		if group.Totals.Views > 0 {
			share = round2(float64(p.Views) / float64(group.Totals.Views) * 100)
		}
		group.Posts = append(group.Posts, RankedPost{Post: p, Rank: i + 1, ViewShare: share})
	}

	if len(ranked) > 0 {
		group.TopPost = ranked[0]
		group.AverageEngagement = round2(engagementSum / float64(len(ranked)))
	}

	return group
}

// dayOf truncates a timestamp to its UTC calendar day.
func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
