package engine

import (
	"sort"
	"time"

	"github.com/creatorlens/creatorlens/internal/models"
)

// rollingWindowSize is how many of the most recently published posts
// feed each median point.
const rollingWindowSize = 10

// MedianPoint is one day's rolling-median view count. SampleSize reports
// how many posts fed the median, so callers can show "based on last N".
type MedianPoint struct {
	Date        string  `json:"date"`
	MedianViews float64 `json:"medianViews"`
	SampleSize  int     `json:"sampleSize"`
}

// BuildRollingMedianSeries computes, for every calendar day in range,
// the median view count of the last ten posts published up to and
// including that day. The day axis is the union of every post's publish
// day, every reference date, and the full day range from earliest to
// latest post, so the series has one point per day rather than only days
// with activity. Days before the first published post emit no point.
func BuildRollingMedianSeries(posts []*models.Post, referenceDates []time.Time) []MedianPoint {
	published := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if p.PublishedAt.Valid {
			published = append(published, p)
		}
	}
	if len(published) == 0 && len(referenceDates) == 0 {
		return []MedianPoint{}
	}

	sort.SliceStable(published, func(i, j int) bool {
		return published[i].PublishedAt.Time.Before(published[j].PublishedAt.Time)
	})

	daySet := make(map[time.Time]struct{})
	for _, p := range published {
		daySet[dayOf(p.PublishedAt.Time)] = struct{}{}
	}
	for _, d := range referenceDates {
		daySet[dayOf(d)] = struct{}{}
	}
	if len(published) > 0 {
		first := dayOf(published[0].PublishedAt.Time)
		last := dayOf(published[len(published)-1].PublishedAt.Time)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			daySet[d] = struct{}{}
		}
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	points := make([]MedianPoint, 0, len(days))
	buffer := make([]int64, 0, len(published))
	next := 0
	for _, day := range days {
		for next < len(published) && !dayOf(published[next].PublishedAt.Time).After(day) {
			buffer = append(buffer, published[next].Views)
			next++
		}
		if len(buffer) == 0 {
			// No posts exist yet as of this day
			continue
		}

		window := buffer
		if len(window) > rollingWindowSize {
			window = window[len(window)-rollingWindowSize:]
		}
		points = append(points, MedianPoint{
			Date:        day.Format(dayFormat),
			MedianViews: medianViews(window),
			SampleSize:  len(window),
		})
	}

	return points
}

// medianViews returns the median of the window, averaging the two middle
// values for even sample counts and rounding to two decimal places.
func medianViews(window []int64) float64 {
	sorted := make([]int64, len(window))
	copy(sorted, window)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return round2(float64(sorted[mid-1]+sorted[mid]) / 2)
}
