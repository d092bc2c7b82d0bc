package engine

import (
	"math"
	"reflect"
	"testing"

	"github.com/creatorlens/creatorlens/internal/models"
)

func TestEngagementRate(t *testing.T) {
	tests := []struct {
		name     string
		views    int64
		likes    int64
		comments int64
		shares   int64
		saves    int64
		expected float64
	}{
		{
			name:     "zero views",
			views:    0,
			likes:    100,
			expected: 0,
		},
		{
			name:     "negative views",
			views:    -10,
			likes:    5,
			expected: 0,
		},
		{
			name:     "simple rate",
			views:    1000,
			likes:    50,
			comments: 30,
			shares:   20,
			expected: 10,
		},
		{
			name:     "rate with saves",
			views:    1000,
			likes:    50,
			comments: 30,
			shares:   10,
			saves:    10,
			expected: 10,
		},
		{
			name:     "rounded to two decimals",
			views:    300,
			likes:    1,
			expected: 0.33,
		},
		{
			name:     "zero interactions",
			views:    500,
			expected: 0,
		},
		{
			name:     "rate above 100",
			views:    10,
			likes:    15,
			expected: 150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EngagementRate(tt.views, tt.likes, tt.comments, tt.shares, tt.saves)
			if got != tt.expected {
				t.Errorf("EngagementRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEngagementRateMatchesFormula(t *testing.T) {
	// For positive views the rate must equal the rounded formula exactly
	views, likes, comments, shares := int64(777), int64(23), int64(11), int64(7)
	want := math.Round(float64(likes+comments+shares)/float64(views)*100*100) / 100

	if got := EngagementRate(views, likes, comments, shares, 0); got != want {
		t.Errorf("EngagementRate() = %v, want %v", got, want)
	}
}

func TestFollowerEngagementRate(t *testing.T) {
	if got := FollowerEngagementRate(0, 10, 10, 10); got != 0 {
		t.Errorf("expected 0 for zero followers, got %v", got)
	}
	if got := FollowerEngagementRate(1000, 50, 30, 20); got != 10 {
		t.Errorf("FollowerEngagementRate() = %v, want 10", got)
	}
}

func TestMergeMetadata(t *testing.T) {
	existing := models.Metadata{"bio": "old", "verified": true}
	incoming := models.Metadata{"bio": "new", "country": "US"}
	overrides := models.Metadata{"country": "DE"}

	got := MergeMetadata(existing, incoming, overrides)

	want := models.Metadata{"bio": "new", "verified": true, "country": "DE"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeMetadata() = %v, want %v", got, want)
	}

	// Inputs must not be mutated
	if existing["bio"] != "old" {
		t.Error("MergeMetadata() mutated the existing map")
	}
}

func TestMergeMetadataIdempotent(t *testing.T) {
	a := models.Metadata{"k1": "v1"}
	b := models.Metadata{"k2": "v2"}

	once := MergeMetadata(a, b, nil)
	twice := MergeMetadata(once, nil, nil)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merging with empty maps should be identity: %v != %v", once, twice)
	}
}

func TestMergeMetadataNilInputs(t *testing.T) {
	got := MergeMetadata(nil, nil, nil)
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}

	got = MergeMetadata(nil, models.Metadata{"k": 1}, nil)
	if got["k"] != 1 {
		t.Errorf("expected incoming key to survive, got %v", got)
	}
}
