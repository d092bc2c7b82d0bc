package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/internal/providers"
)

func seedAccount(store *fakeStore, id int64, platform models.Platform, providerID, username string) {
	store.accounts[accountKey(platform, providerID)] = &models.Account{
		ID:                id,
		Platform:          platform,
		ProviderAccountID: providerID,
		Username:          username,
	}
	if id > store.nextAccountID {
		store.nextAccountID = id
	}
}

func resultFor(t *testing.T, report *RunReport, providerID string) RefreshResult {
	t.Helper()
	for _, res := range report.Results {
		if res.ProviderAccountID == providerID {
			return res
		}
	}
	t.Fatalf("no result for account %s", providerID)
	return RefreshResult{}
}

func TestRefreshTrackedAccountsRateLimitRetrySucceeds(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformInstagram, "ig-1", "one")
	seedAccount(store, 2, models.PlatformInstagram, "ig-2", "two")
	seedAccount(store, 3, models.PlatformInstagram, "ig-3", "three")

	fetcher := &scriptedFetcher{
		platform: models.PlatformInstagram,
		steps: []fetchStep{
			{payload: testPayload("ig-1", 1)},
			{err: &providers.APIError{StatusCode: 429, Message: "too many requests"}},
			{payload: testPayload("ig-2", 1)}, // the retry
			{payload: testPayload("ig-3", 1)},
		},
	}

	var sleeps []time.Duration
	r := newTestRefresher(store, fakeRegistry{models.PlatformInstagram: fetcher}, &sleeps)

	report, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("RefreshTrackedAccounts() error: %v", err)
	}

	if report.Total != 3 || len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got total=%d len=%d", report.Total, len(report.Results))
	}

	second := resultFor(t, report, "ig-2")
	if second.Status != StatusSuccess || !second.Retry {
		t.Errorf("expected retried success for ig-2, got status=%s retry=%v", second.Status, second.Retry)
	}

	for _, id := range []string{"ig-1", "ig-3"} {
		res := resultFor(t, report, id)
		if res.Status != StatusSuccess || res.Retry {
			t.Errorf("%s: expected clean success, got status=%s retry=%v", id, res.Status, res.Retry)
		}
	}

	// The rate-limit backoff for instagram must appear among the sleeps
	found := false
	for _, d := range sleeps {
		if d == 30*time.Second {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 30s rate-limit backoff sleep, got %v", sleeps)
	}
}

func TestRefreshTrackedAccountsRateLimitRetryFails(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformTikTok, "tk-1", "one")

	fetcher := &scriptedFetcher{
		platform: models.PlatformTikTok,
		steps: []fetchStep{
			{err: &providers.APIError{StatusCode: 429, Message: "rate limit"}},
			{err: errors.New("still broken")},
		},
	}

	r := newTestRefresher(store, fakeRegistry{models.PlatformTikTok: fetcher}, nil)

	report, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("RefreshTrackedAccounts() error: %v", err)
	}

	res := report.Results[0]
	if res.Status != StatusFailed {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	// The original classification is recorded, not the retry's
	if res.ErrorType != ErrorTypeRateLimited || res.StatusCode != 429 {
		t.Errorf("recorded error = %s/%d, want rate_limited/429", res.ErrorType, res.StatusCode)
	}
	if len(fetcher.calls) != 2 {
		t.Errorf("expected exactly one retry, got %d calls", len(fetcher.calls))
	}
}

func TestRefreshTrackedAccountsNotFoundReResolvesByUsername(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformYouTube, "stale-id", "handle")

	fetcher := &scriptedFetcher{
		platform: models.PlatformYouTube,
		steps: []fetchStep{
			{err: &providers.APIError{StatusCode: 404, Message: "channel not found"}},
			{payload: testPayload("fresh-id", 0)},
		},
	}

	r := newTestRefresher(store, fakeRegistry{models.PlatformYouTube: fetcher}, nil)

	report, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("RefreshTrackedAccounts() error: %v", err)
	}

	res := report.Results[0]
	if res.Status != StatusSuccess || !res.IdentifierRefreshed {
		t.Fatalf("expected identifier-refreshed success, got status=%s refreshed=%v", res.Status, res.IdentifierRefreshed)
	}
	if res.ResolvedAccountID != "fresh-id" {
		t.Errorf("resolved id = %s, want fresh-id", res.ResolvedAccountID)
	}
	if res.UsedIdentifier != "username" {
		t.Errorf("used identifier = %s, want username", res.UsedIdentifier)
	}

	// The re-resolution call must drop the stale provider id
	second := fetcher.calls[1]
	if second.AccountID != "" || second.Username != "handle" {
		t.Errorf("re-resolution used %+v, want username only", second)
	}
}

func TestRefreshTrackedAccountsNotFoundWithoutUsername(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformYouTube, "gone", "")

	fetcher := &scriptedFetcher{
		platform: models.PlatformYouTube,
		steps:    []fetchStep{{err: &providers.APIError{StatusCode: 404, Message: "not found"}}},
	}

	r := newTestRefresher(store, fakeRegistry{models.PlatformYouTube: fetcher}, nil)

	report, _ := r.RefreshTrackedAccounts(context.Background(), RunOptions{})
	res := report.Results[0]

	if res.Status != StatusFailed || res.ErrorType != ErrorTypeNotFound {
		t.Errorf("expected not_found failure, got status=%s type=%s", res.Status, res.ErrorType)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("no re-resolution possible without a username, got %d calls", len(fetcher.calls))
	}
}

func TestRefreshTrackedAccountsSkipsUnsupportedPlatform(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.Platform("vine"), "v-1", "old")
	seedAccount(store, 2, models.PlatformInstagram, "ig-1", "ok")

	fetcher := &scriptedFetcher{
		platform: models.PlatformInstagram,
		steps:    []fetchStep{{payload: testPayload("ig-1", 0)}},
	}

	r := newTestRefresher(store, fakeRegistry{models.PlatformInstagram: fetcher}, nil)

	report, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("RefreshTrackedAccounts() error: %v", err)
	}

	skipped := resultFor(t, report, "v-1")
	if skipped.Status != StatusSkipped || skipped.Reason == "" {
		t.Errorf("expected skip with reason, got status=%s reason=%q", skipped.Status, skipped.Reason)
	}
	if resultFor(t, report, "ig-1").Status != StatusSuccess {
		t.Error("supported account should still refresh")
	}
}

func TestRefreshTrackedAccountsEnforcesSpacing(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformInstagram, "ig-1", "a")
	seedAccount(store, 2, models.PlatformInstagram, "ig-2", "b")

	fetcher := &scriptedFetcher{
		platform: models.PlatformInstagram,
		steps: []fetchStep{
			{payload: testPayload("ig-1", 0)},
			{payload: testPayload("ig-2", 0)},
		},
	}

	var sleeps []time.Duration
	r := newTestRefresher(store, fakeRegistry{models.PlatformInstagram: fetcher}, &sleeps)

	if _, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("RefreshTrackedAccounts() error: %v", err)
	}

	// Frozen clock: the second same-platform call needs the full spacing
	if len(sleeps) != 1 || sleeps[0] != 3*time.Second {
		t.Errorf("expected one 3s spacing sleep, got %v", sleeps)
	}
}

func TestRefreshTrackedAccountsSpacingOverride(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformInstagram, "ig-1", "a")
	seedAccount(store, 2, models.PlatformInstagram, "ig-2", "b")

	fetcher := &scriptedFetcher{
		platform: models.PlatformInstagram,
		steps: []fetchStep{
			{payload: testPayload("ig-1", 0)},
			{payload: testPayload("ig-2", 0)},
		},
	}

	var sleeps []time.Duration
	r := newTestRefresher(store, fakeRegistry{models.PlatformInstagram: fetcher}, &sleeps)

	opts := RunOptions{SpacingOverride: 500 * time.Millisecond}
	if _, err := r.RefreshTrackedAccounts(context.Background(), opts); err != nil {
		t.Fatalf("RefreshTrackedAccounts() error: %v", err)
	}

	if len(sleeps) != 1 || sleeps[0] != 500*time.Millisecond {
		t.Errorf("expected the override spacing, got %v", sleeps)
	}
}

func TestRefreshTrackedAccountsListFailureIsRunFatal(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("db down")

	r := newTestRefresher(store, fakeRegistry{}, nil)

	if _, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{}); err == nil {
		t.Fatal("expected a run-fatal error when the account list cannot be loaded")
	}
}

func TestRefreshTrackedAccountsStorageFailureIsPerAccount(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, 1, models.PlatformInstagram, "ig-1", "a")
	store.accountErr = errors.New("constraint violation")

	fetcher := &scriptedFetcher{
		platform: models.PlatformInstagram,
		steps:    []fetchStep{{payload: testPayload("ig-1", 0)}},
	}

	r := newTestRefresher(store, fakeRegistry{models.PlatformInstagram: fetcher}, nil)

	report, err := r.RefreshTrackedAccounts(context.Background(), RunOptions{})
	if err != nil {
		t.Fatalf("storage failure must not abort the run: %v", err)
	}

	res := report.Results[0]
	if res.Status != StatusFailed || res.ErrorType != ErrorTypeStorage {
		t.Errorf("expected storage failure result, got status=%s type=%s", res.Status, res.ErrorType)
	}
}

func TestSyncAllPlatforms(t *testing.T) {
	store := newFakeStore()

	instagram := &scriptedFetcher{
		platform: models.PlatformInstagram,
		steps:    []fetchStep{{payload: testPayload("ig-self", 2)}},
	}
	tiktok := &scriptedFetcher{
		platform: models.PlatformTikTok,
		steps:    []fetchStep{{err: errors.New("token expired")}},
	}
	youtube := &scriptedFetcher{
		platform: models.PlatformYouTube,
		steps:    []fetchStep{{payload: testPayload("yt-self", 1)}},
	}

	r := newTestRefresher(store, fakeRegistry{
		models.PlatformInstagram: instagram,
		models.PlatformTikTok:    tiktok,
		models.PlatformYouTube:   youtube,
	}, nil)

	results, err := r.SyncAllPlatforms(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("SyncAllPlatforms() error: %v", err)
	}

	if len(results) != len(models.SupportedPlatforms) {
		t.Fatalf("expected %d results, got %d", len(models.SupportedPlatforms), len(results))
	}

	byPlatform := make(map[models.Platform]PlatformSyncResult)
	for _, res := range results {
		byPlatform[res.Platform] = res
	}

	if res := byPlatform[models.PlatformInstagram]; res.AccountID != "ig-self" || res.MediaCount != 2 {
		t.Errorf("instagram result = %+v", res)
	}
	if res := byPlatform[models.PlatformTikTok]; res.Error == "" {
		t.Error("tiktok failure should be recorded, not raised")
	}
	if res := byPlatform[models.PlatformYouTube]; res.AccountID != "yt-self" {
		t.Errorf("youtube result = %+v", res)
	}

	// Sweep mode never retries
	if len(tiktok.calls) != 1 {
		t.Errorf("expected a single tiktok call, got %d", len(tiktok.calls))
	}
}
