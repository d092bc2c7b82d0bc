package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/models"
	"github.com/creatorlens/creatorlens/internal/providers"
	"github.com/creatorlens/creatorlens/pkg/config"
	"github.com/creatorlens/creatorlens/pkg/logging"
	"github.com/creatorlens/creatorlens/pkg/telemetry"
)

// FetcherRegistry resolves a platform to its fetcher.
type FetcherRegistry interface {
	Get(platform models.Platform) (providers.Fetcher, bool)
}

// RefreshStatus is the outcome class of one account's refresh.
type RefreshStatus string

const (
	StatusSuccess RefreshStatus = "success"
	StatusSkipped RefreshStatus = "skipped"
	StatusFailed  RefreshStatus = "failed"
)

// RefreshResult is one account's entry in a run report.
type RefreshResult struct {
	AccountID         int64           `json:"accountId"`
	ProviderAccountID string          `json:"providerAccountId"`
	Platform          models.Platform `json:"platform"`
	Status            RefreshStatus   `json:"status"`

	// Success fields
	ResolvedAccountID   string    `json:"resolvedAccountId,omitempty"`
	PostCount           int       `json:"postCount,omitempty"`
	SyncedAt            time.Time `json:"syncedAt,omitempty"`
	UsedIdentifier      string    `json:"usedIdentifier,omitempty"`
	Retry               bool      `json:"retry,omitempty"`
	IdentifierRefreshed bool      `json:"identifierRefreshed,omitempty"`

	// Failure fields
	Error      string    `json:"error,omitempty"`
	ErrorType  ErrorType `json:"errorType,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`

	// Skip fields
	Reason string `json:"reason,omitempty"`
}

// RunOptions scope one refresh run. OwnerID restricts the run to one
// owner's accounts when set. SpacingOverride replaces every platform's
// configured minimum call spacing when positive.
type RunOptions struct {
	OwnerID         string
	SpacingOverride time.Duration
}

// RunReport is the aggregate outcome of one refresh run.
type RunReport struct {
	Total       int             `json:"total"`
	Results     []RefreshResult `json:"results"`
	CompletedAt time.Time       `json:"completedAt"`
}

// PlatformSyncResult is one platform's entry in an all-platforms sweep.
type PlatformSyncResult struct {
	Platform   models.Platform `json:"platform"`
	AccountID  string          `json:"accountId,omitempty"`
	MediaCount int             `json:"mediaCount,omitempty"`
	SyncedAt   time.Time       `json:"syncedAt,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Refresher orchestrates scheduled refreshes across tracked accounts,
// spacing outbound calls per platform and retrying transient failures.
// Accounts are processed sequentially within a run: the per-platform
// spacing table is shared run state, and parallel fetches would defeat
// it without a per-platform partition.
type Refresher struct {
	store     Store
	registry  FetcherRegistry
	providers *config.ProvidersConfig
	engine    *Engine
	logger    *zap.Logger

	// Injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewRefresher creates a refresh orchestrator.
func NewRefresher(store Store, registry FetcherRegistry, providersCfg *config.ProvidersConfig, eng *Engine) *Refresher {
	return &Refresher{
		store:     store,
		registry:  registry,
		providers: providersCfg,
		engine:    eng,
		logger:    logging.WithComponent("refresher"),
		now:       time.Now,
		sleep:     waitCtx,
	}
}

// RefreshTrackedAccounts refreshes every tracked account, oldest-synced
// first, optionally scoped to one owner. Individual account failures are
// recorded in the report and never abort the run; only failing to list
// the tracked accounts is run-fatal.
func (r *Refresher) RefreshTrackedAccounts(ctx context.Context, opts RunOptions) (*RunReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "refresher.refresh_tracked_accounts")
	defer span.End()

	accounts, err := r.store.ListTrackedAccounts(ctx, opts.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked accounts: %w", err)
	}

	r.logger.Info("Starting refresh run",
		zap.Int("accounts", len(accounts)),
		zap.String("owner_id", opts.OwnerID))

	// Per-platform last-call table is owned by this run, so abandoned
	// runs leak no state into the next one.
	lastCall := make(map[models.Platform]time.Time)

	results := make([]RefreshResult, 0, len(accounts))
	for _, account := range accounts {
		results = append(results, r.refreshAccount(ctx, account, lastCall, opts.SpacingOverride))
	}

	report := &RunReport{
		Total:       len(accounts),
		Results:     results,
		CompletedAt: r.now().UTC(),
	}

	r.logger.Info("Refresh run completed",
		zap.Int("total", report.Total),
		zap.Int("failed", countStatus(results, StatusFailed)),
		zap.Int("skipped", countStatus(results, StatusSkipped)))

	return report, nil
}

func (r *Refresher) refreshAccount(ctx context.Context, account *models.Account, lastCall map[models.Platform]time.Time, spacingOverride time.Duration) RefreshResult {
	result := RefreshResult{
		AccountID:         account.ID,
		ProviderAccountID: account.ProviderAccountID,
		Platform:          account.Platform,
	}

	if !account.Platform.IsSupported() {
		result.Status = StatusSkipped
		result.Reason = fmt.Sprintf("unsupported platform %q", account.Platform)
		return result
	}

	fetcher, ok := r.registry.Get(account.Platform)
	if !ok {
		result.Status = StatusSkipped
		result.Reason = fmt.Sprintf("no fetcher registered for platform %q", account.Platform)
		return result
	}

	pcfg, _ := r.providers.ProviderFor(account.Platform.String())
	spacing := pcfg.MinSpacing
	if spacingOverride > 0 {
		spacing = spacingOverride
	}

	// Enforce minimum spacing between calls to the same platform
	if last, called := lastCall[account.Platform]; called {
		if elapsed := r.now().Sub(last); elapsed < spacing {
			r.sleep(ctx, spacing-elapsed)
		}
	}
	lastCall[account.Platform] = r.now()

	opts := providers.FetchOptions{
		AccountID: account.ProviderAccountID,
		Username:  account.Username,
	}
	result.UsedIdentifier = "id"
	if opts.AccountID == "" {
		result.UsedIdentifier = "username"
	}

	payload, fetchErr := r.fetchOnce(ctx, fetcher, opts)
	if fetchErr != nil {
		errType, status := ClassifyFetchError(fetchErr)

		switch {
		case errType == ErrorTypeRateLimited:
			r.logger.Warn("Rate limited, backing off before retry",
				zap.String("platform", account.Platform.String()),
				zap.Duration("backoff", pcfg.RateLimitBackoff))
			r.sleep(ctx, pcfg.RateLimitBackoff)
			lastCall[account.Platform] = r.now()
			if retried, retryErr := r.fetchOnce(ctx, fetcher, opts); retryErr == nil {
				payload, fetchErr = retried, nil
				result.Retry = true
			}

		case errType == ErrorTypeNotFound && account.Username != "":
			// The stored provider id may have rotated; re-resolve by handle
			r.logger.Warn("Account not found by id, re-resolving by username",
				zap.String("platform", account.Platform.String()),
				zap.String("username", account.Username))
			lastCall[account.Platform] = r.now()
			refreshOpts := providers.FetchOptions{Username: account.Username}
			if resolved, retryErr := r.fetchOnce(ctx, fetcher, refreshOpts); retryErr == nil {
				payload, fetchErr = resolved, nil
				result.IdentifierRefreshed = true
				result.UsedIdentifier = "username"
			}
		}

		if fetchErr != nil {
			// The original error is what gets recorded, even when a
			// retry failed with something else.
			result.Status = StatusFailed
			result.Error = fetchErr.Error()
			result.ErrorType = errType
			result.StatusCode = status
			return result
		}
	}

	upserted, err := r.engine.UpsertPlatformData(ctx, account.OwnerID, account.Platform, payload.Account, payload.Media)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		result.ErrorType = ErrorTypeStorage
		return result
	}

	result.Status = StatusSuccess
	result.ResolvedAccountID = upserted.Account.ProviderAccountID
	result.PostCount = len(upserted.PostIDs)
	result.SyncedAt = upserted.Account.LastSyncedAt
	return result
}

// fetchOnce races one fetch against the fixed per-fetch timeout. The
// orchestrator enforces this sub-timeout regardless of caller deadline.
func (r *Refresher) fetchOnce(ctx context.Context, fetcher providers.Fetcher, opts providers.FetchOptions) (*providers.Payload, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.providers.FetchTimeout)
	defer cancel()
	return fetcher.Fetch(fetchCtx, opts)
}

// SyncAllPlatforms performs an operator-triggered sweep over the fixed
// platform set, one provider-level fetch each, recording failures and
// continuing. No retries in this mode.
func (r *Refresher) SyncAllPlatforms(ctx context.Context, ownerID string) ([]PlatformSyncResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "refresher.sync_all_platforms")
	defer span.End()

	results := make([]PlatformSyncResult, 0, len(models.SupportedPlatforms))
	for _, platform := range models.SupportedPlatforms {
		result := PlatformSyncResult{Platform: platform}

		fetcher, ok := r.registry.Get(platform)
		if !ok {
			result.Error = fmt.Sprintf("no fetcher registered for platform %q", platform)
			results = append(results, result)
			continue
		}

		payload, err := r.fetchOnce(ctx, fetcher, providers.FetchOptions{})
		if err != nil {
			r.logger.Error("Platform sweep fetch failed",
				zap.String("platform", platform.String()),
				zap.Error(err))
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		upserted, err := r.engine.UpsertPlatformData(ctx, ownerID, platform, payload.Account, payload.Media)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		result.AccountID = upserted.Account.ProviderAccountID
		result.MediaCount = len(upserted.PostIDs)
		result.SyncedAt = upserted.Account.LastSyncedAt
		results = append(results, result)
	}

	return results, nil
}

// waitCtx waits for the duration or until the context is cancelled.
func waitCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func countStatus(results []RefreshResult, status RefreshStatus) int {
	n := 0
	for _, res := range results {
		if res.Status == status {
			n++
		}
	}
	return n
}
