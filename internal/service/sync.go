package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tracklog/internal/reconcile"
	"tracklog/internal/store"
	"tracklog/internal/strava"
)

// StravaClient is the slice of the Strava API the sync needs.
type StravaClient interface {
	GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]strava.Activity, error)
}

// FitbitClient fetches Fitbit activity log entries, already normalized.
type FitbitClient interface {
	GetActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]store.FitbitActivity, error)
}

// ConnectClient fetches Garmin Connect activities, already normalized.
type ConnectClient interface {
	GetActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]store.ConnectActivity, error)
}

// SyncResult is the outcome of one provider's sync.
type SyncResult struct {
	Provider  string            `json:"provider"`
	Fetched   int               `json:"fetched"`
	Stored    int               `json:"stored"`
	Reconcile *reconcile.Result `json:"reconcile,omitempty"`
	Errors    []error           `json:"-"`
}

// SyncService pulls new activity records from the provider APIs, stores
// them, and reconciles them against the summaries.
type SyncService struct {
	db      *store.DB
	strava  StravaClient
	fitbit  FitbitClient
	connect ConnectClient
	rec     *reconcile.Reconciler
	log     zerolog.Logger
}

// NewSyncService creates a sync service. Clients for providers the operator
// hasn't configured may be nil; their syncs report an error result.
func NewSyncService(db *store.DB, stravaClient StravaClient, fitbitClient FitbitClient, connectClient ConnectClient, log zerolog.Logger) *SyncService {
	return &SyncService{
		db:      db,
		strava:  stravaClient,
		fitbit:  fitbitClient,
		connect: connectClient,
		rec:     reconcile.New(db, log),
		log:     log.With().Str("component", "sync").Logger(),
	}
}

// SyncAll syncs every configured provider in a fixed order. Provider
// failures land in the results; they never stop the other providers.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- Progress) ([]SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	var results []SyncResult
	for _, sync := range []func(context.Context, chan<- Progress) (*SyncResult, error){
		s.syncStrava, s.syncFitbit, s.syncConnect,
	} {
		res, err := sync(ctx, progress)
		if err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			res.Errors = append(res.Errors, err)
		}
		results = append(results, *res)
	}
	return results, nil
}

// SyncStrava fetches and stores new Strava activities.
func (s *SyncService) SyncStrava(ctx context.Context, progress chan<- Progress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}
	return s.syncStrava(ctx, progress)
}

// SyncFitbit fetches and stores new Fitbit activity log entries.
func (s *SyncService) SyncFitbit(ctx context.Context, progress chan<- Progress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}
	return s.syncFitbit(ctx, progress)
}

// SyncConnect fetches and stores new Garmin Connect activities.
func (s *SyncService) SyncConnect(ctx context.Context, progress chan<- Progress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}
	return s.syncConnect(ctx, progress)
}

func (s *SyncService) syncStrava(ctx context.Context, progress chan<- Progress) (*SyncResult, error) {
	result := &SyncResult{Provider: reconcile.ProviderStrava}
	if s.strava == nil {
		return result, fmt.Errorf("strava is not configured")
	}

	after, err := s.db.LastSync(reconcile.ProviderStrava)
	if err != nil {
		return result, err
	}

	started := time.Now()
	activities, err := s.strava.GetAllActivities(ctx, after, func(fetched int) {
		report(progress, Progress{Phase: "strava", Completed: fetched})
	})
	if err != nil {
		return result, fmt.Errorf("fetching strava activities: %w", err)
	}
	result.Fetched = len(activities)

	for _, a := range activities {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.db.UpsertStravaActivity(a.ToRow()); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Stored++
	}

	return s.finish(ctx, result, started, s.rec.Strava)
}

func (s *SyncService) syncFitbit(ctx context.Context, progress chan<- Progress) (*SyncResult, error) {
	result := &SyncResult{Provider: reconcile.ProviderFitbit}
	if s.fitbit == nil {
		return result, fmt.Errorf("fitbit is not configured")
	}

	after, err := s.db.LastSync(reconcile.ProviderFitbit)
	if err != nil {
		return result, err
	}

	started := time.Now()
	rows, err := s.fitbit.GetActivities(ctx, after, func(fetched int) {
		report(progress, Progress{Phase: "fitbit", Completed: fetched})
	})
	if err != nil {
		return result, fmt.Errorf("fetching fitbit activities: %w", err)
	}
	result.Fetched = len(rows)

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.db.UpsertFitbitActivity(&rows[i]); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Stored++
	}

	return s.finish(ctx, result, started, s.rec.Fitbit)
}

func (s *SyncService) syncConnect(ctx context.Context, progress chan<- Progress) (*SyncResult, error) {
	result := &SyncResult{Provider: reconcile.ProviderConnect}
	if s.connect == nil {
		return result, fmt.Errorf("garmin connect is not configured")
	}

	after, err := s.db.LastSync(reconcile.ProviderConnect)
	if err != nil {
		return result, err
	}

	started := time.Now()
	rows, err := s.connect.GetActivities(ctx, after, func(fetched int) {
		report(progress, Progress{Phase: "connect", Completed: fetched})
	})
	if err != nil {
		return result, fmt.Errorf("fetching connect activities: %w", err)
	}
	result.Fetched = len(rows)

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.db.UpsertConnectActivity(&rows[i]); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Stored++
	}

	return s.finish(ctx, result, started, s.rec.Connect)
}

// finish runs the provider's reconciliation pass and advances the sync
// watermark. The watermark moves to the fetch start, not to now, so records
// created mid-sync are picked up next time.
func (s *SyncService) finish(ctx context.Context, result *SyncResult, started time.Time, pass func(context.Context) (*reconcile.Result, error)) (*SyncResult, error) {
	rec, err := pass(ctx)
	result.Reconcile = rec
	if err != nil {
		return result, fmt.Errorf("reconciling %s: %w", result.Provider, err)
	}
	if err := s.db.SetLastSync(result.Provider, started); err != nil {
		return result, fmt.Errorf("updating sync state: %w", err)
	}
	s.log.Info().
		Str("provider", result.Provider).
		Int("fetched", result.Fetched).
		Int("stored", result.Stored).
		Int("linked", rec.Linked).
		Msg("sync complete")
	return result, nil
}
