// Package reconcile links externally-synced provider records to their
// canonical activity summary. Every provider matches on equality of a
// normalized key, never nearest-neighbor: Strava and Garmin Connect on the
// exact start timestamp, Fitbit on the start timestamp truncated to the
// minute, race results on the imported filename. Only records without a link
// are candidates, so a pass can be re-run at any time without disturbing
// established (possibly hand-corrected) links.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tracklog/internal/store"
)

// Provider names as they appear in pass results and sync state.
const (
	ProviderStrava  = "strava"
	ProviderFitbit  = "fitbit"
	ProviderConnect = "connect"
	ProviderRaces   = "races"
)

// Ambiguity is one record that matched more than one summary. It is reported
// and left unlinked; picking a row arbitrarily would silently attach the
// record to the wrong activity.
type Ambiguity struct {
	RecordID   string   `json:"record_id"`
	SummaryIDs []string `json:"summary_ids"`
}

// Result is the outcome of one provider's pass.
type Result struct {
	Provider    string      `json:"provider"`
	Candidates  int         `json:"candidates"`
	Linked      int         `json:"linked"`
	Unmatched   int         `json:"unmatched"`
	Ambiguities []Ambiguity `json:"ambiguities,omitempty"`
	Errors      []error     `json:"-"`
}

// Reconciler runs linking passes against the store.
type Reconciler struct {
	db  *store.DB
	log zerolog.Logger
}

func New(db *store.DB, log zerolog.Logger) *Reconciler {
	return &Reconciler{db: db, log: log.With().Str("component", "reconcile").Logger()}
}

// All runs every provider's pass in a fixed order. Per-record failures land
// in the pass results; only a store-level failure aborts.
func (r *Reconciler) All(ctx context.Context) ([]Result, error) {
	var results []Result
	for _, pass := range []func(context.Context) (*Result, error){
		r.Strava, r.Fitbit, r.Connect, r.Races,
	} {
		res, err := pass(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
	}
	return results, nil
}

// Strava links Strava activities by exact start_date equality.
func (r *Reconciler) Strava(ctx context.Context) (*Result, error) {
	acts, err := r.db.ListUnlinkedStravaActivities()
	if err != nil {
		return nil, fmt.Errorf("listing unlinked strava activities: %w", err)
	}

	res := &Result{Provider: ProviderStrava, Candidates: len(acts)}
	for _, a := range acts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		recordID := fmt.Sprintf("%d", a.ID)
		if a.StartDate.IsZero() {
			res.Errors = append(res.Errors, fmt.Errorf("strava activity %d: missing start date", a.ID))
			continue
		}
		ids, err := r.db.FindSummaryIDsByBegin(a.StartDate)
		if err != nil {
			return res, fmt.Errorf("matching strava activity %d: %w", a.ID, err)
		}
		r.resolve(res, recordID, ids, func(summaryID string) (bool, error) {
			return r.db.LinkStravaActivity(a.ID, summaryID)
		})
	}
	return res, nil
}

// Fitbit links Fitbit log entries by start time at minute granularity.
func (r *Reconciler) Fitbit(ctx context.Context) (*Result, error) {
	acts, err := r.db.ListUnlinkedFitbitActivities()
	if err != nil {
		return nil, fmt.Errorf("listing unlinked fitbit activities: %w", err)
	}

	res := &Result{Provider: ProviderFitbit, Candidates: len(acts)}
	for _, a := range acts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		recordID := fmt.Sprintf("%d", a.LogID)
		if a.StartTime.IsZero() {
			res.Errors = append(res.Errors, fmt.Errorf("fitbit activity %d: missing start time", a.LogID))
			continue
		}
		ids, err := r.db.FindSummaryIDsByBeginMinute(a.StartTime)
		if err != nil {
			return res, fmt.Errorf("matching fitbit activity %d: %w", a.LogID, err)
		}
		r.resolve(res, recordID, ids, func(summaryID string) (bool, error) {
			return r.db.LinkFitbitActivity(a.LogID, summaryID)
		})
	}
	return res, nil
}

// Connect links Garmin Connect activities by exact start_time_gmt equality.
func (r *Reconciler) Connect(ctx context.Context) (*Result, error) {
	acts, err := r.db.ListUnlinkedConnectActivities()
	if err != nil {
		return nil, fmt.Errorf("listing unlinked connect activities: %w", err)
	}

	res := &Result{Provider: ProviderConnect, Candidates: len(acts)}
	for _, a := range acts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		recordID := fmt.Sprintf("%d", a.ActivityID)
		if a.StartTimeGMT.IsZero() {
			res.Errors = append(res.Errors, fmt.Errorf("connect activity %d: missing start time", a.ActivityID))
			continue
		}
		ids, err := r.db.FindSummaryIDsByBegin(a.StartTimeGMT)
		if err != nil {
			return res, fmt.Errorf("matching connect activity %d: %w", a.ActivityID, err)
		}
		r.resolve(res, recordID, ids, func(summaryID string) (bool, error) {
			return r.db.LinkConnectActivity(a.ActivityID, summaryID)
		})
	}
	return res, nil
}

// Races links race results by filename equality against the imported device
// file. Races carry an explicit file reference rather than a timestamp.
func (r *Reconciler) Races(ctx context.Context) (*Result, error) {
	races, err := r.db.ListUnlinkedRaceResults()
	if err != nil {
		return nil, fmt.Errorf("listing unlinked race results: %w", err)
	}

	res := &Result{Provider: ProviderRaces, Candidates: len(races)}
	for _, race := range races {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if race.RaceFilename == nil || *race.RaceFilename == "" {
			res.Errors = append(res.Errors, fmt.Errorf("race result %s: missing filename", race.ID))
			continue
		}
		ids, err := r.db.FindSummaryIDsByFilename(*race.RaceFilename)
		if err != nil {
			return res, fmt.Errorf("matching race result %s: %w", race.ID, err)
		}
		id := race.ID
		r.resolve(res, id, ids, func(summaryID string) (bool, error) {
			return r.db.LinkRaceResult(id, summaryID)
		})
	}
	return res, nil
}

// resolve applies the shared zero/one/many policy to a record's candidate
// summaries. Exactly one candidate links; zero counts as unmatched; several
// are surfaced as an ambiguity and left for the operator.
func (r *Reconciler) resolve(res *Result, recordID string, summaryIDs []string, link func(string) (bool, error)) {
	switch len(summaryIDs) {
	case 0:
		res.Unmatched++
	case 1:
		linked, err := link(summaryIDs[0])
		if err != nil {
			res.Errors = append(res.Errors, err)
			return
		}
		if linked {
			res.Linked++
		} else {
			// Another pass got there first; the record is no longer ours.
			res.Unmatched++
		}
	default:
		res.Ambiguities = append(res.Ambiguities, Ambiguity{RecordID: recordID, SummaryIDs: summaryIDs})
		r.log.Warn().
			Str("provider", res.Provider).
			Str("record", recordID).
			Strs("summaries", summaryIDs).
			Msg("record matches multiple summaries, leaving unlinked")
	}
}

// MinuteKey is the normalized form Fitbit timestamps compare under.
func MinuteKey(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
