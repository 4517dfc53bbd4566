package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tracklog/internal/sport"
	"tracklog/internal/store"
)

func newReconciler(t *testing.T) (*Reconciler, *store.DB) {
	t.Helper()
	db := store.OpenTest(t)
	return New(db, zerolog.Nop()), db
}

func insertSummary(t *testing.T, db *store.DB, filename string, begin time.Time) string {
	t.Helper()
	s := &store.Summary{
		ID:       uuid.NewString(),
		Filename: filename,
		Begin:    begin,
		Sport:    sport.Running,
	}
	if err := db.UpsertSummary(s); err != nil {
		t.Fatalf("upserting summary %s: %v", filename, err)
	}
	return s.ID
}

func TestStravaExactMatch(t *testing.T) {
	r, db := newReconciler(t)
	begin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	summaryID := insertSummary(t, db, "2024-03-01_run.fit", begin)

	matching := &store.StravaActivity{ID: 100, Name: "Morning Run", StartDate: begin, ElapsedTime: 3600, Sport: sport.Running}
	offByOne := &store.StravaActivity{ID: 101, Name: "Ghost Run", StartDate: begin.Add(time.Second), ElapsedTime: 3600, Sport: sport.Running}
	for _, a := range []*store.StravaActivity{matching, offByOne} {
		if err := db.UpsertStravaActivity(a); err != nil {
			t.Fatal(err)
		}
	}

	res, err := r.Strava(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Candidates != 2 || res.Linked != 1 || res.Unmatched != 1 {
		t.Errorf("result = %+v, want 2 candidates, 1 linked, 1 unmatched", res)
	}

	acts, err := db.ListStravaActivities()
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range acts {
		switch a.ID {
		case 100:
			if a.SummaryID == nil || *a.SummaryID != summaryID {
				t.Errorf("activity 100 link = %v, want %s", a.SummaryID, summaryID)
			}
		case 101:
			// One second off is not a match.
			if a.SummaryID != nil {
				t.Errorf("activity 101 linked to %s, want unlinked", *a.SummaryID)
			}
		}
	}
}

func TestFitbitMinuteGranularity(t *testing.T) {
	r, db := newReconciler(t)
	begin := time.Date(2024, 1, 1, 8, 0, 45, 0, time.UTC)
	summaryID := insertSummary(t, db, "2024-01-01_run.tcx", begin)

	// Fitbit reports the start truncated to the minute; seconds must not
	// prevent the match.
	a := &store.FitbitActivity{LogID: 7, LogType: "tracker", StartTime: begin.Truncate(time.Minute), Duration: 1800000}
	if err := db.UpsertFitbitActivity(a); err != nil {
		t.Fatal(err)
	}
	if got, want := MinuteKey(a.StartTime), "2024-01-01 08:00"; got != want {
		t.Fatalf("MinuteKey = %q, want %q", got, want)
	}

	res, err := r.Fitbit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Linked != 1 {
		t.Fatalf("linked = %d, want 1", res.Linked)
	}

	acts, _ := db.ListFitbitActivities()
	if acts[0].SummaryID == nil || *acts[0].SummaryID != summaryID {
		t.Errorf("link = %v, want %s", acts[0].SummaryID, summaryID)
	}
}

func TestFitbitAmbiguousLeftUnlinked(t *testing.T) {
	r, db := newReconciler(t)
	// Two summaries in the same minute both match one Fitbit record.
	insertSummary(t, db, "a.tcx", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	insertSummary(t, db, "b.tcx", time.Date(2024, 1, 1, 8, 0, 45, 0, time.UTC))

	a := &store.FitbitActivity{LogID: 9, LogType: "tracker", StartTime: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), Duration: 60000}
	if err := db.UpsertFitbitActivity(a); err != nil {
		t.Fatal(err)
	}

	res, err := r.Fitbit(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Linked != 0 {
		t.Errorf("linked = %d, want 0", res.Linked)
	}
	if len(res.Ambiguities) != 1 {
		t.Fatalf("ambiguities = %d, want 1", len(res.Ambiguities))
	}
	if got := res.Ambiguities[0]; got.RecordID != "9" || len(got.SummaryIDs) != 2 {
		t.Errorf("ambiguity = %+v", got)
	}

	acts, _ := db.ListFitbitActivities()
	if acts[0].SummaryID != nil {
		t.Error("ambiguous record was linked")
	}
}

func TestConnectExactMatch(t *testing.T) {
	r, db := newReconciler(t)
	begin := time.Date(2024, 5, 20, 6, 30, 15, 0, time.UTC)
	summaryID := insertSummary(t, db, "2024-05-20_bike.fit", begin)

	a := &store.ConnectActivity{ActivityID: 555, StartTimeGMT: begin, Duration: 5400}
	if err := db.UpsertConnectActivity(a); err != nil {
		t.Fatal(err)
	}

	res, err := r.Connect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Linked != 1 {
		t.Fatalf("linked = %d, want 1", res.Linked)
	}
	acts, _ := db.ListConnectActivities()
	if acts[0].SummaryID == nil || *acts[0].SummaryID != summaryID {
		t.Errorf("link = %v, want %s", acts[0].SummaryID, summaryID)
	}
}

func TestRacesMatchByFilename(t *testing.T) {
	r, db := newReconciler(t)
	summaryID := insertSummary(t, db, "2023-10-08_marathon.fit", time.Date(2023, 10, 8, 13, 0, 0, 0, time.UTC))

	fn := "2023-10-08_marathon.fit"
	date := time.Date(2023, 10, 8, 0, 0, 0, 0, time.UTC)
	race := &store.RaceResult{
		ID:           uuid.NewString(),
		RaceType:     store.RaceTypePersonal,
		RaceDate:     &date,
		RaceDistance: 42195,
		RaceTime:     3 * 3600,
		RaceFilename: &fn,
	}
	if err := db.UpsertRaceResult(race); err != nil {
		t.Fatal(err)
	}
	// No filename means nothing to match on; the pass rejects the record
	// without touching the rest of the batch.
	broken := &store.RaceResult{ID: uuid.NewString(), RaceType: store.RaceTypePersonal, RaceDistance: 5000, RaceTime: 1200}
	if err := db.UpsertRaceResult(broken); err != nil {
		t.Fatal(err)
	}

	res, err := r.Races(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Linked != 1 {
		t.Errorf("linked = %d, want 1", res.Linked)
	}

	races, _ := db.ListRaceResults(store.RaceTypePersonal)
	for _, got := range races {
		if got.ID == race.ID {
			if got.SummaryID == nil || *got.SummaryID != summaryID {
				t.Errorf("race link = %v, want %s", got.SummaryID, summaryID)
			}
		}
	}
}

func TestRerunIsIdempotent(t *testing.T) {
	r, db := newReconciler(t)
	begin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	insertSummary(t, db, "run.fit", begin)
	if err := db.UpsertStravaActivity(&store.StravaActivity{ID: 1, Name: "Run", StartDate: begin, ElapsedTime: 60, Sport: sport.Running}); err != nil {
		t.Fatal(err)
	}

	first, err := r.Strava(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.Linked != 1 {
		t.Fatalf("first run linked = %d, want 1", first.Linked)
	}

	second, err := r.Strava(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if second.Candidates != 0 || second.Linked != 0 {
		t.Errorf("second run = %+v, want no candidates and no changes", second)
	}
}

func TestEstablishedLinkSurvivesResync(t *testing.T) {
	r, db := newReconciler(t)
	begin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	summaryID := insertSummary(t, db, "run.fit", begin)
	if err := db.UpsertStravaActivity(&store.StravaActivity{ID: 1, Name: "Run", StartDate: begin, ElapsedTime: 60, Sport: sport.Running}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Strava(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A later provider sync re-upserts the same record without a link; the
	// stored link must not be cleared.
	if err := db.UpsertStravaActivity(&store.StravaActivity{ID: 1, Name: "Run renamed", StartDate: begin, ElapsedTime: 61, Sport: sport.Running}); err != nil {
		t.Fatal(err)
	}
	acts, _ := db.ListStravaActivities()
	if acts[0].SummaryID == nil || *acts[0].SummaryID != summaryID {
		t.Errorf("link after resync = %v, want %s", acts[0].SummaryID, summaryID)
	}
	if acts[0].Name != "Run renamed" {
		t.Errorf("name = %q, want updated name", acts[0].Name)
	}
}

func TestAllRunsEveryProvider(t *testing.T) {
	r, _ := newReconciler(t)
	results, err := r.All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{ProviderStrava, ProviderFitbit, ProviderConnect, ProviderRaces}
	if len(results) != len(want) {
		t.Fatalf("results = %d, want %d", len(results), len(want))
	}
	for i, res := range results {
		if res.Provider != want[i] {
			t.Errorf("results[%d].Provider = %s, want %s", i, res.Provider, want[i])
		}
	}
}

func TestCancelledContextStopsPass(t *testing.T) {
	r, db := newReconciler(t)
	begin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	insertSummary(t, db, "run.fit", begin)
	if err := db.UpsertStravaActivity(&store.StravaActivity{ID: 1, Name: "Run", StartDate: begin, ElapsedTime: 60, Sport: sport.Running}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Strava(ctx); err == nil {
		t.Error("expected context error")
	}
}
