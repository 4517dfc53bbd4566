package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tracklog/internal/reconcile"
	"tracklog/internal/sport"
	"tracklog/internal/store"
	"tracklog/internal/strava"
)

type fakeStrava struct {
	activities []strava.Activity
	err        error
	gotAfter   time.Time
}

func (f *fakeStrava) GetAllActivities(ctx context.Context, after time.Time, onProgress func(int)) ([]strava.Activity, error) {
	f.gotAfter = after
	return f.activities, f.err
}

type fakeFitbit struct {
	rows []store.FitbitActivity
	err  error
}

func (f *fakeFitbit) GetActivities(ctx context.Context, after time.Time, onProgress func(int)) ([]store.FitbitActivity, error) {
	return f.rows, f.err
}

type fakeConnect struct {
	rows []store.ConnectActivity
	err  error
}

func (f *fakeConnect) GetActivities(ctx context.Context, after time.Time, onProgress func(int)) ([]store.ConnectActivity, error) {
	return f.rows, f.err
}

func insertTestSummary(t *testing.T, db *store.DB, filename string, begin time.Time) string {
	t.Helper()
	s := &store.Summary{ID: "s-" + filename, Filename: filename, Begin: begin, Sport: sport.Running}
	if err := db.UpsertSummary(s); err != nil {
		t.Fatal(err)
	}
	return s.ID
}

func TestSyncStravaStoresAndLinks(t *testing.T) {
	db := store.OpenTest(t)
	begin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	summaryID := insertTestSummary(t, db, "run.fit", begin)

	client := &fakeStrava{activities: []strava.Activity{
		{ID: 1, Name: "Morning Run", Type: "Run", StartDate: begin, Distance: 10000, ElapsedTime: 3600},
		{ID: 2, Name: "Unmatched", Type: "Run", StartDate: begin.Add(24 * time.Hour), ElapsedTime: 1800},
	}}
	svc := NewSyncService(db, client, nil, nil, zerolog.Nop())

	res, err := svc.SyncStrava(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fetched != 2 || res.Stored != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.Reconcile == nil || res.Reconcile.Linked != 1 {
		t.Errorf("reconcile = %+v, want 1 linked", res.Reconcile)
	}

	acts, _ := db.ListStravaActivities()
	if len(acts) != 2 {
		t.Fatalf("stored = %d", len(acts))
	}
	if acts[0].SummaryID == nil || *acts[0].SummaryID != summaryID {
		t.Errorf("link = %v", acts[0].SummaryID)
	}
	if acts[0].Sport != sport.Running {
		t.Errorf("sport = %s", acts[0].Sport)
	}

	// The watermark advances so the next sync is incremental.
	last, err := db.LastSync(reconcile.ProviderStrava)
	if err != nil {
		t.Fatal(err)
	}
	if last.IsZero() {
		t.Error("watermark not set")
	}
}

func TestSyncUsesWatermark(t *testing.T) {
	db := store.OpenTest(t)
	mark := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := db.SetLastSync(reconcile.ProviderStrava, mark); err != nil {
		t.Fatal(err)
	}

	client := &fakeStrava{}
	svc := NewSyncService(db, client, nil, nil, zerolog.Nop())
	if _, err := svc.SyncStrava(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if !client.gotAfter.Equal(mark) {
		t.Errorf("after = %s, want %s", client.gotAfter, mark)
	}
}

func TestSyncFitbit(t *testing.T) {
	db := store.OpenTest(t)
	begin := time.Date(2024, 1, 1, 8, 0, 45, 0, time.UTC)
	summaryID := insertTestSummary(t, db, "run.tcx", begin)

	client := &fakeFitbit{rows: []store.FitbitActivity{
		{LogID: 5, LogType: "tracker", StartTime: begin.Truncate(time.Minute), Duration: 1800000},
	}}
	svc := NewSyncService(db, nil, client, nil, zerolog.Nop())

	res, err := svc.SyncFitbit(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stored != 1 || res.Reconcile.Linked != 1 {
		t.Errorf("result = %+v reconcile = %+v", res, res.Reconcile)
	}

	acts, _ := db.ListFitbitActivities()
	if acts[0].SummaryID == nil || *acts[0].SummaryID != summaryID {
		t.Errorf("link = %v", acts[0].SummaryID)
	}
}

func TestSyncConnect(t *testing.T) {
	db := store.OpenTest(t)
	begin := time.Date(2024, 5, 20, 6, 30, 15, 0, time.UTC)
	insertTestSummary(t, db, "bike.fit", begin)

	client := &fakeConnect{rows: []store.ConnectActivity{
		{ActivityID: 9, StartTimeGMT: begin, Duration: 5400},
	}}
	svc := NewSyncService(db, nil, nil, client, zerolog.Nop())

	res, err := svc.SyncConnect(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stored != 1 || res.Reconcile.Linked != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestSyncAllContinuesPastProviderFailure(t *testing.T) {
	db := store.OpenTest(t)
	begin := time.Date(2024, 5, 20, 6, 30, 15, 0, time.UTC)
	insertTestSummary(t, db, "bike.fit", begin)

	svc := NewSyncService(db,
		&fakeStrava{err: errors.New("strava is down")},
		nil, // not configured
		&fakeConnect{rows: []store.ConnectActivity{{ActivityID: 9, StartTimeGMT: begin, Duration: 5400}}},
		zerolog.Nop())

	results, err := svc.SyncAll(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if len(results[0].Errors) == 0 || len(results[1].Errors) == 0 {
		t.Error("failed providers should carry errors")
	}
	if results[2].Stored != 1 {
		t.Errorf("connect still syncs: %+v", results[2])
	}
}
