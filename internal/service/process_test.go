package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"tracklog/internal/sport"
	"tracklog/internal/store"
)

const runTXT = `date=20240301 time=10:00:00 type=running lap=0 dur=40:00 dis=4.0mi cal=450 avghr=140
date=20240301 time=10:40:00 type=running lap=1 dur=40:00 dis=4.0mi cal=450 avghr=150
`

const bikeTXT = `date=20240302 time=09:00:00 type=biking lap=0 dur=1:00:00 dis=15.0mi cal=600
`

func newProcessService(t *testing.T) (*ProcessService, *store.DB, afero.Fs) {
	t.Helper()
	db := store.OpenTest(t)
	fs := afero.NewMemMapFs()
	return NewProcessService(fs, db, zerolog.Nop(), 2), db, fs
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestProcessFiles(t *testing.T) {
	svc, db, fs := newProcessService(t)
	writeFile(t, fs, "/import/2024-03-01_run.txt", runTXT)
	writeFile(t, fs, "/import/2024-03-02_bike.txt", bikeTXT)

	res, err := svc.ProcessFiles(context.Background(), []string{
		"/import/2024-03-01_run.txt",
		"/import/2024-03-02_bike.txt",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || len(res.Failures) != 0 {
		t.Fatalf("result = %+v, want 2 processed", res)
	}

	s, err := db.GetSummaryByFilename("2024-03-01_run.txt")
	if err != nil {
		t.Fatal(err)
	}
	if s.Sport != sport.Running {
		t.Errorf("sport = %s", s.Sport)
	}
	if s.TotalCalories != 900 {
		t.Errorf("calories = %d, want 900", s.TotalCalories)
	}
	if s.TotalDuration != 4800 {
		t.Errorf("duration = %v, want 4800", s.TotalDuration)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if !s.Begin.Equal(want) {
		t.Errorf("begin = %s, want %s", s.Begin, want)
	}

	// The synthesized track is persisted too.
	n, err := db.GetTrackCount(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("track points = %d, want 2", n)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	svc, db, fs := newProcessService(t)
	writeFile(t, fs, "/import/run.txt", runTXT)
	paths := []string{"/import/run.txt"}

	first, err := svc.ProcessFiles(context.Background(), paths, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Processed != 1 {
		t.Fatalf("first run processed = %d", first.Processed)
	}
	before, err := db.GetSummaryByFilename("run.txt")
	if err != nil {
		t.Fatal(err)
	}

	// Byte-identical file: recognized by content hash, nothing re-written.
	second, err := svc.ProcessFiles(context.Background(), paths, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Processed != 0 || second.Unchanged != 1 {
		t.Errorf("second run = %+v, want 1 unchanged", second)
	}

	after, err := db.GetSummaryByFilename("run.txt")
	if err != nil {
		t.Fatal(err)
	}
	if after.ID != before.ID {
		t.Error("row id changed on re-import")
	}
	if after.MD5Sum != before.MD5Sum {
		t.Error("hash changed on re-import")
	}

	count, _ := db.CountSummaries()
	if count != 1 {
		t.Errorf("summaries = %d, want 1", count)
	}
}

func TestReimportKeepsIDOnChange(t *testing.T) {
	svc, db, fs := newProcessService(t)
	writeFile(t, fs, "/import/run.txt", runTXT)
	if _, err := svc.ProcessFiles(context.Background(), []string{"/import/run.txt"}, nil); err != nil {
		t.Fatal(err)
	}
	before, _ := db.GetSummaryByFilename("run.txt")

	// Same filename, new content: the row is replaced in place.
	writeFile(t, fs, "/import/run.txt", bikeTXT)
	res, err := svc.ProcessFiles(context.Background(), []string{"/import/run.txt"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("failures on re-import: %v", res.Failures)
	}
	if res.Processed != 1 {
		t.Fatalf("result = %+v", res)
	}

	after, _ := db.GetSummaryByFilename("run.txt")
	if after.ID != before.ID {
		t.Error("row id changed on re-import of modified file")
	}
	if after.Sport != sport.Biking {
		t.Errorf("sport = %s, want biking", after.Sport)
	}

	// The replaced track hangs off the surviving row id.
	n, err := db.GetTrackCount(after.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("no track attached to the re-imported summary")
	}
}

func TestBadFileDoesNotAbortBatch(t *testing.T) {
	svc, db, fs := newProcessService(t)
	writeFile(t, fs, "/import/good.txt", runTXT)
	writeFile(t, fs, "/import/bad.txt", "date=banana\n")

	res, err := svc.ProcessFiles(context.Background(), []string{
		"/import/bad.txt",
		"/import/good.txt",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 1 {
		t.Errorf("processed = %d, want 1", res.Processed)
	}
	if len(res.Failures) != 1 || res.Failures[0].File != "bad.txt" {
		t.Errorf("failures = %+v", res.Failures)
	}
	if _, err := db.GetSummaryByFilename("good.txt"); err != nil {
		t.Errorf("good file missing: %v", err)
	}
}

func TestProcessAppliesCorrections(t *testing.T) {
	svc, db, fs := newProcessService(t)
	writeFile(t, fs, "/import/run.txt", runTXT)

	dist := 5.0
	biking := "biking"
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	err := db.UpsertCorrection(&store.Correction{
		StartTime: start, LapNumber: 0, Distance: &dist, Sport: &biking,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ProcessFiles(context.Background(), []string{"/import/run.txt"}, nil); err != nil {
		t.Fatal(err)
	}

	s, _ := db.GetSummaryByFilename("run.txt")
	if s.Sport != sport.Biking {
		t.Errorf("sport = %s, want corrected biking", s.Sport)
	}
	// Lap 0 corrected to 5 miles, lap 1 keeps its parsed 4 miles.
	want := (5.0 + 4.0) * 1609.344
	if diff := s.TotalDistance - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("distance = %v, want %v", s.TotalDistance, want)
	}
}

func TestProcessReconcilesProviders(t *testing.T) {
	svc, db, fs := newProcessService(t)
	writeFile(t, fs, "/import/run.txt", runTXT)

	begin := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := db.UpsertStravaActivity(&store.StravaActivity{
		ID: 42, Name: "Morning Run", StartDate: begin, ElapsedTime: 4800, Sport: sport.Running,
	}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ProcessFiles(context.Background(), []string{"/import/run.txt"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var linked int
	for _, r := range res.Reconcile {
		linked += r.Linked
	}
	if linked != 1 {
		t.Errorf("linked = %d, want 1", linked)
	}

	s, _ := db.GetSummaryByFilename("run.txt")
	a, err := db.GetStravaActivityForSummary(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || a.ID != 42 {
		t.Errorf("strava link = %+v", a)
	}
}

func TestProcessDirWalks(t *testing.T) {
	svc, _, fs := newProcessService(t)
	writeFile(t, fs, "/import/a/run.txt", runTXT)
	writeFile(t, fs, "/import/b/bike.txt", bikeTXT)
	writeFile(t, fs, "/import/readme.md", "not an activity")

	res, err := svc.ProcessDir(context.Background(), "/import", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Files != 2 || res.Processed != 2 {
		t.Errorf("result = %+v, want 2 files processed", res)
	}
}
