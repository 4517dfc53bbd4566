package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"tracklog/internal/sport"
)

func testSummary(filename string, begin time.Time) *Summary {
	return &Summary{
		ID:            uuid.NewString(),
		Filename:      filename,
		Begin:         begin,
		Sport:         sport.Running,
		TotalCalories: 400,
		TotalDistance: 8000,
		TotalDuration: 2400,
		TotalHRDur:    150 * 2400,
		TotalHRDis:    2400,
		MD5Sum:        "abc",
	}
}

func TestUpsertSummaryKeepsIDOnConflict(t *testing.T) {
	db := OpenTest(t)
	begin := time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC)

	first := testSummary("a.fit", begin)
	if err := db.UpsertSummary(first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := testSummary("a.fit", begin)
	second.TotalDistance = 9000
	second.MD5Sum = "def"
	if err := db.UpsertSummary(second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("id changed on reimport: %s != %s", second.ID, first.ID)
	}
	got, err := db.GetSummary(first.ID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if got.TotalDistance != 9000 || got.MD5Sum != "def" {
		t.Errorf("row not updated: %+v", got)
	}
	if n, _ := db.CountSummaries(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestListSummariesFilter(t *testing.T) {
	db := OpenTest(t)
	mk := func(name string, begin time.Time, sp sport.Sport) {
		s := testSummary(name, begin)
		s.Sport = sp
		if err := db.UpsertSummary(s); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}
	mk("a.fit", time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC), sport.Running)
	mk("b.fit", time.Date(2023, 8, 1, 7, 0, 0, 0, time.UTC), sport.Biking)
	mk("c.fit", time.Date(2024, 2, 1, 7, 0, 0, 0, time.UTC), sport.Running)

	all, err := db.ListSummaries(SummaryFilter{})
	if err != nil {
		t.Fatalf("ListSummaries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d, want 3", len(all))
	}
	if all[0].Filename != "c.fit" {
		t.Errorf("expected newest first, got %s", all[0].Filename)
	}

	runs, err := db.ListSummaries(SummaryFilter{Sport: sport.Running})
	if err != nil {
		t.Fatalf("sport filter: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("running filter got %d, want 2", len(runs))
	}

	y2023, err := db.ListSummaries(SummaryFilter{
		After:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Before: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("window filter: %v", err)
	}
	if len(y2023) != 2 {
		t.Errorf("2023 window got %d, want 2", len(y2023))
	}

	limited, err := db.ListSummaries(SummaryFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("limit filter: %v", err)
	}
	if len(limited) != 1 || limited[0].Filename != "b.fit" {
		t.Errorf("limit/offset got %v", limited)
	}
}

func TestMatchingQueries(t *testing.T) {
	db := OpenTest(t)
	begin := time.Date(2023, 6, 1, 7, 0, 30, 0, time.UTC)
	s := testSummary("race.fit", begin)
	if err := db.UpsertSummary(s); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	ids, err := db.FindSummaryIDsByBegin(begin)
	if err != nil || len(ids) != 1 || ids[0] != s.ID {
		t.Errorf("exact match: ids=%v err=%v", ids, err)
	}
	if ids, _ := db.FindSummaryIDsByBegin(begin.Add(time.Second)); len(ids) != 0 {
		t.Errorf("off-by-one-second matched: %v", ids)
	}

	// Minute match tolerates the seconds difference.
	ids, err = db.FindSummaryIDsByBeginMinute(begin.Add(15 * time.Second))
	if err != nil || len(ids) != 1 {
		t.Errorf("minute match: ids=%v err=%v", ids, err)
	}
	if ids, _ := db.FindSummaryIDsByBeginMinute(begin.Add(time.Minute)); len(ids) != 0 {
		t.Errorf("next minute matched: %v", ids)
	}

	ids, err = db.FindSummaryIDsByFilename("race.fit")
	if err != nil || len(ids) != 1 {
		t.Errorf("filename match: ids=%v err=%v", ids, err)
	}
}

func TestGroupedTotals(t *testing.T) {
	db := OpenTest(t)
	mk := func(name string, begin time.Time, sp sport.Sport, dist float64) {
		s := testSummary(name, begin)
		s.Sport = sp
		s.TotalDistance = dist
		if err := db.UpsertSummary(s); err != nil {
			t.Fatalf("upsert %s: %v", name, err)
		}
	}
	mk("a.fit", time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC), sport.Running, 5000)
	mk("b.fit", time.Date(2023, 6, 15, 7, 0, 0, 0, time.UTC), sport.Running, 7000)
	mk("c.fit", time.Date(2023, 7, 1, 7, 0, 0, 0, time.UTC), sport.Biking, 20000)

	byMonth, err := db.GroupedTotals(GroupByMonth, SummaryFilter{})
	if err != nil {
		t.Fatalf("GroupedTotals month: %v", err)
	}
	if len(byMonth) != 2 {
		t.Fatalf("got %d month rows, want 2", len(byMonth))
	}
	if byMonth[0].Group != "2023-06" || byMonth[0].Count != 2 || byMonth[0].TotalDistance != 12000 {
		t.Errorf("june row = %+v", byMonth[0])
	}

	bySport, err := db.GroupedTotals(GroupBySport, SummaryFilter{})
	if err != nil {
		t.Fatalf("GroupedTotals sport: %v", err)
	}
	if len(bySport) != 2 {
		t.Errorf("got %d sport rows, want 2", len(bySport))
	}

	if _, err := db.GroupedTotals("weekday", SummaryFilter{}); err == nil {
		t.Error("unknown grouping accepted")
	}
}

func TestProviderUpsertPreservesLink(t *testing.T) {
	db := OpenTest(t)
	begin := time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC)
	s := testSummary("a.fit", begin)
	if err := db.UpsertSummary(s); err != nil {
		t.Fatalf("upsert summary: %v", err)
	}

	act := &StravaActivity{ID: 42, Name: "Run", StartDate: begin, Sport: sport.Running}
	if err := db.UpsertStravaActivity(act); err != nil {
		t.Fatalf("upsert strava: %v", err)
	}
	linked, err := db.LinkStravaActivity(42, s.ID)
	if err != nil || !linked {
		t.Fatalf("link: linked=%v err=%v", linked, err)
	}

	// A re-sync of the same activity must not clear the link.
	act.Name = "Renamed Run"
	if err := db.UpsertStravaActivity(act); err != nil {
		t.Fatalf("re-upsert strava: %v", err)
	}
	got, err := db.GetStravaActivityForSummary(s.ID)
	if err != nil {
		t.Fatalf("GetStravaActivityForSummary: %v", err)
	}
	if got == nil || got.Name != "Renamed Run" {
		t.Fatalf("link lost or row not updated: %+v", got)
	}

	// A second link attempt reports false without changing anything.
	if linked, _ := db.LinkStravaActivity(42, uuid.NewString()); linked {
		t.Error("relink of an already linked activity succeeded")
	}
}

func TestDeleteSummaryUnlinksProviders(t *testing.T) {
	db := OpenTest(t)
	begin := time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC)
	s := testSummary("a.fit", begin)
	if err := db.UpsertSummary(s); err != nil {
		t.Fatalf("upsert summary: %v", err)
	}
	if err := db.UpsertStravaActivity(&StravaActivity{ID: 7, StartDate: begin, Sport: sport.Running}); err != nil {
		t.Fatalf("upsert strava: %v", err)
	}
	if _, err := db.LinkStravaActivity(7, s.ID); err != nil {
		t.Fatalf("link: %v", err)
	}

	if err := db.DeleteSummary(s.ID); err != nil {
		t.Fatalf("DeleteSummary: %v", err)
	}
	// ON DELETE SET NULL puts the activity back into the unlinked pool.
	unlinked, err := db.ListUnlinkedStravaActivities()
	if err != nil {
		t.Fatalf("ListUnlinkedStravaActivities: %v", err)
	}
	if len(unlinked) != 1 {
		t.Errorf("got %d unlinked, want 1", len(unlinked))
	}

	if err := db.DeleteSummary(s.ID); !errors.Is(err, ErrSummaryNotFound) {
		t.Errorf("double delete err = %v, want ErrSummaryNotFound", err)
	}
}

func TestTrackRoundTrip(t *testing.T) {
	db := OpenTest(t)
	begin := time.Date(2023, 6, 1, 7, 0, 0, 0, time.UTC)
	s := testSummary("a.fit", begin)
	if err := db.UpsertSummary(s); err != nil {
		t.Fatalf("upsert summary: %v", err)
	}

	lat, lon, dist, hr := 59.33, 18.06, 100.0, 145.0
	points := []GPSPoint{
		{SummaryID: s.ID, PointIndex: 0, Time: begin},
		{SummaryID: s.ID, PointIndex: 1, Time: begin.Add(10 * time.Second),
			Latitude: &lat, Longitude: &lon, Distance: &dist, HeartRate: &hr,
			DurationFromLast: 10, DurationFromBegin: 10, SpeedMPS: 10},
	}
	if err := db.SaveTrack(s.ID, points); err != nil {
		t.Fatalf("SaveTrack: %v", err)
	}

	got, err := db.GetTrack(s.ID)
	if err != nil {
		t.Fatalf("GetTrack: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[1].Latitude == nil || *got[1].Latitude != lat {
		t.Errorf("latitude = %v", got[1].Latitude)
	}
	if got[0].Distance != nil {
		t.Errorf("nil distance came back as %v", *got[0].Distance)
	}

	// Saving again replaces the track rather than appending.
	if err := db.SaveTrack(s.ID, points[:1]); err != nil {
		t.Fatalf("re-SaveTrack: %v", err)
	}
	if n, _ := db.GetTrackCount(s.ID); n != 1 {
		t.Errorf("count after resave = %d, want 1", n)
	}
}

func TestScaleUpsertKeyedByDatetime(t *testing.T) {
	db := OpenTest(t)
	at := time.Date(2023, 6, 1, 6, 30, 0, 0, time.UTC)
	m := &ScaleMeasurement{ID: uuid.NewString(), Datetime: at, Mass: 188.0, FatPct: 20.6}
	if err := db.UpsertScaleMeasurement(m); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	dup := &ScaleMeasurement{ID: uuid.NewString(), Datetime: at, Mass: 187.5, FatPct: 20.4}
	if err := db.UpsertScaleMeasurement(dup); err != nil {
		t.Fatalf("dup upsert: %v", err)
	}

	rows, err := db.ListScaleMeasurements()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Mass != 187.5 {
		t.Errorf("mass = %v, want updated 187.5", rows[0].Mass)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	db := OpenTest(t)

	if _, err := db.GetToken("strava"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("empty get err = %v, want ErrNoToken", err)
	}

	tok := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	if err := db.SaveToken("strava", tok); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.GetToken("strava")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AccessToken != tok.AccessToken || got.RefreshToken != tok.RefreshToken {
		t.Errorf("token mismatch: %+v", got)
	}
	if !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("expiry = %v, want %v", got.Expiry, tok.Expiry)
	}
}

func TestSyncStateWatermark(t *testing.T) {
	db := OpenTest(t)

	last, err := db.LastSync("strava")
	if err != nil {
		t.Fatalf("empty LastSync: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("initial watermark = %v, want zero", last)
	}

	at := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetLastSync("strava", at); err != nil {
		t.Fatalf("SetLastSync: %v", err)
	}
	got, err := db.LastSync("strava")
	if err != nil {
		t.Fatalf("LastSync: %v", err)
	}
	if !got.Equal(at) {
		t.Errorf("watermark = %v, want %v", got, at)
	}
}
