package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tracklog/internal/report"
	"tracklog/internal/sport"
	"tracklog/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.db.CountSummaries(); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// summaryFilter builds a store filter from ?sport=&year=&month=&limit=&offset=.
// year and month translate to a half-open begin-time window.
func summaryFilter(r *http.Request) (store.SummaryFilter, error) {
	var f store.SummaryFilter
	q := r.URL.Query()

	if v := q.Get("sport"); v != "" {
		sp, ok := sport.Parse(v)
		if !ok {
			return f, errors.New("unknown sport " + strconv.Quote(v))
		}
		f.Sport = sp
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("year must be an integer")
		}
		f.After = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		f.Before = f.After.AddDate(1, 0, 0)
		if m := q.Get("month"); m != "" {
			month, err := strconv.Atoi(m)
			if err != nil || month < 1 || month > 12 {
				return f, errors.New("month must be 1-12")
			}
			f.After = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			f.Before = f.After.AddDate(0, 1, 0)
		}
	} else if q.Get("month") != "" {
		return f, errors.New("month requires year")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("offset must be a non-negative integer")
		}
		f.Offset = n
	}
	return f, nil
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	f, err := summaryFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	summaries, err := s.db.ListSummaries(f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

// summaryDetail is a summary plus whatever provider records link to it.
type summaryDetail struct {
	Summary *store.Summary         `json:"summary"`
	Strava  *store.StravaActivity  `json:"strava,omitempty"`
	Fitbit  *store.FitbitActivity  `json:"fitbit,omitempty"`
	Connect *store.ConnectActivity `json:"connect,omitempty"`
	Points  int                    `json:"points"`
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sum, err := s.db.GetSummary(id)
	if errors.Is(err, store.ErrSummaryNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	detail := summaryDetail{Summary: sum}
	if detail.Strava, err = s.db.GetStravaActivityForSummary(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if detail.Fitbit, err = s.db.GetFitbitActivityForSummary(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if detail.Connect, err = s.db.GetConnectActivityForSummary(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if detail.Points, err = s.db.GetTrackCount(id); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleSummaryReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sum, err := s.db.GetSummary(id)
	if errors.Is(err, store.ErrSummaryNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	points, err := s.db.GetTrack(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	rep := report.ForFile(sum, points, s.maxHR)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"summary": rep.Summary,
		"splits":  rep.Splits,
		"zones":   rep.Zones,
		"text":    report.RenderFile(rep),
	})
}

type processRequest struct {
	Paths []string `json:"paths"`
	All   bool     `json:"all"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if !req.All && len(req.Paths) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New(`body needs "paths" or "all": true`))
		return
	}

	ctx := r.Context()
	var result any
	var err error
	if req.All {
		result, err = s.proc.ProcessDir(ctx, s.importDir, nil)
	} else {
		result, err = s.proc.ProcessFiles(ctx, req.Paths, nil)
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	results, err := s.proc.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		group = store.GroupByYear
	}
	f, err := summaryFilter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	rows, err := s.db.GroupedTotals(group, f)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if rows == nil {
		rows = []store.TotalsRow{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListRaces(w http.ResponseWriter, r *http.Request) {
	races, err := s.db.ListRaceResults(r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if races == nil {
		races = []store.RaceResult{}
	}
	s.writeJSON(w, http.StatusOK, races)
}

func (s *Server) handleListScale(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListScaleMeasurements()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []store.ScaleMeasurement{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}
