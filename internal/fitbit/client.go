// Package fitbit fetches activity log entries from the Fitbit API and parses
// the compact scale-measurement text format.
package fitbit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"tracklog/internal/store"
)

const BaseURL = "https://api.fitbit.com"

// Client is a Fitbit API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Fitbit API client on an OAuth2 token source.
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return &Client{
		httpClient: oauth2.NewClient(context.Background(), tokenSource),
		baseURL:    BaseURL,
	}
}

// activityLog mirrors one entry of the activity list response. startTime
// carries a zone offset; duration is milliseconds.
type activityLog struct {
	LogID          int64   `json:"logId"`
	LogType        string  `json:"logType"`
	StartTime      string  `json:"startTime"`
	TcxLink        string  `json:"tcxLink"`
	ActivityTypeID int64   `json:"activityTypeId"`
	ActivityName   string  `json:"activityName"`
	Duration       int64   `json:"duration"`
	Distance       float64 `json:"distance"`
	DistanceUnit   string  `json:"distanceUnit"`
	Steps          int64   `json:"steps"`
}

type activityListResponse struct {
	Activities []activityLog `json:"activities"`
	Pagination struct {
		Next string `json:"next"`
	} `json:"pagination"`
}

// GetActivities pages through the activity log after a given date and
// returns normalized store rows.
func (c *Client) GetActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]store.FitbitActivity, error) {
	params := url.Values{}
	params.Set("afterDate", after.UTC().Format("2006-01-02"))
	params.Set("sort", "asc")
	params.Set("offset", "0")
	params.Set("limit", "100")
	next := c.baseURL + "/1/user/-/activities/list.json?" + params.Encode()

	var rows []store.FitbitActivity
	for next != "" {
		var page activityListResponse
		if err := c.getJSON(ctx, next, &page); err != nil {
			return rows, err
		}

		for _, a := range page.Activities {
			row, err := a.toRow()
			if err != nil {
				return rows, fmt.Errorf("activity %d: %w", a.LogID, err)
			}
			rows = append(rows, *row)
		}
		if onProgress != nil {
			onProgress(len(rows))
		}
		next = page.Pagination.Next
	}
	return rows, nil
}

func (a *activityLog) toRow() (*store.FitbitActivity, error) {
	start, err := time.Parse("2006-01-02T15:04:05.000-07:00", a.StartTime)
	if err != nil {
		// Some log types omit milliseconds.
		start, err = time.Parse(time.RFC3339, a.StartTime)
		if err != nil {
			return nil, fmt.Errorf("parsing startTime %q: %w", a.StartTime, err)
		}
	}

	row := &store.FitbitActivity{
		LogID:     a.LogID,
		LogType:   a.LogType,
		StartTime: start.UTC(),
		Duration:  a.Duration,
	}
	if a.TcxLink != "" {
		v := a.TcxLink
		row.TcxLink = &v
	}
	if a.ActivityTypeID != 0 {
		v := a.ActivityTypeID
		row.ActivityTypeID = &v
	}
	if a.ActivityName != "" {
		v := a.ActivityName
		row.ActivityName = &v
	}
	if a.Distance > 0 {
		v := a.Distance
		row.Distance = &v
	}
	if a.DistanceUnit != "" {
		v := a.DistanceUnit
		row.DistanceUnit = &v
	}
	if a.Steps > 0 {
		v := a.Steps
		row.Steps = &v
	}
	return row, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := resp.Header.Get("Retry-After")
		if secs, err := strconv.Atoi(retry); err == nil {
			return fmt.Errorf("rate limited, retry after %ds", secs)
		}
		return fmt.Errorf("rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
