// Package gcconnect fetches activities from Garmin Connect. Connect has no
// public OAuth2 app flow; the client sends a bearer token obtained out of
// band and kept in a token file.
package gcconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"tracklog/internal/store"
)

const BaseURL = "https://connectapi.garmin.com"

// startTimeLayout is the space-separated GMT form Connect reports.
const startTimeLayout = "2006-01-02 15:04:05"

// Client is a Garmin Connect API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a client with a bearer token.
func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		token:      token,
	}
}

// NewClientFromTokenFile reads the bearer token from a file.
func NewClientFromTokenFile(path string) (*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading connect token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil, fmt.Errorf("connect token file %s is empty", path)
	}
	return NewClient(token), nil
}

// activityEntry mirrors one entry of the activity search response.
type activityEntry struct {
	ActivityID      int64    `json:"activityId"`
	ActivityName    string   `json:"activityName"`
	Description     string   `json:"description"`
	StartTimeGMT    string   `json:"startTimeGMT"`
	Distance        float64  `json:"distance"`
	Duration        float64  `json:"duration"`
	ElapsedDuration *float64 `json:"elapsedDuration"`
	MovingDuration  *float64 `json:"movingDuration"`
	Steps           *int64   `json:"steps"`
	Calories        *float64 `json:"calories"`
	AverageHR       *float64 `json:"averageHR"`
	MaxHR           *float64 `json:"maxHR"`
}

// GetActivities pages through activities started after 'after' and returns
// normalized store rows, oldest first.
func (c *Client) GetActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]store.ConnectActivity, error) {
	const pageSize = 50

	var rows []store.ConnectActivity
	start := 0
	for {
		params := url.Values{}
		params.Set("start", strconv.Itoa(start))
		params.Set("limit", strconv.Itoa(pageSize))
		if !after.IsZero() {
			params.Set("startDate", after.UTC().Format("2006-01-02"))
		}

		var page []activityEntry
		err := c.getJSON(ctx, "/activitylist-service/activities/search/activities?"+params.Encode(), &page)
		if err != nil {
			return rows, err
		}
		if len(page) == 0 {
			break
		}

		for _, a := range page {
			row, err := a.toRow()
			if err != nil {
				return rows, fmt.Errorf("activity %d: %w", a.ActivityID, err)
			}
			if !after.IsZero() && !row.StartTimeGMT.After(after) {
				continue
			}
			rows = append(rows, *row)
		}
		if onProgress != nil {
			onProgress(len(rows))
		}
		if len(page) < pageSize {
			break
		}
		start += pageSize
	}
	return rows, nil
}

func (a *activityEntry) toRow() (*store.ConnectActivity, error) {
	start, err := time.Parse(startTimeLayout, a.StartTimeGMT)
	if err != nil {
		return nil, fmt.Errorf("parsing startTimeGMT %q: %w", a.StartTimeGMT, err)
	}

	row := &store.ConnectActivity{
		ActivityID:      a.ActivityID,
		StartTimeGMT:    start.UTC(),
		Duration:        a.Duration,
		ElapsedDuration: a.ElapsedDuration,
		MovingDuration:  a.MovingDuration,
		Steps:           a.Steps,
		Calories:        a.Calories,
		AverageHR:       a.AverageHR,
		MaxHR:           a.MaxHR,
	}
	if a.ActivityName != "" {
		v := a.ActivityName
		row.ActivityName = &v
	}
	if a.Description != "" {
		v := a.Description
		row.Description = &v
	}
	if a.Distance > 0 {
		v := a.Distance
		row.Distance = &v
	}
	return row, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("connect token rejected, refresh the token file")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
