// Package strava fetches activity summaries from the Strava API and
// normalizes them into store rows.
package strava

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
)

const BaseURL = "https://www.strava.com/api/v3"

// Client is a Strava API client.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// NewClient creates a Strava API client on an OAuth2 token source.
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return &Client{
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		baseURL:     BaseURL,
		rateLimiter: NewRateLimiter(),
	}
}

// GetActivities fetches one page of activities started after 'after'.
func (c *Client) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}
	return activities, nil
}

// GetAllActivities pages through every activity after a given time,
// respecting rate limits.
func (c *Client) GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]Activity, error) {
	var all []Activity
	page := 1
	perPage := 100 // Strava's maximum

	for {
		activities, err := c.GetActivities(ctx, after, page, perPage)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}

		all = append(all, activities...)
		if onProgress != nil {
			onProgress(len(all))
		}
		if len(activities) < perPage {
			break
		}
		page++
	}
	return all, nil
}

// RateLimitStatus returns the current rate limit status.
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
