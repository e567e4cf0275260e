package prayer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public AlAdhan timings API.
const DefaultBaseURL = "https://api.aladhan.com/v1"

// Names lists the five daily prayers in the order they fall.
var Names = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// Time is one prayer slot on a given day.
type Time struct {
	Name  string    `json:"name"`
	Clock string    `json:"time"`
	At    time.Time `json:"timestamp"`
}

// Day holds the five prayer times of one date, in chronological order.
type Day struct {
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
	Times    []Time `json:"times"`
}

// Config locates the user and picks the calculation method.
type Config struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	// Method is the AlAdhan calculation method id (2 = ISNA).
	Method int
	// Location is used when the API does not name a loadable timezone.
	Location *time.Location
}

// Client fetches daily prayer times from the AlAdhan API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type timingsResponse struct {
	Code   int             `json:"code"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type timingsData struct {
	Timings map[string]string `json:"timings"`
	Meta    struct {
		Timezone string `json:"timezone"`
	} `json:"meta"`
}

// Day returns the prayer times for the calendar date of date.
func (c *Client) Day(ctx context.Context, date time.Time) (*Day, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64))
	q.Set("method", strconv.Itoa(c.cfg.Method))
	endpoint := fmt.Sprintf("%s/timings/%s?%s", strings.TrimRight(c.cfg.BaseURL, "/"), date.Format("02-01-2006"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prayer times: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prayer api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope timingsResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Code != http.StatusOK {
		return nil, fmt.Errorf("prayer api code %d: %s", envelope.Code, envelope.Status)
	}
	var data timingsData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("decode timings: %w", err)
	}

	loc := c.cfg.Location
	if data.Meta.Timezone != "" {
		if l, err := time.LoadLocation(data.Meta.Timezone); err == nil {
			loc = l
		}
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	out := &Day{Date: day.Format("2006-01-02"), Timezone: loc.String(), Times: make([]Time, 0, len(Names))}
	for _, name := range Names {
		raw, ok := data.Timings[name]
		if !ok {
			return nil, fmt.Errorf("prayer api response has no %s time", name)
		}
		at, clock, err := ParseClock(day, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out.Times = append(out.Times, Time{Name: name, Clock: clock, At: at})
	}
	return out, nil
}

// ParseClock reads "HH:MM", optionally followed by a zone label such as
// "05:12 (BST)", as a wall clock time on day.
func ParseClock(day time.Time, raw string) (time.Time, string, error) {
	field, _, _ := strings.Cut(strings.TrimSpace(raw), " ")
	hh, mm, ok := strings.Cut(field, ":")
	if !ok {
		return time.Time{}, "", fmt.Errorf("invalid time %q", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, "", fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, "", fmt.Errorf("invalid minute in %q", raw)
	}
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	return at, fmt.Sprintf("%02d:%02d", hour, minute), nil
}
