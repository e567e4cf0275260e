package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"prayerflow/internal/prayer"
)

// PrayerSource yields the prayer times of one calendar day.
type PrayerSource interface {
	Day(ctx context.Context, date time.Time) (*prayer.Day, error)
}

// PrayerService caches daily prayer times and answers "what is next" and
// "what has just begun".
type PrayerService struct {
	source PrayerSource
	loc    *time.Location

	mu   sync.Mutex
	days map[string]*prayer.Day
}

func NewPrayerService(source PrayerSource, loc *time.Location) *PrayerService {
	if loc == nil {
		loc = time.Local
	}
	return &PrayerService{source: source, loc: loc, days: make(map[string]*prayer.Day)}
}

// Day returns the prayer times of date's calendar day, fetching each day once.
func (s *PrayerService) Day(ctx context.Context, date time.Time) (*prayer.Day, error) {
	date = date.In(s.loc)
	key := date.Format("2006-01-02")

	s.mu.Lock()
	day, ok := s.days[key]
	s.mu.Unlock()
	if ok {
		return day, nil
	}

	day, err := s.source.Day(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: prayer times for %s: %w", ErrUpstream, key, err)
	}

	s.mu.Lock()
	if len(s.days) >= 4 {
		clear(s.days)
	}
	s.days[key] = day
	s.mu.Unlock()
	return day, nil
}

// Next returns the first prayer strictly after now, looking into tomorrow once
// today's Isha has passed.
func (s *PrayerService) Next(ctx context.Context, now time.Time) (*prayer.Time, error) {
	today, err := s.Day(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, pt := range today.Times {
		if pt.At.After(now) {
			next := pt
			return &next, nil
		}
	}

	tomorrow, err := s.Day(ctx, now.In(s.loc).AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if len(tomorrow.Times) == 0 {
		return nil, fmt.Errorf("%w: no prayer times for %s", ErrUpstream, tomorrow.Date)
	}
	next := tomorrow.Times[0]
	return &next, nil
}

// Due returns the prayers that began in (since, now], oldest first. Windows
// longer than a day are cut to the last 24 hours.
func (s *PrayerService) Due(ctx context.Context, since, now time.Time) ([]prayer.Time, error) {
	if !now.After(since) {
		return nil, nil
	}
	if now.Sub(since) > 24*time.Hour {
		since = now.Add(-24 * time.Hour)
	}

	var due []prayer.Time
	end := midnight(now.In(s.loc))
	for d := midnight(since.In(s.loc)); !d.After(end); d = d.AddDate(0, 0, 1) {
		day, err := s.Day(ctx, d)
		if err != nil {
			return nil, err
		}
		for _, pt := range day.Times {
			if pt.At.After(since) && !pt.At.After(now) {
				due = append(due, pt)
			}
		}
	}
	return due, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PrayerAlerter remembers when it last looked and reports each prayer once.
type PrayerAlerter struct {
	prayers *PrayerService
	send    func(context.Context, prayer.Time) error
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewPrayerAlerter(prayers *PrayerService, send func(context.Context, prayer.Time) error) *PrayerAlerter {
	return newPrayerAlerter(prayers, send, time.Now)
}

func newPrayerAlerter(prayers *PrayerService, send func(context.Context, prayer.Time) error, now func() time.Time) *PrayerAlerter {
	return &PrayerAlerter{prayers: prayers, send: send, now: now, last: now()}
}

// Check sends an alert for every prayer that began since the previous check.
// When the times cannot be loaded the window is kept, so the next check
// catches up.
func (a *PrayerAlerter) Check(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	due, err := a.prayers.Due(ctx, a.last, now)
	if err != nil {
		return err
	}
	a.last = now

	for _, pt := range due {
		if err := a.send(ctx, pt); err != nil {
			return fmt.Errorf("send %s alert: %w", pt.Name, err)
		}
	}
	return nil
}

// FormatPrayerAlert renders the chat message sent when a prayer begins.
func FormatPrayerAlert(pt prayer.Time) string {
	return fmt.Sprintf("🕌 <b>%s</b> · %s\nTime to pause and pray. Your tasks will wait.", pt.Name, pt.Clock)
}

// FormatPrayerDay renders one day of prayer times, marking next.
func FormatPrayerDay(day *prayer.Day, next *prayer.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🕌 <b>Prayer times</b> %s\n", day.Date))
	for _, pt := range day.Times {
		marker := "•"
		if next != nil && pt.At.Equal(next.At) {
			marker = "➡️"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s\n", marker, pt.Name, pt.Clock))
	}
	if next != nil && next.At.Format("2006-01-02") != day.Date {
		sb.WriteString(fmt.Sprintf("➡️ Next: %s tomorrow at %s\n", next.Name, next.Clock))
	}
	return strings.TrimSpace(sb.String())
}
