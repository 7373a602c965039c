// Package exchange scrapes the exchange holiday arrangement page and
// expands it into a full-year trading calendar.
package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/junzhu/tidegate/backend/internal/contracts"
	"github.com/junzhu/tidegate/backend/pkg/httputil"
	"github.com/junzhu/tidegate/backend/pkg/logger"
)

const dateLayout = "2006-01-02"

// CalendarSource fetches the published market closure schedule.
type CalendarSource struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	loc        *time.Location
}

// NewCalendarSource creates a CalendarSource.
func NewCalendarSource(baseURL string, httpClient *httputil.Client, log *logger.Logger, loc *time.Location) *CalendarSource {
	return &CalendarSource{
		httpClient: httpClient,
		logger:     log.WithModule("exchange"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		loc:        loc,
	}
}

// FetchYear scrapes the closure schedule for year and expands it to one row
// per calendar day. Weekdays default to trading; gazetted closures and
// weekends do not trade.
func (s *CalendarSource) FetchYear(ctx context.Context, year int) ([]contracts.TradingDay, error) {
	closures, err := s.fetchClosures(ctx, year)
	if err != nil {
		return nil, err
	}

	var days []contracts.TradingDay
	for d := time.Date(year, 1, 1, 0, 0, 0, 0, s.loc); d.Year() == year; d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		td := contracts.TradingDay{Date: date}

		holiday, closed := closures[date]
		weekend := d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
		td.IsTradingDay = !closed && !weekend
		if closed {
			td.HolidayName = holiday
		}
		days = append(days, td)
	}

	s.logger.WithFields(map[string]interface{}{
		"year":     year,
		"closures": len(closures),
		"days":     len(days),
	}).Info("Fetched exchange calendar")
	return days, nil
}

// fetchClosures scrapes the holiday table: one row per closure entry, first
// cell a date or a "start至end" range, second cell the holiday name.
func (s *CalendarSource) fetchClosures(ctx context.Context, year int) (map[string]string, error) {
	url := fmt.Sprintf("%s?year=%d", s.baseURL, year)
	resp, err := s.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch holiday schedule: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday schedule: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse holiday schedule: %w", err)
	}

	closures := make(map[string]string)
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		dateText := strings.TrimSpace(cells.Eq(0).Text())
		name := strings.TrimSpace(cells.Eq(1).Text())
		for _, date := range expandDateRange(dateText) {
			if date.Year() == year {
				closures[date.Format(dateLayout)] = name
			}
		}
	})
	return closures, nil
}

// expandDateRange parses "2026-01-01", "2026-01-01至2026-01-03" or the
// tilde-separated spelling into individual days.
func expandDateRange(text string) []time.Time {
	text = strings.ReplaceAll(text, "至", "~")
	parts := strings.SplitN(text, "~", 2)

	start, err := time.Parse(dateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return nil
	}
	end := start
	if len(parts) == 2 {
		if e, err := time.Parse(dateLayout, strings.TrimSpace(parts[1])); err == nil && !e.Before(start) {
			end = e
		}
	}

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
