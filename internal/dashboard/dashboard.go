// Package dashboard computes the organization snapshot shown to coordinators:
// a daily open-order series, range KPIs and the status split of open work.
package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/hugh/fieldops/internal/database/models"
	"github.com/hugh/fieldops/internal/workorder"
)

const (
	dateLayout  = "2006-01-02"
	defaultDays = 7
	// maxDays bounds the series length of a single request.
	maxDays = 731
)

type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     int       `json:"value"`
}

type KPIs struct {
	Created int `json:"created"`
	Closed  int `json:"closed"`
	OpenEnd int `json:"openEnd"`
	SLA     int `json:"sla"`
}

// Split is the percentage breakdown of open orders. It sums to 100, or is all
// zeros when there are no open orders.
type Split struct {
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Scheduled  int `json:"scheduled"`
}

type Snapshot struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Series []Point   `json:"series"`
	KPIs   KPIs      `json:"kpis"`
	Split  Split     `json:"split"`
}

// Row is the slice of a report the aggregation needs.
type Row struct {
	Status    models.ReportStatus
	CreatedAt time.Time
	ClosedAt  *time.Time
}

func (r Row) closedBy(t time.Time) bool {
	return r.Status == models.StatusCompleted && r.ClosedAt != nil && !r.ClosedAt.After(t)
}

func (r Row) closedBefore(t time.Time) bool {
	return r.Status == models.StatusCompleted && r.ClosedAt != nil && r.ClosedAt.Before(t)
}

// Range is an inclusive span of whole days in a location. From is the start
// of the first day and To the last instant of the final day.
type Range struct {
	From time.Time
	To   time.Time
	Loc  *time.Location
}

// Days returns the start of every day in the range.
func (r Range) Days() []time.Time {
	if r.From.After(r.To) {
		return nil
	}
	days := make([]time.Time, 0, dayNumber(r.To)-dayNumber(r.From)+1)
	for d := r.From; !d.After(r.To); d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, r.Loc) {
		days = append(days, d)
	}
	return days
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	s := startOfDay(t, loc)
	return time.Date(s.Year(), s.Month(), s.Day()+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

// ParseRange reads YYYY-MM-DD bounds in loc. Missing bounds default to the
// seven days ending today.
func ParseRange(fromRaw, toRaw string, loc *time.Location, now time.Time) (Range, error) {
	if loc == nil {
		loc = time.Local
	}

	to := endOfDay(now, loc)
	if toRaw != "" {
		t, err := time.ParseInLocation(dateLayout, toRaw, loc)
		if err != nil {
			return Range{}, workorder.NewValidationError("to", "Expected a date as YYYY-MM-DD")
		}
		to = endOfDay(t, loc)
	}

	last := startOfDay(to, loc)
	from := time.Date(last.Year(), last.Month(), last.Day()-(defaultDays-1), 0, 0, 0, 0, loc)
	if fromRaw != "" {
		f, err := time.ParseInLocation(dateLayout, fromRaw, loc)
		if err != nil {
			return Range{}, workorder.NewValidationError("from", "Expected a date as YYYY-MM-DD")
		}
		from = startOfDay(f, loc)
	}

	if from.After(to) {
		return Range{}, fmt.Errorf("%w: from %s is after to %s", workorder.ErrInvalidRange, from.Format(dateLayout), to.Format(dateLayout))
	}
	if span := dayNumber(to) - dayNumber(from) + 1; span > maxDays {
		return Range{}, fmt.Errorf("%w: at most %d days", workorder.ErrInvalidRange, maxDays)
	}
	return Range{From: from, To: to, Loc: loc}, nil
}

// dayNumber counts calendar days since the Unix epoch for t's wall-clock date,
// ignoring DST shifts in t's location.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Compute aggregates rows over r. Rows created after r.To are ignored.
func Compute(rows []Row, r Range) Snapshot {
	days := r.Days()
	index := make(map[string]int, len(days))
	for i, d := range days {
		index[d.Format(dateLayout)] = i
	}
	bucket := func(t time.Time) (int, bool) {
		i, ok := index[t.In(r.Loc).Format(dateLayout)]
		return i, ok
	}

	created := make([]int, len(days))
	closed := make([]int, len(days))
	var (
		initialOpen int
		kpis        KPIs
		slaTotal    int
		slaMet      int
		pending     int
		inProgress  int
		scheduled   int
	)

	for _, row := range rows {
		if row.CreatedAt.After(r.To) {
			continue
		}

		if row.CreatedAt.Before(r.From) && !row.closedBefore(r.From) {
			initialOpen++
		}
		if i, ok := bucket(row.CreatedAt); ok && !row.CreatedAt.Before(r.From) {
			created[i]++
			kpis.Created++
			if row.closedBy(r.To) {
				slaTotal++
				if workorder.MetSLA(row.CreatedAt, *row.ClosedAt) {
					slaMet++
				}
			}
		}
		if row.Status == models.StatusCompleted && row.ClosedAt != nil && !row.ClosedAt.Before(r.From) && !row.ClosedAt.After(r.To) {
			if i, ok := bucket(*row.ClosedAt); ok {
				closed[i]++
				kpis.Closed++
			}
		}
		if !row.closedBy(r.To) {
			kpis.OpenEnd++
		}

		switch row.Status {
		case models.StatusPending:
			pending++
		case models.StatusInProgress:
			inProgress++
		case models.StatusScheduled:
			scheduled++
		}
	}

	series := make([]Point, len(days))
	open := initialOpen
	for i, d := range days {
		open = max(0, open+created[i]-closed[i])
		series[i] = Point{Timestamp: d, Value: open}
	}

	if slaTotal > 0 {
		kpis.SLA = percent(slaMet, slaTotal)
	}

	return Snapshot{
		From:   r.From,
		To:     r.To,
		Series: series,
		KPIs:   kpis,
		Split:  split(pending, inProgress, scheduled),
	}
}

func percent(n, total int) int {
	return int(math.Round(100 * float64(n) / float64(total)))
}

// split rounds pending and in-progress independently and gives scheduled the
// remainder so the three add up to exactly 100.
func split(pending, inProgress, scheduled int) Split {
	total := pending + inProgress + scheduled
	if total == 0 {
		return Split{}
	}
	s := Split{Pending: percent(pending, total), InProgress: percent(inProgress, total)}
	s.Scheduled = 100 - s.Pending - s.InProgress
	if s.Scheduled < 0 {
		s.InProgress += s.Scheduled
		s.Scheduled = 0
	}
	return s
}
