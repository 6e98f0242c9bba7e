package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// DailyStats tracks per-day play counts. Each day is one document under
// users/<uid>/daily/<date> whose fields map tune ids to that day's
// count for the tune.
type DailyStats struct {
	store  docstore.Store
	logger *observability.Logger
}

func NewDailyStats(store docstore.Store, logger *observability.Logger) *DailyStats {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &DailyStats{store: store, logger: logger}
}

func dailyStatsPath(uid string) string {
	return "users/" + uid + "/daily"
}

// Day returns the per-tune play counts for one day. Failures and
// missing documents degrade to an empty map so statistics views render
// zeros instead of breaking.
func (d *DailyStats) Day(ctx context.Context, uid, date string) map[string]int {
	counts, err := d.day(ctx, uid, date)
	if err != nil {
		d.logger.LogWarn(ctx, "daily stats read failed", "user", uid, "date", date, "error", err)
		return map[string]int{}
	}
	return counts
}

func (d *DailyStats) day(ctx context.Context, uid, date string) (map[string]int, error) {
	if uid == "" || date == "" {
		return nil, docstore.Errorf(docstore.InvalidArgument, "daily stats: uid and date are required")
	}
	doc, err := d.store.Get(ctx, dailyStatsPath(uid), date)
	if err != nil {
		if docstore.IsNotFound(err) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	return intValues(doc.Data), nil
}

// TunePlayCount returns one tune's plays on the given day.
func (d *DailyStats) TunePlayCount(ctx context.Context, uid, date, tuneID string) int {
	return d.Day(ctx, uid, date)[tuneID]
}

// SetPlayCount records the day's count for one tune, leaving the other
// tunes' counts alone.
func (d *DailyStats) SetPlayCount(ctx context.Context, uid, date, tuneID string, count int) error {
	if uid == "" || date == "" || tuneID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "daily stats: uid, date and tune id are required")
	}
	return d.store.Set(ctx, dailyStatsPath(uid), date, map[string]any{tuneID: count}, docstore.SetOptions{Merge: true})
}

// IncrementPlayCount adds to the day's count for one tune and returns
// the new value.
func (d *DailyStats) IncrementPlayCount(ctx context.Context, uid, date, tuneID string, by int) (int, error) {
	if tuneID == "" {
		return 0, docstore.Errorf(docstore.InvalidArgument, "daily stats: tune id is required")
	}
	if by <= 0 {
		return 0, docstore.Errorf(docstore.InvalidArgument, "daily stats: increment must be positive, got %d", by)
	}
	counts, err := d.day(ctx, uid, date)
	if err != nil {
		return 0, err
	}
	next := counts[tuneID] + by
	if err := d.SetPlayCount(ctx, uid, date, tuneID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// monthlyTotalKey holds the month's aggregate inside a statistics
// document, alongside the per-date fields. The key can never collide
// with a date field.
const monthlyTotalKey = "monthlyTotal"

// Statistics aggregates daily play counts into monthly documents at
// users/<uid>/statistics/<yearMonth>. A statistics document maps dates
// to that day's total plays plus the monthlyTotal aggregate. Totals for
// finished days never change, so they are written back the first time
// they are computed and served from the document afterwards; the
// current day is always recomputed from the daily document.
type Statistics struct {
	store    docstore.Store
	daily    *DailyStats
	profiles *Service
	logger   *observability.Logger
	local    cache.LocalStore
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	months map[string]*cache.Cache[map[string]int]
}

// StatisticsConfig carries the collaborators for NewStatistics. Only
// Store is required; the rest default to in-process implementations
// over the same store.
type StatisticsConfig struct {
	Store    docstore.Store
	Daily    *DailyStats
	Profiles *Service
	Local    cache.LocalStore
	TTL      time.Duration
	Logger   *observability.Logger
}

func NewStatistics(cfg StatisticsConfig) *Statistics {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	local := cfg.Local
	if local == nil {
		local = cache.NewMemoryStore()
	}
	daily := cfg.Daily
	if daily == nil {
		daily = NewDailyStats(cfg.Store, logger)
	}
	profiles := cfg.Profiles
	if profiles == nil {
		profiles = NewService(cfg.Store, logger)
	}
	return &Statistics{
		store:    cfg.Store,
		daily:    daily,
		profiles: profiles,
		logger:   logger,
		local:    local,
		ttl:      cfg.TTL,
		now:      time.Now,
		months:   map[string]*cache.Cache[map[string]int]{},
	}
}

func statisticsPath(uid string) string {
	return "users/" + uid + "/statistics"
}

func (s *Statistics) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// monthSlot returns the cache slot holding one user's statistics
// document for one month. The write-back rules guarantee a cached month
// only ever holds totals for finished days, so a slot never serves a
// stale value for today.
func (s *Statistics) monthSlot(uid, yearMonth string) *cache.Cache[map[string]int] {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := uid + "_" + yearMonth
	slot, ok := s.months[key]
	if !ok {
		slot = cache.New[map[string]int]("stats_"+key, s.ttl, s.local, s.logger)
		s.months[key] = slot
	}
	return slot
}

func (s *Statistics) readMonth(ctx context.Context, uid, yearMonth string) (map[string]int, error) {
	doc, err := s.store.Get(ctx, statisticsPath(uid), yearMonth)
	if err != nil {
		if docstore.IsNotFound(err) {
			return map[string]int{}, nil
		}
		return nil, err
	}
	return intValues(doc.Data), nil
}

// DailyTotal returns the user's total plays on one day, in YYYY-MM-DD
// form. Stored totals are preferred; a missing past day is summed from
// the daily document and persisted, and future days are zero.
func (s *Statistics) DailyTotal(ctx context.Context, uid, date string) (int, error) {
	if uid == "" || len(date) != len("2006-01-02") {
		return 0, docstore.Errorf(docstore.InvalidArgument, "statistics: uid and a YYYY-MM-DD date are required")
	}
	yearMonth := date[:len("2006-01")]
	today := s.today()

	slot := s.monthSlot(uid, yearMonth)
	if month, ok := slot.Get(); ok {
		if total, ok := month[date]; ok && date < today {
			return total, nil
		}
	}

	month, err := s.readMonth(ctx, uid, yearMonth)
	if err != nil {
		return 0, err
	}
	slot.Set(month)

	if total, ok := month[date]; ok && date < today {
		return total, nil
	}
	if date > today {
		return 0, nil
	}

	counts, err := s.daily.day(ctx, uid, date)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, plays := range counts {
		total += plays
	}

	if date < today {
		if err := s.store.Set(ctx, statisticsPath(uid), yearMonth, map[string]any{date: total}, docstore.SetOptions{Merge: true}); err != nil {
			return 0, err
		}
		month[date] = total
		slot.Set(month)
	}
	return total, nil
}

// MonthlyTotal returns the user's total plays in one YYYY-MM month,
// aggregating the days and persisting the result when the document does
// not carry it yet. The current month keeps accumulating, so its
// aggregate is never persisted.
func (s *Statistics) MonthlyTotal(ctx context.Context, uid, yearMonth string) (int, error) {
	if uid == "" || len(yearMonth) != len("2006-01") {
		return 0, docstore.Errorf(docstore.InvalidArgument, "statistics: uid and a YYYY-MM month are required")
	}
	month, err := s.readMonth(ctx, uid, yearMonth)
	if err != nil {
		return 0, err
	}
	if total, ok := month[monthlyTotalKey]; ok {
		return total, nil
	}

	dates, err := DatesOfMonth(yearMonth)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, date := range dates {
		plays, err := s.DailyTotal(ctx, uid, date)
		if err != nil {
			return 0, err
		}
		total += plays
	}

	if yearMonth != s.today()[:len("2006-01")] {
		if err := s.store.Set(ctx, statisticsPath(uid), yearMonth, map[string]any{monthlyTotalKey: total}, docstore.SetOptions{Merge: true}); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// MonthlyTotals returns one total per month, from the month the account
// was created through the current one. An account with no recorded
// creation time has no history to report.
func (s *Statistics) MonthlyTotals(ctx context.Context, uid string) (map[string]int, error) {
	profile, found, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !found || profile.CreationTime == "" {
		return map[string]int{}, nil
	}
	created, err := time.Parse(time.RFC3339, profile.CreationTime)
	if err != nil {
		return nil, docstore.NewError(docstore.MalformedData, "statistics: profile creation time is not RFC3339", err)
	}

	current := s.today()[:len("2006-01")]
	totals := map[string]int{}
	for ym := created.UTC().Format("2006-01"); ym <= current; ym = nextMonth(ym) {
		total, err := s.MonthlyTotal(ctx, uid, ym)
		if err != nil {
			return nil, err
		}
		totals[ym] = total
	}
	return totals, nil
}

// MonthlyStatistics returns the total plays for every day of one month,
// filling days the statistics document does not cover yet.
func (s *Statistics) MonthlyStatistics(ctx context.Context, uid, yearMonth string) (map[string]int, error) {
	dates, err := DatesOfMonth(yearMonth)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(dates))
	for _, date := range dates {
		total, err := s.DailyTotal(ctx, uid, date)
		if err != nil {
			return nil, err
		}
		out[date] = total
	}
	return out, nil
}

// DatesOfMonth lists every date of a YYYY-MM month in YYYY-MM-DD form.
func DatesOfMonth(yearMonth string) ([]string, error) {
	start, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return nil, docstore.Errorf(docstore.InvalidArgument, "statistics: %q is not a YYYY-MM month", yearMonth)
	}
	lastDay := start.AddDate(0, 1, -1).Day()
	dates := make([]string, 0, lastDay)
	for day := 1; day <= lastDay; day++ {
		dates = append(dates, fmt.Sprintf("%s-%02d", yearMonth, day))
	}
	return dates, nil
}

func nextMonth(yearMonth string) string {
	t, _ := time.Parse("2006-01", yearMonth)
	return t.AddDate(0, 1, 0).Format("2006-01")
}

func intValues(data map[string]any) map[string]int {
	out := make(map[string]int, len(data))
	for field, v := range data {
		out[field] = intValue(v)
	}
	return out
}
