package user

import (
	"context"
	"sort"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// TuneRecord is one entry in a user's personal tune log: learning
// state and play statistics for a single catalogue tune. The document
// id equals the tune id.
type TuneRecord struct {
	ID             string
	RememberName   bool
	RememberMelody bool
	PlayCount      int
	LastPlayedDate string
	Note           string
	PlayHistory    map[string]int
}

// TuneLog manages the users/<uid>/tunes sub-collection.
type TuneLog struct {
	store  docstore.Store
	logger *observability.Logger
	now    func() time.Time
}

func NewTuneLog(store docstore.Store, logger *observability.Logger) *TuneLog {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &TuneLog{store: store, logger: logger, now: time.Now}
}

func tuneLogPath(uid string) string {
	return "users/" + uid + "/tunes"
}

// All returns the user's complete tune log. An empty uid yields an
// empty result, not an error.
func (l *TuneLog) All(ctx context.Context, uid string) ([]TuneRecord, error) {
	if uid == "" {
		return nil, nil
	}
	docs, err := l.store.GetAll(ctx, tuneLogPath(uid), docstore.Query{})
	if err != nil {
		return nil, err
	}
	records := make([]TuneRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, parseTuneRecord(doc.Data, doc.ID))
	}
	return records, nil
}

// Get returns the record for one tune. A missing document is
// (zero, false, nil).
func (l *TuneLog) Get(ctx context.Context, uid, tuneID string) (TuneRecord, bool, error) {
	if uid == "" || tuneID == "" {
		return TuneRecord{}, false, docstore.Errorf(docstore.InvalidArgument, "tune log: uid and tune id are required")
	}
	doc, err := l.store.Get(ctx, tuneLogPath(uid), tuneID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return TuneRecord{}, false, nil
		}
		return TuneRecord{}, false, err
	}
	return parseTuneRecord(doc.Data, doc.ID), true, nil
}

// SetMemoryStatus updates the remember flags. Nil pointers leave the
// corresponding flag untouched.
func (l *TuneLog) SetMemoryStatus(ctx context.Context, uid, tuneID string, rememberName, rememberMelody *bool) error {
	if uid == "" || tuneID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "tune log: uid and tune id are required")
	}
	update := map[string]any{}
	if rememberName != nil {
		update["rememberName"] = *rememberName
	}
	if rememberMelody != nil {
		update["rememberMelody"] = *rememberMelody
	}
	if len(update) == 0 {
		return nil
	}
	return l.store.Set(ctx, tuneLogPath(uid), tuneID, update, docstore.SetOptions{Merge: true})
}

// IncrementPlayCount adds count plays on the given date (YYYY-MM-DD,
// today when empty), creating the record on first play.
func (l *TuneLog) IncrementPlayCount(ctx context.Context, uid, tuneID, date string, count int) error {
	if uid == "" || tuneID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "tune log: uid and tune id are required")
	}
	if count <= 0 {
		return docstore.Errorf(docstore.InvalidArgument, "tune log: play count increment must be positive")
	}
	if date == "" {
		date = l.now().UTC().Format("2006-01-02")
	}

	record, found, err := l.Get(ctx, uid, tuneID)
	if err != nil {
		return err
	}
	if !found {
		record = TuneRecord{ID: tuneID}
	}
	if record.PlayHistory == nil {
		record.PlayHistory = map[string]int{}
	}
	record.PlayCount += count
	record.PlayHistory[date] += count
	record.LastPlayedDate = date

	return l.store.Set(ctx, tuneLogPath(uid), tuneID, map[string]any{
		"playCount":      record.PlayCount,
		"playHistory":    playHistoryData(record.PlayHistory),
		"lastPlayedDate": record.LastPlayedDate,
		"rememberName":   record.RememberName,
		"rememberMelody": record.RememberMelody,
		"note":           record.Note,
	}, docstore.SetOptions{Merge: true})
}

// SetNote replaces the free-form note on a record.
func (l *TuneLog) SetNote(ctx context.Context, uid, tuneID, note string) error {
	if uid == "" || tuneID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "tune log: uid and tune id are required")
	}
	return l.store.Set(ctx, tuneLogPath(uid), tuneID, map[string]any{
		"note": note,
	}, docstore.SetOptions{Merge: true})
}

// CleanupEntries deletes every record whose tune id is not in
// validIDs, in one atomic batch. It is the per-user reconciliation
// step invoked after list-view refreshes.
func (l *TuneLog) CleanupEntries(ctx context.Context, uid string, validIDs []string) error {
	if uid == "" {
		return docstore.Errorf(docstore.InvalidArgument, "tune log: uid is required")
	}

	records, err := l.All(ctx, uid)
	if err != nil {
		return err
	}

	valid := make(map[string]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	var orphans []string
	for _, record := range records {
		if _, ok := valid[record.ID]; !ok {
			orphans = append(orphans, record.ID)
		}
	}
	if len(orphans) == 0 {
		return nil
	}

	// Deletes are chunked to stay under the store's transaction size
	// cap. Cross-batch atomicity is not needed: a partial pass just
	// leaves fewer orphans for the next one.
	for start := 0; start < len(orphans); start += docstore.MaxBatchOps {
		end := min(start+docstore.MaxBatchOps, len(orphans))
		batch := l.store.Batch()
		for _, id := range orphans[start:end] {
			batch.Delete(tuneLogPath(uid), id)
		}
		if err := batch.Commit(ctx); err != nil {
			return err
		}
	}
	l.logger.LogInfo(ctx, "orphaned tune records removed", "user", uid, "removed", len(orphans))
	return nil
}

// LastPlayedDate derives the most recent date with at least one play.
func LastPlayedDate(history map[string]int) (string, bool) {
	var dates []string
	for date, plays := range history {
		if plays > 0 {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return "", false
	}
	sort.Strings(dates)
	return dates[len(dates)-1], true
}

func parseTuneRecord(data map[string]any, id string) TuneRecord {
	record := TuneRecord{ID: id, PlayHistory: map[string]int{}}
	if v, ok := data["rememberName"].(bool); ok {
		record.RememberName = v
	}
	if v, ok := data["rememberMelody"].(bool); ok {
		record.RememberMelody = v
	}
	record.PlayCount = intValue(data["playCount"])
	if v, ok := data["lastPlayedDate"].(string); ok {
		record.LastPlayedDate = v
	}
	if v, ok := data["note"].(string); ok {
		record.Note = v
	}
	if history, ok := data["playHistory"].(map[string]any); ok {
		for date, plays := range history {
			record.PlayHistory[date] = intValue(plays)
		}
	}
	return record
}

func playHistoryData(history map[string]int) map[string]any {
	out := make(map[string]any, len(history))
	for date, plays := range history {
		out[date] = plays
	}
	return out
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
