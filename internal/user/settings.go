package user

import (
	"context"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// TableHeaderSettings controls which columns the tune table shows.
type TableHeaderSettings struct {
	Rhythm         bool
	Key            bool
	Mode           bool
	PlayCount      bool
	TodaysPlays    bool
	LastPlayedDate bool
}

// DefaultTableHeaderSettings is the column set for narrow screens.
func DefaultTableHeaderSettings() TableHeaderSettings {
	return TableHeaderSettings{
		Rhythm:      true,
		PlayCount:   true,
		TodaysPlays: true,
	}
}

// TableSettings stores the column settings on the user's profile
// document and keeps an optimistic local copy so toggling a column
// updates the view before the write round-trips.
type TableSettings struct {
	store  docstore.Store
	logger *observability.Logger
	local  *Optimistic[TableHeaderSettings]
}

func NewTableSettings(store docstore.Store, logger *observability.Logger) *TableSettings {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &TableSettings{
		store:  store,
		logger: logger,
		local:  NewOptimistic(DefaultTableHeaderSettings()),
	}
}

// Get returns the user's stored settings, falling back to defaults
// when the profile has none.
func (t *TableSettings) Get(ctx context.Context, uid string) (TableHeaderSettings, error) {
	if uid == "" {
		return DefaultTableHeaderSettings(), docstore.Errorf(docstore.InvalidArgument, "table settings: uid is required")
	}
	doc, err := t.store.Get(ctx, profileCollection, uid)
	if err != nil {
		if docstore.IsNotFound(err) {
			return DefaultTableHeaderSettings(), nil
		}
		return DefaultTableHeaderSettings(), err
	}
	raw, ok := doc.Data["tableHeaderSettings"].(map[string]any)
	if !ok {
		return DefaultTableHeaderSettings(), nil
	}
	settings := parseTableHeaderSettings(raw)
	t.local.Reset(settings)
	return settings, nil
}

// Update persists new settings, applying them locally first and
// rolling the local copy back if the write fails.
func (t *TableSettings) Update(ctx context.Context, uid string, settings TableHeaderSettings) error {
	if uid == "" {
		return docstore.Errorf(docstore.InvalidArgument, "table settings: uid is required")
	}
	return t.local.Commit(settings, func(s TableHeaderSettings) error {
		return t.store.Set(ctx, profileCollection, uid, map[string]any{
			"tableHeaderSettings": tableHeaderSettingsData(s),
		}, docstore.SetOptions{Merge: true})
	})
}

// Local returns the optimistic in-process copy without a store read.
func (t *TableSettings) Local() TableHeaderSettings {
	return t.local.Get()
}

func parseTableHeaderSettings(data map[string]any) TableHeaderSettings {
	return TableHeaderSettings{
		Rhythm:         boolValue(data["rhythm"]),
		Key:            boolValue(data["key"]),
		Mode:           boolValue(data["mode"]),
		PlayCount:      boolValue(data["playCount"]),
		TodaysPlays:    boolValue(data["todaysPlays"]),
		LastPlayedDate: boolValue(data["lastPlayedDate"]),
	}
}

func tableHeaderSettingsData(s TableHeaderSettings) map[string]any {
	return map[string]any{
		"rhythm":         s.Rhythm,
		"key":            s.Key,
		"mode":           s.Mode,
		"playCount":      s.PlayCount,
		"todaysPlays":    s.TodaysPlays,
		"lastPlayedDate": s.LastPlayedDate,
	}
}

func boolValue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
