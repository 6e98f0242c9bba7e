// Package tunes implements the tune catalogue: cached collection
// repositories over the document store, the materialized list-view
// document, and the orphan cleanup coordinator that rides along with
// list-view reads.
package tunes

import (
	"fmt"
	"sort"
	"time"
)

// Collection paths in the document store.
const (
	CollectionTunes    = "tunes"
	CollectionSets     = "sets"
	CollectionTuneSets = "tuneSets"
	CollectionCache    = "cache"
)

// ListViewDocID is the fixed id of the materialized list-view document
// inside CollectionCache.
const ListViewDocID = "tune-list-view"

// ListViewVersion is the schema version written into the list-view
// document. Readers reject documents with a newer version.
const ListViewVersion = 1

// Tune is a full catalogue entry.
type Tune struct {
	ID         string
	TuneNo     string
	SetNo      string
	Name       string
	Link       string
	Genre      string
	Date       string
	Rhythm     string
	Key        string
	Mode       string
	Part       string
	Source     string
	Spotify    string
	Instrument string
	Composer   string
	Region     string
	AlsoKnown  string
}

// TuneListItem is the trimmed projection embedded in the list-view
// document. Only the fields the list screen renders.
type TuneListItem struct {
	ID     string
	TuneNo string
	Name   string
	Rhythm string
	Key    string
	Mode   string
}

// Set groups tunes that are played back to back.
type Set struct {
	ID          string
	Name        string
	VideoLink   string
	Order       string
	SetNo       string
	Description string
	CreatedAt   string
	UpdatedAt   string
	TuneIDs     []string
	TuneCount   int
}

// TuneSet is the membership edge between a tune and a set. Its
// document id is always TuneSetID(TuneID, SetID).
type TuneSet struct {
	ID        string
	TuneID    string
	SetID     string
	Position  int
	CreatedAt string
	UpdatedAt string
	Note      string
}

// TuneSetID builds the deterministic membership document id, so adding
// the same tune to the same set twice overwrites instead of
// duplicating.
func TuneSetID(tuneID, setID string) string {
	return tuneID + "_" + setID
}

// ParseTune decodes a raw document into a Tune. Missing or mistyped
// fields fall back to defaults so a single malformed document never
// fails a whole collection scan.
func ParseTune(data map[string]any, id string) Tune {
	return Tune{
		ID:         id,
		TuneNo:     stringField(data, "tuneNo", "0"),
		SetNo:      stringField(data, "setNo", ""),
		Name:       stringField(data, "name", "Unknown Tune"),
		Link:       stringField(data, "link", ""),
		Genre:      stringField(data, "genre", ""),
		Date:       stringField(data, "date", ""),
		Rhythm:     stringField(data, "rhythm", ""),
		Key:        stringField(data, "key", ""),
		Mode:       stringField(data, "mode", ""),
		Part:       stringField(data, "part", ""),
		Source:     stringField(data, "source", ""),
		Spotify:    stringField(data, "spotify", ""),
		Instrument: stringField(data, "instrument", ""),
		Composer:   stringField(data, "composer", ""),
		Region:     stringField(data, "region", ""),
		AlsoKnown:  stringField(data, "alsoKnown", ""),
	}
}

// ParseTuneListItem decodes a raw document into the list projection
// with the same defaulting rules as ParseTune.
func ParseTuneListItem(data map[string]any, id string) TuneListItem {
	return TuneListItem{
		ID:     id,
		TuneNo: stringField(data, "tuneNo", "0"),
		Name:   stringField(data, "name", "Unknown Tune"),
		Rhythm: stringField(data, "rhythm", ""),
		Key:    stringField(data, "key", ""),
		Mode:   stringField(data, "mode", ""),
	}
}

// ListItemOf projects a full Tune onto its list-view shape.
func ListItemOf(t Tune) TuneListItem {
	return TuneListItem{
		ID:     t.ID,
		TuneNo: t.TuneNo,
		Name:   t.Name,
		Rhythm: t.Rhythm,
		Key:    t.Key,
		Mode:   t.Mode,
	}
}

func (i TuneListItem) data() map[string]any {
	return map[string]any{
		"id":     i.ID,
		"tuneNo": i.TuneNo,
		"name":   i.Name,
		"rhythm": i.Rhythm,
		"key":    i.Key,
		"mode":   i.Mode,
	}
}

// ParseSet decodes a raw document into a Set.
func ParseSet(data map[string]any, id string) Set {
	tuneIDs := stringSliceField(data, "tuneIds")
	return Set{
		ID:          id,
		Name:        stringField(data, "name", "Unknown Set"),
		VideoLink:   stringField(data, "videoLink", ""),
		Order:       stringField(data, "order", ""),
		SetNo:       stringField(data, "setNo", ""),
		Description: stringField(data, "description", ""),
		CreatedAt:   stringField(data, "createdAt", ""),
		UpdatedAt:   stringField(data, "updatedAt", ""),
		TuneIDs:     tuneIDs,
		TuneCount:   intField(data, "tuneCount", len(tuneIDs)),
	}
}

// ParseTuneSet decodes a raw document into a TuneSet.
func ParseTuneSet(data map[string]any, id string) TuneSet {
	return TuneSet{
		ID:        id,
		TuneID:    stringField(data, "tuneId", ""),
		SetID:     stringField(data, "setId", ""),
		Position:  intField(data, "position", 0),
		CreatedAt: stringField(data, "createdAt", ""),
		UpdatedAt: stringField(data, "updatedAt", ""),
		Note:      stringField(data, "note", ""),
	}
}

func (ts TuneSet) data() map[string]any {
	d := map[string]any{
		"tuneId":    ts.TuneID,
		"setId":     ts.SetID,
		"position":  ts.Position,
		"createdAt": ts.CreatedAt,
		"updatedAt": ts.UpdatedAt,
	}
	if ts.Note != "" {
		d["note"] = ts.Note
	}
	return d
}

// sortTuneSets orders memberships by set, then by position inside the
// set, matching how sets are rendered.
func sortTuneSets(list []TuneSet) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SetID != list[j].SetID {
			return list[i].SetID < list[j].SetID
		}
		return list[i].Position < list[j].Position
	})
}

func stringField(data map[string]any, key, fallback string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return fallback
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fallback
	}
}

// intField tolerates the numeric types that show up depending on the
// backend: native ints from the in-memory store, float64 from JSON and
// DynamoDB number decoding.
func intField(data map[string]any, key string, fallback int) int {
	v, ok := data[key]
	if !ok || v == nil {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func stringSliceField(data map[string]any, key string) []string {
	v, ok := data[key]
	if !ok || v == nil {
		return nil
	}
	switch raw := v.(type) {
	case []string:
		out := make([]string, len(raw))
		copy(out, raw)
		return out
	case []any:
		out := make([]string, 0, len(raw))
		for _, e := range raw {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// timeField accepts both native time values and RFC3339 strings, the
// two encodings timestamps survive round trips in.
func timeField(data map[string]any, key string) (time.Time, bool) {
	v, ok := data[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
