package docstore

import (
	"sort"
	"strings"
	"time"
)

// sortDocuments orders docs by the query's OrderBy field. Documents missing
// the field sort first. The sort is stable so equal keys keep their stored
// order.
func sortDocuments(docs []Document, q Query) {
	if q.OrderBy == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		cmp := compareValues(docs[i].Data[q.OrderBy], docs[j].Data[q.OrderBy])
		if q.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// compareValues compares two field values of possibly different dynamic
// types. Values of different kinds compare by kind rank, which keeps the
// sort deterministic for heterogeneous data.
func compareValues(a, b any) int {
	ra, fa, sa, ta := rankValue(a)
	rb, fb, sb, tb := rankValue(b)

	if ra != rb {
		return ra - rb
	}
	switch ra {
	case rankNumber:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case rankString:
		return strings.Compare(sa, sb)
	case rankTime:
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		}
		return 0
	}
	return 0
}

const (
	rankAbsent = iota
	rankNumber
	rankTime
	rankString
	rankOther
)

func rankValue(v any) (rank int, f float64, s string, t time.Time) {
	switch x := v.(type) {
	case nil:
		return rankAbsent, 0, "", time.Time{}
	case int:
		return rankNumber, float64(x), "", time.Time{}
	case int64:
		return rankNumber, float64(x), "", time.Time{}
	case float64:
		return rankNumber, x, "", time.Time{}
	case time.Time:
		return rankTime, 0, "", x
	case string:
		return rankString, 0, x, time.Time{}
	default:
		return rankOther, 0, "", time.Time{}
	}
}

// matchesFilters reports whether doc satisfies every equality filter.
func matchesFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if doc.Data[f.Field] != f.Value {
			return false
		}
	}
	return true
}
