package docstore

import (
	"sort"
	"strings"
)

// Query selects documents of one collection. Only equality filters are
// supported. An empty OrderBy orders by document id.
type Query struct {
	Collection Path
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Filter is an equality filter on a field.
type Filter struct {
	Field string
	Value any
}

// Where returns a copy of q with an extra equality filter.
func (q Query) Where(field string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Value: value})
	return q
}

// Matches reports whether the snapshot satisfies every filter.
func (q Query) Matches(s *Snapshot) bool {
	if s == nil || !s.Exists {
		return false
	}
	for _, f := range q.Filters {
		v, ok := s.Data[f.Field]
		if !ok {
			return false
		}
		fv, err := normalizeValue(f.Value)
		if err != nil || typeOrder(v) != typeOrder(fv) || Compare(v, fv) != 0 {
			return false
		}
	}
	return true
}

// Apply filters, orders and limits docs in memory for backends without a
// native query engine. Documents missing the order field are excluded.
func (q Query) Apply(docs []*Snapshot) []*Snapshot {
	out := make([]*Snapshot, 0, len(docs))
	for _, d := range docs {
		if !q.Matches(d) {
			continue
		}
		if q.OrderBy != "" {
			if _, ok := d.Data[q.OrderBy]; !ok {
				continue
			}
		}
		out = append(out, d)
	}

	less := func(a, b *Snapshot) int {
		if q.OrderBy != "" {
			if c := Compare(a.Data[q.OrderBy], b.Data[q.OrderBy]); c != 0 {
				return c
			}
		}
		return strings.Compare(a.ID(), b.ID())
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if q.Desc {
			return c > 0
		}
		return c < 0
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
