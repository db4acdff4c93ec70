package docstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/pipeline"
)

// Memstore is an in-memory Store that interprets the typed pipeline stages
// directly. It backs unit tests and local runs without a MongoDB instance.
type Memstore struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	unique      map[string][]string
}

func NewMemstore() *Memstore {
	return &Memstore{
		collections: make(map[string][]bson.M),
		unique:      make(map[string][]string),
	}
}

// EnsureUniqueIndex registers a unique constraint checked on insert.
func (m *Memstore) EnsureUniqueIndex(collection, field string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unique[collection] = append(m.unique[collection], field)
}

func (m *Memstore) Collection(name string) Collection {
	return &memCollection{store: m, name: name}
}

type memCollection struct {
	store *Memstore
	name  string
}

func (c *memCollection) InsertOne(ctx context.Context, doc bson.M) error {
	if err := ctx.Err(); err != nil {
		return mapError(err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, field := range c.store.unique[c.name] {
		value, ok := doc[field]
		if !ok {
			continue
		}
		for _, existing := range c.store.collections[c.name] {
			if existing[field] == value {
				return errDuplicateKey
			}
		}
	}

	c.store.collections[c.name] = append(c.store.collections[c.name], copyDoc(doc))
	return nil
}

func (c *memCollection) UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, mapError(err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, doc := range c.store.collections[c.name] {
		if matchesFilter(doc, filter) {
			for k, v := range set {
				doc[k] = v
			}
			return 1, nil
		}
	}
	return 0, nil
}

// Aggregate fails wholesale on an exceeded deadline; a timed-out pipeline
// never yields a partial result.
func (c *memCollection) Aggregate(ctx context.Context, stages []pipeline.Stage) ([]bson.M, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err)
	}

	c.store.mu.RLock()
	docs := make([]bson.M, 0, len(c.store.collections[c.name]))
	for _, doc := range c.store.collections[c.name] {
		docs = append(docs, copyDoc(doc))
	}
	foreign := make(map[string][]bson.M)
	for name, collection := range c.store.collections {
		foreign[name] = collection
	}
	c.store.mu.RUnlock()

	for _, stage := range stages {
		switch s := stage.(type) {
		case pipeline.Join:
			docs = applyJoin(docs, foreign[s.From], s)
		case pipeline.Match:
			docs = applyMatch(docs, s)
		case pipeline.ToDouble:
			for _, doc := range docs {
				if value, ok := getPath(doc, s.Field); ok {
					setPath(doc, s.Field, toFloat(value))
				}
			}
		case pipeline.Sort:
			applySort(docs, s)
		case pipeline.Project:
			for i, doc := range docs {
				docs[i] = applyProject(doc, s)
			}
		case pipeline.Skip:
			if s.N >= int64(len(docs)) {
				docs = nil
			} else {
				docs = docs[s.N:]
			}
		case pipeline.Limit:
			if int64(len(docs)) > s.N {
				docs = docs[:s.N]
			}
		case pipeline.Count:
			return []bson.M{{s.As: int64(len(docs))}}, nil
		}
	}

	return docs, nil
}

func applyJoin(docs, from []bson.M, join pipeline.Join) []bson.M {
	var out []bson.M
	for _, doc := range docs {
		local, _ := getPath(doc, join.LocalField)
		var matches []bson.M
		for _, other := range from {
			if foreign, ok := getPath(other, join.ForeignField); ok && foreign == local {
				matches = append(matches, copyDoc(other))
			}
		}

		if !join.Unwind {
			joined := copyDoc(doc)
			joined[join.As] = matches
			out = append(out, joined)
			continue
		}

		// Unwind drops documents without a match (inner join).
		for _, match := range matches {
			joined := copyDoc(doc)
			joined[join.As] = match
			out = append(out, joined)
		}
	}
	return out
}

func applyMatch(docs []bson.M, match pipeline.Match) []bson.M {
	var out []bson.M
	for _, doc := range docs {
		if matchesPredicates(doc, match.Predicates) {
			out = append(out, doc)
		}
	}
	return out
}

func matchesPredicates(doc bson.M, predicates []pipeline.Predicate) bool {
	for _, p := range predicates {
		switch pred := p.(type) {
		case pipeline.Eq:
			value, ok := getPath(doc, pred.Field)
			if !ok || value != pred.Value {
				return false
			}
		case pipeline.In:
			value, ok := getPath(doc, pred.Field)
			if !ok {
				return false
			}
			found := false
			for _, candidate := range pred.Values {
				if candidate == value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case pipeline.EqFold:
			value, ok := getPath(doc, pred.Field)
			if !ok {
				return false
			}
			text, ok := value.(string)
			if !ok {
				return false
			}
			found := false
			for _, candidate := range pred.Values {
				if strings.EqualFold(text, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case pipeline.TimeRange:
			value, ok := getPath(doc, pred.Field)
			if !ok {
				return false
			}
			ts, ok := toTime(value)
			if !ok {
				return false
			}
			if pred.Start != nil && ts.Before(*pred.Start) {
				return false
			}
			if pred.End != nil && ts.After(*pred.End) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func applySort(docs []bson.M, s pipeline.Sort) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := getPath(docs[i], s.Field)
		b, _ := getPath(docs[j], s.Field)
		cmp := compareValues(a, b)
		if cmp == 0 && s.TieBreak != "" {
			ta, _ := getPath(docs[i], s.TieBreak)
			tb, _ := getPath(docs[j], s.TieBreak)
			return compareValues(ta, tb) < 0
		}
		if s.Descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

func applyProject(doc bson.M, p pipeline.Project) bson.M {
	out := bson.M{}
	for _, f := range p.Fields {
		source := f.From
		if source == "" {
			source = f.Name
		}
		if value, ok := getPath(doc, source); ok {
			out[f.Name] = value
		}
	}
	// Mongo keeps _id unless explicitly excluded; mirror that for the
	// tie-break key.
	if id, ok := doc["_id"]; ok {
		if _, projected := out["_id"]; !projected {
			out["_id"] = id
		}
	}
	return out
}

func matchesFilter(doc bson.M, filter bson.M) bool {
	for field, expected := range filter {
		value, ok := getPath(doc, field)
		if !ok || value != expected {
			return false
		}
	}
	return true
}

func getPath(doc bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(bson.M)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setPath(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(bson.M)
		if !ok {
			next = bson.M{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func copyDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		if nested, ok := v.(bson.M); ok {
			out[k] = copyDoc(nested)
			continue
		}
		out[k] = v
	}
	return out
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case primitive.DateTime:
		return v.Time(), true
	default:
		return time.Time{}, false
	}
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := toTime(b); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
		}
		return 0
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case primitive.ObjectID:
		if bv, ok := b.(primitive.ObjectID); ok {
			return strings.Compare(av.Hex(), bv.Hex())
		}
	}

	// Everything else compares numerically, so textual amounts that were
	// normalized with ToDouble order as numbers.
	af, bf := toFloat(a), toFloat(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}
