package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// List post-processing shared by the memory and badger backends. The
// postgres backend pushes filter/sort/window into SQL and only reuses
// the projection step.

func applyListOptions(docs []Document, opt ListOptions) []Document {
	if opt.Query != "" {
		filtered := docs[:0]
		for _, d := range docs {
			if matchQuery(d, opt.Query) {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}

	sortDocuments(docs, opt.Sort, opt.Asc)
	docs = window(docs, opt.Skip, opt.Limit)

	projected := make([]Document, len(docs))
	for i, d := range docs {
		projected[i] = projectFields(d, opt.Fields)
	}
	return projected
}

// matchQuery implements the backend-defined `q` grammar: case-insensitive
// substring match against the document's JSON encoding.
func matchQuery(doc Document, q string) bool {
	b, err := json.Marshal(doc)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(b)), strings.ToLower(q))
}

// sortDocuments orders by the named field. JSON numbers compare
// numerically, strings lexically, booleans false before true; mixed
// types fall back to comparing type names, and documents missing the
// field sort last regardless of direction.
func sortDocuments(docs []Document, field string, asc bool) {
	if field == "" {
		field = FieldCreatedOn
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i][field]
		b, bok := docs[j][field]
		if !aok || !bok {
			return aok
		}
		c := compareValues(a, b)
		if asc {
			return c < 0
		}
		return c > 0
	})
}

func compareValues(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	case aNum != bNum:
		return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	switch {
	case aStr && bStr:
		return strings.Compare(as, bs)
	case aStr != bStr:
		return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
	}

	ab, aBool := a.(bool)
	bb, bBool := b.(bool)
	if aBool && bBool {
		switch {
		case !ab && bb:
			return -1
		case ab && !bb:
			return 1
		}
		return 0
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func window(docs []Document, skip, limit int) []Document {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(docs) {
		return nil
	}
	docs = docs[skip:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// projectFields keeps only the named fields. An empty list keeps the
// whole document.
func projectFields(doc Document, fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := make(Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

// normalize deep-copies a document through its JSON encoding, both to
// decouple stored state from caller maps and to reject payloads that are
// not JSON-representable.
func normalize(doc Document) (Document, error) {
	if doc == nil {
		return nil, ErrValidation
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return out, nil
}
