package directory

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidFilter is returned by DecodeFilter for malformed input.
var ErrInvalidFilter = errors.New("invalid filter")

// Field names a filterable/sortable directory attribute.
type Field string

const (
	FieldID   Field = "id"
	FieldName Field = "name"
)

func (f Field) valid() bool {
	return f == FieldID || f == FieldName
}

// FilterExpr is a closed set of filter expressions. A nil FilterExpr
// matches every entry.
type FilterExpr interface {
	isFilter()
}

// Equals matches entries whose field equals Value.
type Equals struct {
	Field Field
	Value string
}

// NotEquals matches entries whose field differs from Value.
type NotEquals struct {
	Field Field
	Value string
}

// NotIn matches entries whose field is none of Values.
type NotIn struct {
	Field  Field
	Values []string
}

// Autocomplete matches entries where Prefix starts the field value or any
// whitespace-separated word of it, case-insensitively.
type Autocomplete struct {
	Field  Field
	Prefix string
}

// Or matches entries matching at least one clause.
type Or []FilterExpr

// And matches entries matching every clause.
type And []FilterExpr

func (Equals) isFilter()       {}
func (NotEquals) isFilter()    {}
func (NotIn) isFilter()        {}
func (Autocomplete) isFilter() {}
func (Or) isFilter()           {}
func (And) isFilter()          {}

const (
	opEq           = "$eq"
	opNe           = "$ne"
	opNin          = "$nin"
	opAutocomplete = "$autocomplete"
	opOr           = "$or"
	opAnd          = "$and"
)

// EncodeFilter converts expr to the directory wire form, e.g.
//
//	{"id":{"$ne":"u1"},"$or":[{"name":{"$autocomplete":"al"}},{"id":{"$autocomplete":"al"}}]}
func EncodeFilter(expr FilterExpr) map[string]interface{} {
	switch f := expr.(type) {
	case nil:
		return map[string]interface{}{}
	case Equals:
		return fieldOp(f.Field, opEq, f.Value)
	case NotEquals:
		return fieldOp(f.Field, opNe, f.Value)
	case NotIn:
		values := f.Values
		if values == nil {
			values = []string{}
		}
		return fieldOp(f.Field, opNin, values)
	case Autocomplete:
		return fieldOp(f.Field, opAutocomplete, f.Prefix)
	case Or:
		return map[string]interface{}{opOr: encodeList(f)}
	case And:
		merged := map[string]interface{}{}
		for _, clause := range f {
			for k, v := range EncodeFilter(clause) {
				if _, clash := merged[k]; clash {
					return map[string]interface{}{opAnd: encodeList(f)}
				}
				merged[k] = v
			}
		}
		return merged
	default:
		panic(fmt.Sprintf("directory: unknown filter type %T", expr))
	}
}

// MarshalFilter returns the JSON wire form of expr.
func MarshalFilter(expr FilterExpr) ([]byte, error) {
	return json.Marshal(EncodeFilter(expr))
}

func fieldOp(field Field, op string, value interface{}) map[string]interface{} {
	return map[string]interface{}{string(field): map[string]interface{}{op: value}}
}

func encodeList(list []FilterExpr) []interface{} {
	out := make([]interface{}, 0, len(list))
	for _, clause := range list {
		out = append(out, EncodeFilter(clause))
	}
	return out
}

// DecodeFilter parses the JSON wire form. Keys are processed in sorted
// order so the resulting expression is deterministic. Empty input or "{}"
// decodes to nil.
func DecodeFilter(data []byte) (FilterExpr, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return decodeObject(obj)
}

func decodeObject(obj map[string]json.RawMessage) (FilterExpr, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var clauses And
	for _, key := range keys {
		raw := obj[key]
		switch key {
		case opOr, opAnd:
			list, err := decodeList(raw)
			if err != nil {
				return nil, err
			}
			if key == opOr {
				clauses = append(clauses, Or(list))
			} else {
				clauses = append(clauses, list...)
			}
		default:
			field := Field(key)
			if !field.valid() {
				return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, key)
			}
			exprs, err := decodeField(field, raw)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, exprs...)
		}
	}

	switch len(clauses) {
	case 0:
		return nil, nil
	case 1:
		return clauses[0], nil
	default:
		return clauses, nil
	}
}

func decodeList(raw json.RawMessage) ([]FilterExpr, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: logical operator needs an array of objects", ErrInvalidFilter)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty logical operator", ErrInvalidFilter)
	}

	out := make([]FilterExpr, 0, len(items))
	for _, item := range items {
		expr, err := decodeObject(item)
		if err != nil {
			return nil, err
		}
		if expr == nil {
			return nil, fmt.Errorf("%w: empty clause", ErrInvalidFilter)
		}
		out = append(out, expr)
	}
	return out, nil
}

func decodeField(field Field, raw json.RawMessage) ([]FilterExpr, error) {
	// {"id": "u1"} is shorthand for {"id": {"$eq": "u1"}}.
	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		return []FilterExpr{Equals{Field: field, Value: value}}, nil
	}

	var ops map[string]json.RawMessage
	if err := json.Unmarshal(raw, &ops); err != nil || len(ops) == 0 {
		return nil, fmt.Errorf("%w: field %q needs a string or operator object", ErrInvalidFilter, field)
	}

	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	out := make([]FilterExpr, 0, len(ops))
	for _, op := range names {
		raw := ops[op]
		switch op {
		case opEq, opNe, opAutocomplete:
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("%w: %s on %q needs a string", ErrInvalidFilter, op, field)
			}
			switch op {
			case opEq:
				out = append(out, Equals{Field: field, Value: s})
			case opNe:
				out = append(out, NotEquals{Field: field, Value: s})
			default:
				out = append(out, Autocomplete{Field: field, Prefix: s})
			}
		case opNin:
			var values []string
			if err := json.Unmarshal(raw, &values); err != nil {
				return nil, fmt.Errorf("%w: $nin on %q needs a string array", ErrInvalidFilter, field)
			}
			out = append(out, NotIn{Field: field, Values: values})
		default:
			return nil, fmt.Errorf("%w: unsupported operator %q", ErrInvalidFilter, op)
		}
	}
	return out, nil
}

// Match evaluates expr against e.
func Match(expr FilterExpr, e Entry) bool {
	switch f := expr.(type) {
	case nil:
		return true
	case Equals:
		return fieldValue(e, f.Field) == f.Value
	case NotEquals:
		return fieldValue(e, f.Field) != f.Value
	case NotIn:
		v := fieldValue(e, f.Field)
		for _, x := range f.Values {
			if x == v {
				return false
			}
		}
		return true
	case Autocomplete:
		return AutocompleteMatch(fieldValue(e, f.Field), f.Prefix)
	case Or:
		for _, clause := range f {
			if Match(clause, e) {
				return true
			}
		}
		return false
	case And:
		for _, clause := range f {
			if !Match(clause, e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AutocompleteMatch reports whether prefix starts value or one of its
// whitespace-separated words, ignoring case.
func AutocompleteMatch(value, prefix string) bool {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return true
	}
	value = strings.ToLower(value)
	if strings.HasPrefix(value, prefix) {
		return true
	}
	for _, word := range strings.Fields(value) {
		if strings.HasPrefix(word, prefix) {
			return true
		}
	}
	return false
}

func fieldValue(e Entry, f Field) string {
	if f == FieldName {
		return e.Name
	}
	return e.ID
}
