package directory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Direction is a sort direction as encoded on the wire.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// SortField orders results by one field.
type SortField struct {
	Field     Field
	Direction Direction
}

// SortSpec is an ordered list of sort keys; earlier keys take precedence.
type SortSpec []SortField

// ByName sorts by display name, ascending.
func ByName() SortSpec {
	return SortSpec{{Field: FieldName, Direction: Ascending}}
}

// MarshalJSON encodes a single key as {"name":1} and several keys as an
// array of single-key objects so the order survives.
func (s SortSpec) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(map[string]int{string(s[0].Field): int(s[0].Direction)})
	}
	list := make([]map[string]int, 0, len(s))
	for _, f := range s {
		list = append(list, map[string]int{string(f.Field): int(f.Direction)})
	}
	return json.Marshal(list)
}

// DecodeSort parses either wire form written by MarshalJSON. Empty input
// decodes to nil.
func DecodeSort(data []byte) (SortSpec, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var list []map[string]int
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: sort: %v", ErrInvalidFilter, err)
		}
	} else {
		var obj map[string]int
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("%w: sort: %v", ErrInvalidFilter, err)
		}
		if len(obj) > 1 {
			return nil, fmt.Errorf("%w: sort object must have one key, use an array", ErrInvalidFilter)
		}
		if len(obj) == 1 {
			list = append(list, obj)
		}
	}

	spec := make(SortSpec, 0, len(list))
	for _, item := range list {
		if len(item) != 1 {
			return nil, fmt.Errorf("%w: sort entry must have one key", ErrInvalidFilter)
		}
		for k, dir := range item {
			field := Field(k)
			if !field.valid() {
				return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidFilter, k)
			}
			if dir != int(Ascending) && dir != int(Descending) {
				return nil, fmt.Errorf("%w: sort direction must be 1 or -1", ErrInvalidFilter)
			}
			spec = append(spec, SortField{Field: field, Direction: Direction(dir)})
		}
	}
	if len(spec) == 0 {
		return nil, nil
	}
	return spec, nil
}
