package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
)

// StringArray stores a list of strings in a single text column. Values are
// always written as JSON; reads also accept the PostgreSQL array literal
// form ({a,b}) so columns migrated from TEXT[] keep working.
type StringArray []string

// Scan implements the sql.Scanner interface for reading from the database.
func (a *StringArray) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		return a.parse(string(v))
	case string:
		return a.parse(v)
	default:
		return errors.New("StringArray: unsupported scan type")
	}
}

func (a *StringArray) parse(s string) error {
	switch {
	case s == "":
		*a = StringArray{}
		return nil
	case strings.HasPrefix(s, "["):
		return json.Unmarshal([]byte(s), (*[]string)(a))
	case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
		*a = parsePostgresArray(s[1 : len(s)-1])
		return nil
	default:
		*a = StringArray{s}
		return nil
	}
}

// parsePostgresArray parses the body of a PostgreSQL array literal,
// honouring double quotes and backslash escapes.
func parsePostgresArray(s string) StringArray {
	out := StringArray{}
	if s == "" {
		return out
	}

	var current strings.Builder
	inQuotes, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			out = append(out, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(out, current.String())
}

// Value implements the driver.Valuer interface for writing to the database.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (StringArray) GormDataType() string {
	return "text"
}
