package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	ErrMissingColumn  = errors.New("missing column")
	ErrUnexpectedType = errors.New("unexpected value type")
	ErrNoRecords      = errors.New("no records")
)

// Record is one row returned by a query. Values are whatever the backend
// produced; the typed accessors decode them and reject unexpected shapes.
type Record struct {
	Keys   []string
	Values []any
}

// Result holds every record of a query.
type Result struct {
	Records []Record
}

// Single returns the only record of r.
func (r *Result) Single() (Record, error) {
	if r == nil || len(r.Records) == 0 {
		return Record{}, ErrNoRecords
	}
	if len(r.Records) > 1 {
		return Record{}, fmt.Errorf("expected one record, got %d", len(r.Records))
	}
	return r.Records[0], nil
}

// Get returns the raw value of column key.
func (r Record) Get(key string) (any, bool) {
	for i, k := range r.Keys {
		if k == key && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

func (r Record) value(key string) (any, error) {
	v, ok := r.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, key)
	}
	return v, nil
}

// String decodes a text column. NULL decodes to "".
func (r Record) String(key string) (string, error) {
	v, err := r.value(key)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("%s: %w %T", key, ErrUnexpectedType, v)
}

// Int decodes an integer column. NULL decodes to 0.
func (r Record) Int(key string) (int64, error) {
	v, err := r.value(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
	}
	return 0, fmt.Errorf("%s: %w %T", key, ErrUnexpectedType, v)
}

// Bool decodes a boolean column. SQLite stores booleans as 0/1; NULL is false.
func (r Record) Bool(key string) (bool, error) {
	v, err := r.value(key)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	}
	return false, fmt.Errorf("%s: %w %T", key, ErrUnexpectedType, v)
}

// Strings decodes a list column: a native list or a JSON array in text form.
func (r Record) Strings(key string) ([]string, error) {
	v, err := r.value(key)
	if err != nil {
		return nil, err
	}
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return l, nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %w list item %T", key, ErrUnexpectedType, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string, []byte:
		var out []string
		if err := json.Unmarshal(asBytes(l), &out); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", key, ErrUnexpectedType, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: %w %T", key, ErrUnexpectedType, v)
}

// Map decodes an object column: a native map or a JSON object in text form.
func (r Record) Map(key string) (map[string]any, error) {
	v, err := r.value(key)
	if err != nil {
		return nil, err
	}
	switch m := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return m, nil
	case string, []byte:
		out := map[string]any{}
		if err := json.Unmarshal(asBytes(m), &out); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", key, ErrUnexpectedType, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: %w %T", key, ErrUnexpectedType, v)
}

// Time decodes an RFC 3339 timestamp column. NULL decodes to the zero time.
func (r Record) Time(key string) (time.Time, error) {
	v, err := r.value(key)
	if err != nil {
		return time.Time{}, err
	}
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case string, []byte:
		text := string(asBytes(t))
		if strings.TrimSpace(text) == "" {
			return time.Time{}, nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w: %v", key, ErrUnexpectedType, err)
		}
		return parsed.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%s: %w %T", key, ErrUnexpectedType, v)
}

func asBytes(v any) []byte {
	if b, ok := v.([]byte); ok {
		return b
	}
	return []byte(v.(string))
}

// FormatTime is the timestamp encoding shared by every backend.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
