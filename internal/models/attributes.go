package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attributes is the free-form attribute map carried alongside the typed
// columns of every entity. It is stored as JSONB.
type Attributes map[string]interface{}

// Clean returns a copy with nil values and empty-string keys removed, since
// the store rejects both. Nested maps are cleaned recursively.
func (a Attributes) Clean() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for key, value := range a {
		if key == "" || value == nil {
			continue
		}
		switch v := value.(type) {
		case map[string]interface{}:
			out[key] = map[string]interface{}(Attributes(v).Clean())
		case Attributes:
			out[key] = map[string]interface{}(v.Clean())
		default:
			out[key] = value
		}
	}
	return out
}

// Value implements driver.Valuer, marshalling the cleaned map to JSON.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(a.Clean())
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	return raw, nil
}

// Scan implements sql.Scanner.
func (a *Attributes) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported attributes source %T", src)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	return json.Unmarshal(raw, a)
}
