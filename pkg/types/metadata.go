package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is free-form profile data (job title and the like) persisted as JSONB.
type Metadata map[string]string

// Get returns the value stored under key, or "".
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Value marshals the map into JSON for Postgres.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the map.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("metadata: unsupported scan type %T", value)
	}

	result := make(Metadata)
	if len(raw) == 0 {
		*m = result
		return nil
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*m = result
	return nil
}
