package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata is an open key/value map for provider-specific extra fields.
// It is stored as a JSONB column and merged key-by-key across refreshes.
type Metadata map[string]interface{}

// Merge returns a copy of m with the keys of each overlay applied on top,
// later overlays winning. Shallow key overwrite only; nil maps are skipped.
func (m Metadata) Merge(overlays ...Metadata) Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			out[k] = v
		}
	}
	return out
}

// Value implements driver.Valuer for JSONB storage.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *Metadata) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// AccountHistory is the append-only sequence of account snapshots,
// stored as a JSONB array.
type AccountHistory []AccountSnapshot

func (h AccountHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *AccountHistory) Scan(value interface{}) error {
	return scanJSON(value, h)
}

// PostHistory is the append-only sequence of post metric snapshots,
// stored as a JSONB array.
type PostHistory []PostSnapshot

func (h PostHistory) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

func (h *PostHistory) Scan(value interface{}) error {
	return scanJSON(value, h)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
