package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/gorm"
)

// JSONMap is the free-form JSONB column type shared by every entity's
// schemaless metadata/data/evidence field, per spec §9 ("dynamic evidence
// payloads... persist as JSON").
type JSONMap map[string]interface{}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return gorm.ErrInvalidData
		}
	}
	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Get returns a string field from the map, or "" if absent/not a string.
func (m JSONMap) Get(key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// JSONSlice is the free-form JSONB array column type used for
// touchpoint/attribution lists embedded on Conversion rows.
type JSONSlice []interface{}

func (s *JSONSlice) Scan(value interface{}) error {
	if value == nil {
		*s = JSONSlice{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return gorm.ErrInvalidData
	}
	if len(bytes) == 0 {
		*s = JSONSlice{}
		return nil
	}
	return json.Unmarshal(bytes, s)
}

func (s JSONSlice) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}
