package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OptionalUUID distinguishes an absent JSON key (Set false) from an explicit
// null or empty string (Set true, Value nil).
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
	// Invalid is true when the key held something other than a uuid
	Invalid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (o *OptionalUUID) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	o.Invalid = false
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		o.Invalid = true
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		o.Invalid = true
		return nil
	}
	o.Value = &id
	return nil
}

// dueLayouts are accepted for task due dates, including the browser's
// datetime-local format.
var dueLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// OptionalTime distinguishes an absent JSON key from null or "".
type OptionalTime struct {
	Set     bool
	Value   *time.Time
	Invalid bool
}

// UnmarshalJSON implements json.Unmarshaler
func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	o.Invalid = false
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		o.Invalid = true
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			o.Value = &t
			return nil
		}
	}
	o.Invalid = true
	return nil
}

// uuidOrNil unwraps an optional id into a value gorm writes as NULL when absent
func uuidOrNil(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
