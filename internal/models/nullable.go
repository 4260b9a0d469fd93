package models

import (
	"bytes"
	"encoding/json"
)

// NullableID is a patchable reference. Set is false when the field was
// absent; Set with a nil Value clears the stored reference.
type NullableID struct {
	Set   bool
	Value *int64
}

// SetID returns a NullableID that sets the reference to id.
func SetID(id int64) NullableID {
	return NullableID{Set: true, Value: &id}
}

// ClearID returns a NullableID that clears the reference.
func ClearID() NullableID {
	return NullableID{Set: true}
}

// Apply returns the patched value of current.
func (n NullableID) Apply(current *int64) *int64 {
	if !n.Set {
		return current
	}
	return n.Value
}

func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
