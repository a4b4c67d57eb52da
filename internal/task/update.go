package task

import "encoding/json"

// Optional is a presence-flagged request field: Valid reports whether the
// field appeared in the request body at all, so "omitted" is distinguishable
// from "set to the zero value" (JSON null decodes as the zero value).
type Optional[T any] struct {
	Valid bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Valid: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Valid = true
	if string(b) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UpdateRequest is the field-level change set for a task update. Only fields
// present in the request are evaluated and applied.
type UpdateRequest struct {
	Title           Optional[string] `json:"title"`
	Description     Optional[string] `json:"description"`
	Status          Optional[Status] `json:"status"`
	AssignedAgentID Optional[string] `json:"assigned_agent_id"`
	Comment         Optional[string] `json:"comment"`
}

// HasComment reports whether the request carries a non-empty comment.
func (r *UpdateRequest) HasComment() bool {
	return r.Comment.Valid && r.Comment.Value != ""
}
