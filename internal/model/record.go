// Package model defines the core memory data types.
package model

import (
	"fmt"
	"time"
)

// Type identifies the retention strategy that owns a record.
type Type string

const (
	TypeBuffer   Type = "buffer"
	TypeSummary  Type = "summary"
	TypeEntity   Type = "entity"
	TypeLongTerm Type = "longterm"
)

// AllTypes lists every memory type in a fixed order.
var AllTypes = []Type{TypeBuffer, TypeSummary, TypeEntity, TypeLongTerm}

// ParseType validates a memory type string from the public boundary.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeBuffer, TypeSummary, TypeEntity, TypeLongTerm:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown memory type %q", s)
}

// Valid reports whether t is one of the known memory types.
func (t Type) Valid() bool {
	_, err := ParseType(string(t))
	return err == nil
}

// Metadata holds the annotations the engine itself inspects, plus a bounded
// free-form extension map for callers.
type Metadata struct {
	Pinned     bool              `json:"pinned,omitempty"`
	Importance float64           `json:"importance,omitempty"`
	Speaker    string            `json:"speaker,omitempty"`
	Summarizes []string          `json:"summarizes,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// IsZero reports whether the metadata carries no annotations at all.
func (m Metadata) IsZero() bool {
	return !m.Pinned && m.Importance == 0 && m.Speaker == "" &&
		len(m.Summarizes) == 0 && len(m.Extra) == 0
}

// Record represents a stored memory entry. ID and Content are immutable once
// written; Entity upserts supersede the old content under the same id.
type Record struct {
	ID             string    `json:"id"`
	Type           Type      `json:"memory_type"`
	Key            string    `json:"key,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    int       `json:"access_count"`
	Archived       bool      `json:"archived,omitempty"`
	Metadata       Metadata  `json:"metadata,omitempty"`
}
