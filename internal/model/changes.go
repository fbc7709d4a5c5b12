package model

import (
	"fmt"
	"strings"
)

type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ChangeSet records field-level differences produced by a partial update.
type ChangeSet []FieldChange

func (c *ChangeSet) Add(field, from, to string) {
	if from == to {
		return
	}
	*c = append(*c, FieldChange{Field: field, From: from, To: to})
}

func (c ChangeSet) Empty() bool {
	return len(c) == 0
}

func (c ChangeSet) Has(field string) bool {
	for _, change := range c {
		if change.Field == field {
			return true
		}
	}
	return false
}

func (c ChangeSet) Summary() string {
	parts := make([]string, 0, len(c))
	for _, change := range c {
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", change.Field, display(change.From), display(change.To)))
	}
	return strings.Join(parts, "; ")
}

func (c ChangeSet) Metadata() map[string]interface{} {
	changes := make([]map[string]string, 0, len(c))
	for _, change := range c {
		changes = append(changes, map[string]string{"field": change.Field, "from": change.From, "to": change.To})
	}
	return map[string]interface{}{"changes": changes}
}

func display(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
