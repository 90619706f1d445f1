package models

import "encoding/json"

// ShoppingListItem is a normalized entry from the remote shopping list.
// Value is always non-empty in normalized output. ID is present only when the
// source exposes a stable identifier; without it the item cannot be deleted.
type ShoppingListItem struct {
	ID         string          `json:"id,omitempty"`
	Value      string          `json:"value"`
	RawPayload json.RawMessage `json:"-"`
}

// Deletable reports whether the item carries an identifier usable for removal.
func (i ShoppingListItem) Deletable() bool {
	return i.ID != ""
}
