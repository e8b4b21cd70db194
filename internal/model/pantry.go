package model

import "time"

// PantryItem is a tracked grocery good. Quantity is a real number (a pantry
// can hold 0.5 kg of flour); ExpiryDate is a calendar day in YYYY-MM-DD form,
// nil when the item does not expire.
type PantryItem struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Quantity   float64   `json:"quantity"`
	Unit       string    `json:"unit"`
	ExpiryDate *string   `json:"expiry_date"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// PantryItemUpdate carries a partial update. Nil fields are left untouched.
// An ExpiryDate pointing at an empty string clears the date.
type PantryItemUpdate struct {
	Name       *string
	Quantity   *float64
	Unit       *string
	ExpiryDate *string
	Notes      *string
}

// Empty reports whether the update would change nothing.
func (u PantryItemUpdate) Empty() bool {
	return u.Name == nil && u.Quantity == nil && u.Unit == nil && u.ExpiryDate == nil && u.Notes == nil
}
