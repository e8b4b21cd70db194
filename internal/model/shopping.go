package model

import "time"

type ShoppingList struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []ShoppingItem `json:"items"`
}

// ShoppingItem quantity is an integer count, unlike pantry quantities.
type ShoppingItem struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	Name      string    `json:"name"`
	Quantity  int64     `json:"quantity"`
	Checked   bool      `json:"checked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ShoppingItemUpdate carries a partial update. Nil fields are left untouched.
type ShoppingItemUpdate struct {
	Name     *string
	Quantity *int64
	Checked  *bool
}

func (u ShoppingItemUpdate) Empty() bool {
	return u.Name == nil && u.Quantity == nil && u.Checked == nil
}
