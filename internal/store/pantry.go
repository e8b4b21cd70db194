package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/smartpantry/smartpantry/internal/model"
)

type PantryStore struct {
	db *sql.DB
}

func NewPantryStore(db *sql.DB) *PantryStore {
	return &PantryStore{db: db}
}

func scanPantryItem(scanner interface{ Scan(...any) error }) (*model.PantryItem, error) {
	var item model.PantryItem
	var expiry sql.NullString

	err := scanner.Scan(&item.ID, &item.Name, &item.Quantity, &item.Unit, &expiry, &item.Notes, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		item.ExpiryDate = &expiry.String
	}
	return &item, nil
}

const pantryCols = `id, name, quantity, unit, expiry_date, notes, created_at`

// List returns every pantry item, soonest expiry first, items without an
// expiry date last, ties broken alphabetically.
func (s *PantryStore) List() ([]model.PantryItem, error) {
	rows, err := s.db.Query(`SELECT ` + pantryCols + ` FROM pantry_items
		ORDER BY CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END, expiry_date ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pantry items: %w", err)
	}
	defer rows.Close()

	var items []model.PantryItem
	for rows.Next() {
		item, err := scanPantryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *PantryStore) GetByID(id int64) (*model.PantryItem, error) {
	row := s.db.QueryRow(`SELECT `+pantryCols+` FROM pantry_items WHERE id = ?`, id)
	item, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pantry item: %w", err)
	}
	return item, nil
}

func (s *PantryStore) Create(name string, quantity float64, unit string, expiryDate *string, notes string) (*model.PantryItem, error) {
	var expiry sql.NullString
	if expiryDate != nil && *expiryDate != "" {
		expiry = sql.NullString{String: *expiryDate, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO pantry_items (name, quantity, unit, expiry_date, notes) VALUES (?, ?, ?, ?, ?)`,
		name, quantity, unit, expiry, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pantry item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// Update applies the supplied fields and returns the updated row, or nil when
// no row matched. Changing the expiry date re-arms the reminder flag.
func (s *PantryStore) Update(id int64, u model.PantryItemUpdate) (*model.PantryItem, error) {
	var sets []string
	var args []any

	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *u.Quantity)
	}
	if u.Unit != nil {
		sets = append(sets, "unit = ?")
		args = append(args, *u.Unit)
	}
	if u.ExpiryDate != nil {
		var expiry sql.NullString
		if *u.ExpiryDate != "" {
			expiry = sql.NullString{String: *u.ExpiryDate, Valid: true}
		}
		sets = append(sets, "expiry_date = ?", "expiry_notified = 0")
		args = append(args, expiry)
	}
	if u.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *u.Notes)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, id)
	result, err := s.db.Exec(`UPDATE pantry_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update pantry item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetByID(id)
}

// Delete removes an item by id and reports whether a row was removed.
func (s *PantryStore) Delete(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM pantry_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete pantry item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListExpiringWithin returns un-notified items whose expiry date falls between
// today and today+days, inclusive. Dates are compared as YYYY-MM-DD strings.
func (s *PantryStore) ListExpiringWithin(today string, days int) ([]model.PantryItem, error) {
	rows, err := s.db.Query(`SELECT `+pantryCols+` FROM pantry_items
		WHERE expiry_date IS NOT NULL
		  AND expiry_notified = 0
		  AND expiry_date >= ?
		  AND expiry_date <= date(?, '+' || ? || ' days')
		ORDER BY expiry_date ASC`, today, today, days)
	if err != nil {
		return nil, fmt.Errorf("list expiring items: %w", err)
	}
	defer rows.Close()

	var items []model.PantryItem
	for rows.Next() {
		item, err := scanPantryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// MarkExpiryNotified records that an expiry reminder was sent for the item.
func (s *PantryStore) MarkExpiryNotified(id int64) error {
	_, err := s.db.Exec(`UPDATE pantry_items SET expiry_notified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark expiry notified: %w", err)
	}
	return nil
}
