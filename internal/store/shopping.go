package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/smartpantry/smartpantry/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func scanShoppingList(scanner interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	err := scanner.Scan(&l.ID, &l.Name, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingItem, error) {
	var item model.ShoppingItem
	var checked int
	err := scanner.Scan(&item.ID, &item.ListID, &item.Name, &item.Quantity, &checked, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Checked = checked != 0
	return &item, nil
}

const shoppingListCols = `id, name, created_at`
const shoppingItemCols = `id, list_id, name, quantity, checked, created_at, updated_at`

// ListAll returns every list, newest first, each carrying its items newest
// first. When there are no lists the item query is skipped entirely.
func (s *ShoppingStore) ListAll() ([]model.ShoppingList, error) {
	rows, err := s.db.Query(`SELECT ` + shoppingListCols + ` FROM shopping_lists ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	for rows.Next() {
		l, err := scanShoppingList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping list: %w", err)
		}
		l.Items = []model.ShoppingItem{}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return lists, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(lists)), ",")
	args := make([]any, len(lists))
	index := make(map[int64]int, len(lists))
	for i, l := range lists {
		args[i] = l.ID
		index[l.ID] = i
	}

	itemRows, err := s.db.Query(
		`SELECT `+shoppingItemCols+` FROM shopping_items WHERE list_id IN (`+placeholders+`) ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanShoppingItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		if i, ok := index[item.ListID]; ok {
			lists[i].Items = append(lists[i].Items, *item)
		}
	}
	return lists, itemRows.Err()
}

func (s *ShoppingStore) GetList(id int64) (*model.ShoppingList, error) {
	row := s.db.QueryRow(`SELECT `+shoppingListCols+` FROM shopping_lists WHERE id = ?`, id)
	l, err := scanShoppingList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}
	l.Items = []model.ShoppingItem{}
	return l, nil
}

func (s *ShoppingStore) CreateList(name string) (*model.ShoppingList, error) {
	result, err := s.db.Exec(`INSERT INTO shopping_lists (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert shopping list: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetList(id)
}

// DeleteList removes a list and, via the foreign key cascade, its items.
func (s *ShoppingStore) DeleteList(id int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM shopping_lists WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete shopping list: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *ShoppingStore) GetItem(listID, itemID int64) (*model.ShoppingItem, error) {
	row := s.db.QueryRow(`SELECT `+shoppingItemCols+` FROM shopping_items WHERE id = ? AND list_id = ?`, itemID, listID)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return item, nil
}

func (s *ShoppingStore) CreateItem(listID int64, name string, quantity int64) (*model.ShoppingItem, error) {
	result, err := s.db.Exec(
		`INSERT INTO shopping_items (list_id, name, quantity) VALUES (?, ?, ?)`,
		listID, name, quantity,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetItem(listID, id)
}

// UpdateItem applies the supplied fields to an item scoped by both ids, so an
// item cannot be mutated through another list's route. updated_at is always
// refreshed. Returns nil when no row matched.
func (s *ShoppingStore) UpdateItem(listID, itemID int64, u model.ShoppingItemUpdate) (*model.ShoppingItem, error) {
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
	if u.Checked != nil {
		checked := 0
		if *u.Checked {
			checked = 1
		}
		sets = append(sets, "checked = ?")
		args = append(args, checked)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, itemID, listID)
	result, err := s.db.Exec(
		`UPDATE shopping_items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND list_id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetItem(listID, itemID)
}

// DeleteItem removes an item scoped by both ids and reports whether a row was
// removed.
func (s *ShoppingStore) DeleteItem(listID, itemID int64) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM shopping_items WHERE id = ? AND list_id = ?`, itemID, listID)
	if err != nil {
		return false, fmt.Errorf("delete shopping item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
