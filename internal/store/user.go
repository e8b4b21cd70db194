package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/smartpantry/smartpantry/internal/model"
)

// ErrDuplicateEmail is returned when an insert collides with the unique email
// constraint.
var ErrDuplicateEmail = fmt.Errorf("email already exists")

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var passwordHash, googleSub sql.NullString

	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &passwordHash, &googleSub, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if googleSub.Valid {
		u.GoogleSub = &googleSub.String
	}
	return &u, nil
}

const userCols = `id, email, name, password_hash, google_sub, created_at, updated_at`

// Create inserts a user. Either passwordHash or googleSub may be nil, but a
// usable account has at least one of them.
func (s *UserStore) Create(email, name string, passwordHash, googleSub *string) (*model.User, error) {
	var hash, sub sql.NullString
	if passwordHash != nil {
		hash = sql.NullString{String: *passwordHash, Valid: true}
	}
	if googleSub != nil {
		sub = sql.NullString{String: *googleSub, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash, google_sub) VALUES (?, ?, ?, ?)`,
		email, name, hash, sub,
	)
	if err != nil {
		// google_sub is unique too, so match the column before reporting
		// a duplicate email.
		if strings.Contains(err.Error(), "UNIQUE constraint") && strings.Contains(err.Error(), "users.email") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetByGoogleSubOrEmail finds a user by federated subject first, falling back
// to the email address, so a password account can be linked on first Google
// sign-in.
func (s *UserStore) GetByGoogleSubOrEmail(sub, email string) (*model.User, error) {
	row := s.db.QueryRow(
		`SELECT `+userCols+` FROM users WHERE google_sub = ? OR email = ? ORDER BY CASE WHEN google_sub = ? THEN 0 ELSE 1 END LIMIT 1`,
		sub, email, sub,
	)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by google sub or email: %w", err)
	}
	return u, nil
}

// SetGoogleSub backfills the federated subject on an existing account.
func (s *UserStore) SetGoogleSub(id int64, sub string) error {
	_, err := s.db.Exec(`UPDATE users SET google_sub = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, sub, id)
	if err != nil {
		return fmt.Errorf("set google sub: %w", err)
	}
	return nil
}
