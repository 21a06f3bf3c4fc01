package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShaniStaretz-ai/FinalProject/internal/model"
)

// ErrUserNotFound is returned by ledger operations on an unknown account.
var ErrUserNotFound = fmt.Errorf("user not found")

// InsufficientTokensError is returned when a debit precondition fails.
type InsufficientTokensError struct {
	Required  int
	Available int
}

func (e *InsufficientTokensError) Error() string {
	return fmt.Sprintf("insufficient tokens: required %d, available %d", e.Required, e.Available)
}

// UserRepository owns the users table, including the token ledger. Token
// balances are only ever changed through CheckAndDebit, Refund and Grant.
type UserRepository struct {
	d *Database
}

func NewUserRepository(d *Database) *UserRepository {
	return &UserRepository{d: d}
}

// Create inserts a new user. Returns (0, false, nil) when the email is
// already registered.
func (r *UserRepository) Create(email, passwordHash string, tokens int, isAdmin bool) (int, bool, error) {
	now := time.Now().Format(time.RFC3339)
	query := `
		INSERT INTO users (email, password_hash, tokens, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.d.db.Exec(query, email, passwordHash, tokens, isAdmin, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, false, nil
		}
		return 0, false, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, false, err
	}

	return int(id), true, nil
}

// GetByEmail returns a user by email, or nil when absent.
func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	return r.scanOne(`
		SELECT id, email, password_hash, tokens, is_admin, created_at
		FROM users WHERE email = ?
	`, email)
}

// GetByID returns a user by ID, or nil when absent.
func (r *UserRepository) GetByID(userID int) (*model.User, error) {
	return r.scanOne(`
		SELECT id, email, password_hash, tokens, is_admin, created_at
		FROM users WHERE id = ?
	`, userID)
}

func (r *UserRepository) scanOne(query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.d.db.QueryRow(query, arg).Scan(
		&user.ID, &user.Email, &user.Password, &user.Tokens,
		&user.IsAdmin, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users ordered by id. When minTokens is non-nil only users
// holding at least that balance are included.
func (r *UserRepository) List(minTokens *int) ([]model.User, error) {
	query := `
		SELECT id, email, password_hash, tokens, is_admin, created_at
		FROM users
	`
	var args []interface{}
	if minTokens != nil {
		query += ` WHERE tokens >= ?`
		args = append(args, *minTokens)
	}
	query += ` ORDER BY id`

	rows, err := r.d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(&user.ID, &user.Email, &user.Password, &user.Tokens,
			&user.IsAdmin, &user.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Delete deletes a user by ID. Owned model rows go with it via the foreign
// key cascade; artifact files are the caller's responsibility.
func (r *UserRepository) Delete(userID int) (bool, error) {
	result, err := r.d.db.Exec(`DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(userID int, passwordHash string) (bool, error) {
	result, err := r.d.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// CheckAndDebit atomically verifies the balance covers amount and subtracts
// it, returning the committed balance. The check-then-set is a single
// conditional UPDATE: two concurrent debits can never overdraw the account.
// The failure diagnosis runs in the same transaction, so the reported
// available balance is the one the debit actually saw.
func (r *UserRepository) CheckAndDebit(userID, amount int) (int, error) {
	var balance int
	err := r.d.WithTx(func(tx *sql.Tx) error {
		err := tx.QueryRow(`
			UPDATE users SET tokens = tokens - ?
			WHERE id = ? AND tokens >= ?
			RETURNING tokens
		`, amount, userID, amount).Scan(&balance)

		if err == sql.ErrNoRows {
			var available int
			err := tx.QueryRow(`SELECT tokens FROM users WHERE id = ?`, userID).Scan(&available)
			if err == sql.ErrNoRows {
				return ErrUserNotFound
			}
			if err != nil {
				return err
			}
			return &InsufficientTokensError{Required: amount, Available: available}
		}
		return err
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// Refund unconditionally adds amount back to the balance. Used to undo a
// prior successful debit after a downstream failure.
func (r *UserRepository) Refund(userID, amount int) error {
	result, err := r.d.db.Exec(`UPDATE users SET tokens = tokens + ? WHERE id = ?`, amount, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Grant is the admin top-up. Same arithmetic as a refund.
func (r *UserRepository) Grant(userID, amount int) error {
	return r.Refund(userID, amount)
}
