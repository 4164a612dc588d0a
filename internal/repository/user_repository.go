package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/atypikhouse/internal/model"
	"github.com/iliyamo/atypikhouse/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id,email,password_hash,first_name,last_name,phone,role,is_verified,
	verification_document,profile_picture,created_at,updated_at`

// Create hashes the password, inserts the user and returns its ID.
// The email is normalised before insert.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) (uint64, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, phone, role, is_verified, verification_document)
		 VALUES (?,?,?,?,?,?,?,?)`,
		u.Email, hash, u.FirstName, u.LastName, nullString(u.Phone), u.Role, u.IsVerified, nullString(u.VerificationDocument))
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	u.PasswordHash = hash
	return u.ID, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns users ordered by newest first, optionally filtered by role.
func (r *UserRepo) List(ctx context.Context, role string) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	var args []any
	if role != "" {
		q += " WHERE role=?"
		args = append(args, role)
	}
	q += " ORDER BY created_at DESC, id DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetVerified flips the admin verification flag.  sql.ErrNoRows is
// returned when the user does not exist.
func (r *UserRepo) SetVerified(ctx context.Context, id uint64, verified bool) error {
	return r.updateOne(ctx, "UPDATE users SET is_verified=?, updated_at=UTC_TIMESTAMP() WHERE id=?", verified, id)
}

// SetRole changes the user's role.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	return r.updateOne(ctx, "UPDATE users SET role=?, updated_at=UTC_TIMESTAMP() WHERE id=?", role, id)
}

// SetProfilePicture stores the uploaded picture path.
func (r *UserRepo) SetProfilePicture(ctx context.Context, id uint64, path string) error {
	return r.updateOne(ctx, "UPDATE users SET profile_picture=?, updated_at=UTC_TIMESTAMP() WHERE id=?", path, id)
}

// SetVerificationDocument stores the owner's uploaded document path.
func (r *UserRepo) SetVerificationDocument(ctx context.Context, id uint64, path string) error {
	return r.updateOne(ctx, "UPDATE users SET verification_document=?, updated_at=UTC_TIMESTAMP() WHERE id=?", path, id)
}

func (r *UserRepo) updateOne(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when values are unchanged, so
	// confirm existence separately.
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		id := args[len(args)-1]
		return r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&one)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u               model.User
		phone, doc, pic sql.NullString
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &phone, &u.Role,
		&u.IsVerified, &doc, &pic, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Phone = stringPtr(phone)
	u.VerificationDocument = stringPtr(doc)
	u.ProfilePicture = stringPtr(pic)
	return u, nil
}
