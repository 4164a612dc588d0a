package model

import "time"

// Role names stored in users.role and carried in the JWT "role" claim.
const (
	RoleTenant = "TENANT"
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Owners are created unverified and must be verified
// by an admin before they can list properties; tenants are verified
// on registration.
//
// Fields:
//
//	ID                   – primary key identifier of the user.
//	Email                – unique, lower-cased email address.
//	PasswordHash         – bcrypt hashed password (never serialised).
//	FirstName, LastName  – display name parts.
//	Phone                – optional phone number.
//	Role                 – TENANT, OWNER or ADMIN.
//	IsVerified           – admin verification flag.
//	VerificationDocument – optional path/reference supplied by owners.
//	ProfilePicture       – optional uploaded picture path.
type User struct {
	ID                   uint64    `json:"id"`                              // users.id
	Email                string    `json:"email"`                           // users.email
	PasswordHash         string    `json:"-"`                               // users.password_hash
	FirstName            string    `json:"first_name"`                      // users.first_name
	LastName             string    `json:"last_name"`                       // users.last_name
	Phone                *string   `json:"phone,omitempty"`                 // users.phone
	Role                 string    `json:"role"`                            // users.role
	IsVerified           bool      `json:"is_verified"`                     // users.is_verified
	VerificationDocument *string   `json:"verification_document,omitempty"` // users.verification_document
	ProfilePicture       *string   `json:"profile_picture,omitempty"`       // users.profile_picture
	CreatedAt            time.Time `json:"created_at"`                      // users.created_at
	UpdatedAt            time.Time `json:"updated_at"`                      // users.updated_at
}

// FullName joins first and last name for email salutations.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user carries the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
	switch r {
	case RoleTenant, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
