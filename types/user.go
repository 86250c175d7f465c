package types

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleUser      Role = "User"
	RoleModerator Role = "Moderator"
	RoleAdmin     Role = "Admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether r may mutate content authored by others.
func (r Role) Elevated() bool {
	return r == RoleModerator || r == RoleAdmin
}

// AuthRecord is the stored, salted and iterated representation of a password.
// It is replaced wholesale whenever the password changes.
type AuthRecord struct {
	// Hash is the hex-encoded derived key.
	Hash string `json:"-" db:"auth_hash"`

	// Salt is the hex string fed to the key-derivation function.
	Salt string `json:"-" db:"auth_salt"`

	// Iterations is the KDF cost the record was created with.
	Iterations int `json:"-" db:"auth_iterations"`
}

// User represents an account in the system.
// It contains identity, credential, role, and audit metadata.
type User struct {
	// ID is the 24-hex identifier of the account.
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// Auth holds the password credential.
	// This field is never exposed in API responses.
	Auth AuthRecord `json:"-"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicUser is the projection of an account that is safe to show to anyone.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// Public returns the public projection of u.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Role: u.Role}
}
