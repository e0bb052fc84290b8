package identity

import "time"

// Roles a user can hold. Admins may adjust fee settings and mint dev assets.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents a registered marketplace participant. The ID doubles as
// the identity under which escrow balances and registry ownership are kept.
type User struct {
	ID           string
	Email        string
	Role         string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}
