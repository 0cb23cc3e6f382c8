package models

import "gorm.io/gorm"

// Role distinguishes the two storefront roles.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// User represents an account as stored by the auth backend.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Name       string `json:"name" gorm:"type:varchar(100)" validate:"required,min=2,max=100"`
	Email      string `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password   string `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	Role       Role   `json:"role" gorm:"type:varchar(16)" validate:"required,oneof=buyer seller"`
	AvatarRef  string `json:"avatar_ref" gorm:"type:varchar(255)"`
	gorm.Model        // CreatedAt, UpdatedAt, DeletedAt
}

// Identity is the published view of an authenticated user. It never
// carries the password and is safe to hand to subscribers.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// Identity derives the published view of a user.
func (u *User) Identity() Identity {
	return Identity{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		AvatarRef: u.AvatarRef,
	}
}

// Credentials is a login request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// IdentityUpdate is a partial identity change (e.g. after an avatar
// upload). Nil fields are left untouched.
type IdentityUpdate struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	AvatarRef *string `json:"avatar_ref,omitempty"`
}
