package auth

import "fmt"

// Role classifies what a user is allowed to do. Only the three declared
// values are valid; anything else fails ParseRole.
type Role string

const (
	RoleUser     Role = "user"
	RoleUploader Role = "uploader"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleUploader, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanUpload reports whether the role may create catalog entities.
func (r Role) CanUpload() bool {
	return r == RoleUploader || r == RoleAdmin
}

// IsAdmin reports whether the role grants unrestricted access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}
