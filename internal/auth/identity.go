// Package auth issues and verifies session tokens, hashes passwords and
// decides which identities may perform which actions.
package auth

// Role names used as casbin subjects.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity is the verified content of a session token.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Role returns the casbin subject for the identity.
func (i Identity) Role() string {
	if i.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}
