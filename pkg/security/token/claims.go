package token

import (
	"slices"
	"time"

	"aidanwoods.dev/go-paseto"
)

// Claims carries the verified identity of the actor behind a command.
type Claims struct {
	// UserID is the subject of the token.
	UserID string
	// Role is the user's role (e.g. "catalog_manager").
	Role string
	// Permissions lists the permissions granted to the user.
	Permissions []string
	// Type is the token type ("access" or "refresh").
	Type string
	IssuedAt  time.Time
	ExpiresAt time.Time
	NotBefore time.Time

	// token keeps the parsed PASETO token for custom claim access.
	token *paseto.Token
}

// WildcardPermission grants every permission.
const WildcardPermission = "*"

// HasPermission reports whether the user holds the permission, either
// exactly or via the wildcard.
func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, WildcardPermission) ||
		slices.Contains(c.Permissions, permission)
}

// GetString returns a custom string claim from the token.
func (c *Claims) GetString(key string) (string, error) {
	if c.token == nil {
		return "", ErrInvalidToken
	}
	return c.token.GetString(key)
}

// IsExpired reports whether the token has expired.
func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// IsAccess reports whether this is an access token.
func (c *Claims) IsAccess() bool {
	return c.Type == "access"
}
