// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"delivery_price_calculator/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Identity represents the authenticated user's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access user information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's ID.
	UserID() int64
	// Roles returns the user's assigned roles.
	Roles() []string
	// HasRole checks if the user has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        int64
	roles         []string
	authenticated bool
}

func (i *identity) UserID() int64 {
	return i.userID
}

func (i *identity) Roles() []string {
	return i.roles
}

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	roles, rolesOK := c.Get(ContextRolesKey)

	if !userOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(int64)
	if !ok {
		return &identity{authenticated: false}
	}

	var roleList []string
	if rolesOK {
		roleList, _ = roles.([]string)
	}

	return &identity{
		userID:        uid,
		roles:         roleList,
		authenticated: true,
	}
}

// ResolveOwner picks the acting user for a request that names a userId in its
// body. Without authentication the body value is trusted. With it, the token
// subject wins, a zero body value defaults to it and any other value aborts
// with 403.
func ResolveOwner(c *gin.Context, bodyUserID int64) (int64, bool) {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		return bodyUserID, true
	}
	if bodyUserID != 0 && bodyUserID != id.UserID() {
		Abort(c, apperr.Forbidden("userId does not match the authenticated user"))
		return 0, false
	}
	return id.UserID(), true
}
