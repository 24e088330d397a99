package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminRole is the role that unlocks admin routes and cross-owner reads.
const AdminRole = "admin"

// Identity is the authenticated caller as seen by handlers. It hides the
// web framework so services and handlers only deal with user id and roles.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	// IsAdmin reports whether the caller carries the admin role.
	IsAdmin() bool
	IsAuthenticated() bool
}

type principal struct {
	userID uuid.UUID
	roles  []string
}

var anonymous = &principal{}

func (p *principal) UserID() uuid.UUID { return p.userID }
func (p *principal) Roles() []string   { return p.roles }

func (p *principal) HasRole(role string) bool {
	for _, r := range p.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *principal) IsAdmin() bool { return p.HasRole(AdminRole) }

func (p *principal) IsAuthenticated() bool { return p.userID != uuid.Nil }

// GetIdentity reads the caller identity the auth middleware stored on the
// gin context. Missing or malformed values yield an anonymous identity.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return anonymous
	}
	userID, ok := raw.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return anonymous
	}

	var roles []string
	if raw, ok := c.Get(ContextRolesKey); ok {
		roles, _ = raw.([]string)
	}

	return &principal{userID: userID, roles: roles}
}

// MustGetIdentity is GetIdentity for routes behind AuthRequired: an
// unauthenticated caller aborts the request with 401 and nil is returned.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
