// Package http defines how domain modules plug their routes into the shared
// gin engine.
package http

import (
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that registers its own HTTP routes; the router
// stays ignorant of individual endpoints.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	// RegisterRoutes mounts the module's routes on the shared groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext bundles the route groups and shared middleware handed to
// each module during registration.
type RouterContext struct {
	// Engine is the root gin engine, for modules needing engine-level access.
	Engine *gin.Engine
	// V1 is the public /api/v1 group.
	V1 *gin.RouterGroup
	// Protected requires a valid access token.
	Protected *gin.RouterGroup
	// Admin additionally requires the admin role, under /api/v1/admin.
	Admin *gin.RouterGroup
	// Config exposes JWT settings for modules mounting their own auth middleware.
	Config config.JWTConfig
	// AuthRateLimiter is the stricter limiter for sign-in.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
