package middlewares

import (
	"eduspace/src/types"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Operation names a protected capability. The policy table below maps
// each one to its allowed role set, so role checks live in one place
// instead of being duplicated inline per handler.
type Operation string

const (
	OpListingCreate Operation = "listing:create"
	OpListingManage Operation = "listing:manage"
	OpBookingCreate Operation = "booking:create"
	OpBookingCancel Operation = "booking:cancel"
	OpBookingDecide Operation = "booking:decide"
	OpAdminAccess   Operation = "admin:access"
	OpFavorites     Operation = "favorites:manage"
)

var policy = map[Operation][]types.Role{
	OpListingCreate: {types.ROLE_SCHOOL},
	OpListingManage: {types.ROLE_SCHOOL},
	OpBookingCreate: {types.ROLE_TEACHER},
	OpBookingCancel: {types.ROLE_TEACHER},
	OpBookingDecide: {types.ROLE_SCHOOL},
	OpAdminAccess:   {types.ROLE_ADMIN},
	OpFavorites:     {types.ROLE_TEACHER},
}

// RoleAllowed evaluates the policy table for the given operation.
func RoleAllowed(op Operation, role types.Role) bool {
	allowed, ok := policy[op]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RequireOperation gates a route group on the policy table. Must run
// after AuthMiddleware.
func RequireOperation(op Operation) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := types.Role(ctx.GetString("role"))
		if !RoleAllowed(op, role) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Forbidden"})
			return
		}
	}
}
