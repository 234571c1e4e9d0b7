package v1

import (
	"github.com/gin-gonic/gin"

	"seqstore/internal/domain/auth"
	"seqstore/internal/infrastructure/http/v1/middleware"
)

// SequenceRouteHandler defines the methods served under /sequences.
type SequenceRouteHandler interface {
	Next(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
}

// RegisterSequenceRoutes registers sequence routes.
// With scoped set, each route requires the matching token scope.
func RegisterSequenceRoutes(group *gin.RouterGroup, handler SequenceRouteHandler, scoped bool) {
	group.POST("/next", scope(scoped, auth.ScopeSequencesNext), handler.Next)
	group.GET("", scope(scoped, auth.ScopeSequencesRead), handler.List)
	group.GET("/:name", scope(scoped, auth.ScopeSequencesRead), handler.Get)
}

func scope(enabled bool, name string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RequireScope(name)
}
