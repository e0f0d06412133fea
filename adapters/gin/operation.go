package authgin

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/authmodule/oplog"
)

// ArgsFunc picks the values recorded as an operation's parameters.
type ArgsFunc func(c *gin.Context) []any

// PathArgs records the route's path parameters in declaration order.
func PathArgs(c *gin.Context) []any {
	out := make([]any, 0, len(c.Params))
	for _, p := range c.Params {
		out = append(out, p.Value)
	}
	return out
}

// LogOperation records an operate log for every request handled by the rest
// of the chain. The handlers' outcome is never affected.
func LogOperation(advice *oplog.Advice, name string, args ArgsFunc) gin.HandlerFunc {
	if args == nil {
		args = PathArgs
	}
	return func(c *gin.Context) {
		if !advice.Enabled() {
			c.Next()
			return
		}
		op := advice.Operation(name)
		_, _ = advice.Wrap(c.Request.Context(), op, args(c), func(context.Context) (any, error) {
			c.Next()
			return nil, nil
		})
	}
}
