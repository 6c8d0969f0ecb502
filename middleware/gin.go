package middleware

import (
	goSession "github.com/MrEthical07/goSession"
	"github.com/gin-gonic/gin"
)

// GinOutcomeKey is the gin context key the outcome is stored under.
const GinOutcomeKey = "gosession.outcome"

// Gin runs the session interceptor inside a gin chain. The outcome is stored
// both on c.Request's context, for net/http code further down, and under
// GinOutcomeKey. The chain always continues; Gin never aborts or writes.
func Gin[In, U any](engine *goSession.Engine[In, U]) gin.HandlerFunc {
	return func(c *gin.Context) {
		if outcome, ok := goSession.OutcomeFromContext[U](c.Request.Context()); ok {
			c.Set(GinOutcomeKey, outcome)
			c.Next()
			return
		}

		outcome := engine.Resolve(c.Request)
		c.Request = c.Request.WithContext(goSession.WithOutcome(c.Request.Context(), outcome))
		c.Set(GinOutcomeKey, outcome)
		c.Next()
	}
}

// GinOutcome returns the outcome attached by Gin, falling back to the request
// context when the engine ran as net/http middleware in front of gin.
func GinOutcome[U any](c *gin.Context) (goSession.Outcome[U], bool) {
	if v, ok := c.Get(GinOutcomeKey); ok {
		if outcome, ok := v.(goSession.Outcome[U]); ok {
			return outcome, true
		}
	}
	if c.Request == nil {
		return goSession.Outcome[U]{}, false
	}
	return goSession.OutcomeFromContext[U](c.Request.Context())
}
