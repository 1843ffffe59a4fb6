package rterrors

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamspace-dev/wampd/internal/logger"
)

// ErrorHandler converts a handler-reported RouteError (or any other
// error) into the standard JSON error response, logging 5xx at error
// level and 4xx at warn level.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		log := logger.HTTP()
		err := c.Errors.Last()

		if routeErr, ok := err.Err.(*RouteError); ok {
			event := log.Warn()
			if routeErr.StatusCode >= 500 {
				event = log.Error()
			}
			event.Str("code", routeErr.Code).Str("details", routeErr.Details).Msg(routeErr.Message)
			c.JSON(routeErr.StatusCode, routeErr.ToResponse())
			return
		}

		log.Error().Err(err.Err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   CodeInternalServer,
			Message: "an unexpected error occurred",
			Code:    CodeInternalServer,
		})
	}
}

// Recovery recovers from a panic in a downstream handler and responds
// with a generic internal error instead of crashing the listener.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.HTTP().Error().Interface("panic", r).Msg("recovered from panic")
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:   CodeInternalServer,
					Message: "an unexpected error occurred",
					Code:    CodeInternalServer,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HandleError reports err on c as a JSON response, wrapping a plain
// error as an internal server error.
func HandleError(c *gin.Context, err error) {
	if routeErr, ok := err.(*RouteError); ok {
		c.Error(routeErr)
		c.JSON(routeErr.StatusCode, routeErr.ToResponse())
		return
	}
	internalErr := InternalServer(err.Error())
	c.Error(internalErr)
	c.JSON(internalErr.StatusCode, internalErr.ToResponse())
}

// AbortWithError aborts the request and writes err's JSON response.
func AbortWithError(c *gin.Context, err *RouteError) {
	c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode, err.ToResponse())
}
