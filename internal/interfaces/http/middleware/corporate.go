package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sawi/backend/internal/infrastructure/logger"
	"github.com/sawi/backend/internal/interfaces/http/dto"
)

// Corporate context keys
const (
	CorporateIDKey    = "corporate_id"
	CorporateIDHeader = "X-Corporate-ID"
)

// CorporateContext reads the acting corporate from the X-Corporate-ID header.
// A malformed header is rejected; a missing one is left to the handlers that
// need it (see RequireCorporate).
func CorporateContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(CorporateIDHeader)
		if raw == "" {
			c.Next()
			return
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Invalid corporate ID format",
				GetRequestID(c),
			))
			return
		}

		c.Set(CorporateIDKey, id)
		c.Request = c.Request.WithContext(logger.WithCorporateID(c.Request.Context(), id.String()))
		c.Next()
	}
}

// RequireCorporate aborts requests that carry no acting corporate
func RequireCorporate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetCorporateID(c); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeMissingCorporate,
				"X-Corporate-ID header is required",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}

// GetCorporateID returns the acting corporate set by CorporateContext
func GetCorporateID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CorporateIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
