package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// dateLayout is accepted next to RFC 3339 for date query parameters
const dateLayout = "2006-01-02"

// pathUUID parses a UUID path parameter, answering 400 when malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter
func (h *BaseHandler) queryUUID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.BadRequest(c, "Invalid "+key)
		return nil, false
	}
	return &id, true
}

// queryDate parses an optional date or RFC 3339 timestamp query parameter
func (h *BaseHandler) queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	h.BadRequest(c, "Invalid "+key+", expected YYYY-MM-DD")
	return nil, false
}

// queryPage reads limit and offset. Absent values are zero and get the
// service defaults; negative or non-numeric values are rejected.
func (h *BaseHandler) queryPage(c *gin.Context) (limit, offset int, ok bool) {
	if limit, ok = h.queryInt(c, "limit"); !ok {
		return 0, 0, false
	}
	if offset, ok = h.queryInt(c, "offset"); !ok {
		return 0, 0, false
	}
	return limit, offset, true
}

func (h *BaseHandler) queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		h.BadRequest(c, "Invalid "+key)
		return 0, false
	}
	return n, true
}
