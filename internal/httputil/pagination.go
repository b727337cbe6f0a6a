package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/credvault/internal/errors"
)

// Page size bounds for list endpoints.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// ParsePagination reads the offset and limit query parameters. A missing offset is 0 and a
// missing limit is DefaultPageLimit. Errors wrap ErrInvalidInput.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, ok := queryInt(c, "offset", 0)
	if !ok || offset < 0 {
		return 0, 0, apperrors.Wrap(apperrors.ErrInvalidInput, "offset must be a non-negative integer")
	}

	limit, ok = queryInt(c, "limit", DefaultPageLimit)
	if !ok || limit < 1 || limit > MaxPageLimit {
		return 0, 0, apperrors.Wrapf(apperrors.ErrInvalidInput, "limit must be between 1 and %d", MaxPageLimit)
	}

	return offset, limit, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw, present := c.GetQuery(key)
	if !present || raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
