package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whatif-grades-api/internal/middleware"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

// currentUser returns the authenticated user id or an unauthorized error.
func currentUser(c *gin.Context) (string, error) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		return "", appErrors.ErrUnauthorized
	}
	return userID, nil
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, "invalid "+name+" flag")
	}
	return v, nil
}

// durationQuery accepts Go durations ("1m30s") or plain seconds.
func durationQuery(c *gin.Context, name string) (time.Duration, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	if seconds, err := strconv.ParseFloat(raw, 64); err == nil && seconds >= 0 {
		return time.Duration(seconds * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return d, nil
}
