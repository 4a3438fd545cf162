package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/middleware"
	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

func principalFromContext(c *gin.Context) *models.Principal {
	return middleware.PrincipalFrom(c)
}

func int64Param(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "report not found")
	}
	return id, nil
}

// fieldErrors returns the per-field messages of a validation failure, or nil for any other error.
func fieldErrors(err error) map[string]string {
	appErr := appErrors.FromError(err)
	if appErr.Code != appErrors.ErrValidation.Code || len(appErr.Fields) == 0 {
		return nil
	}
	return appErr.Fields
}

// bindError maps a request decoding failure, reporting bodies cut off by BodyLimit as 413.
func bindError(err error, message string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}
