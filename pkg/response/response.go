package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}            `json:"data,omitempty"`
	Error *appErrors.Error       `json:"error,omitempty"`
	Meta  map[string]interface{} `json:"meta,omitempty"`
}

// FormEnvelope redisplays a form: its current values and per-field errors.
type FormEnvelope struct {
	Form   string            `json:"form"`
	Values interface{}       `json:"values,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response with optional metadata.
func JSON(c *gin.Context, status int, data interface{}, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Form renders a form document with HTTP 200, including when it carries validation errors.
func Form(c *gin.Context, form string, values interface{}, fieldErrors map[string]string) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Data: FormEnvelope{Form: form, Values: values, Errors: fieldErrors}})
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.AbortWithStatusJSON(appErr.Status, Envelope{Error: appErr})
}

// Redirect issues a 302 to location.
func Redirect(c *gin.Context, location string) {
	noStore(c)
	c.Redirect(http.StatusFound, location)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
