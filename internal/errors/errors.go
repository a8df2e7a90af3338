// Package errors writes the API's JSON error bodies and maps failures from
// the resolver, buildability and service layers onto HTTP statuses.
package errors

import (
	stderrors "errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jhcramos/urbix-api/internal/buildability"
	"github.com/jhcramos/urbix-api/internal/middleware"
	"github.com/jhcramos/urbix-api/internal/resolver"
	"github.com/jhcramos/urbix-api/internal/services"
)

// Error code constants for standardized error responses
const (
	ErrNotFound       = "NOT_FOUND"
	ErrBadRequest     = "BAD_REQUEST"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
	ErrUnprocessable  = "UNPROCESSABLE_ENTITY"
)

// ErrorResponse is the top-level error response structure.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error information.
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// known maps sentinel errors onto responses. The first match wins and the
// error text becomes the client message.
var known = []struct {
	target error
	status int
	code   string
}{
	{resolver.ErrAmbiguousInput, http.StatusBadRequest, ErrBadRequest},
	{services.ErrInvalidCoordinates, http.StatusBadRequest, ErrBadRequest},
	{services.ErrQueryTooShort, http.StatusBadRequest, ErrBadRequest},
	{services.ErrInvalidLimit, http.StatusBadRequest, ErrBadRequest},
	{resolver.ErrNotFound, http.StatusNotFound, ErrNotFound},
	{resolver.ErrMissingLocation, http.StatusUnprocessableEntity, ErrUnprocessable},
	{buildability.ErrMissingArea, http.StatusUnprocessableEntity, ErrUnprocessable},
	{buildability.ErrUnknownZone, http.StatusUnprocessableEntity, ErrUnprocessable},
}

// Classify returns the HTTP status and error code for err. Anything not
// recognised is a 500.
func Classify(err error) (int, string) {
	for _, k := range known {
		if stderrors.Is(err, k.target) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, ErrInternalServer
}

// FromError writes the response for err. Recognised failures are reported
// with their own text; anything else is logged and answered with fallback
// so internal detail never reaches the client.
func FromError(c *gin.Context, err error, fallback string) {
	status, code := Classify(err)
	if status == http.StatusInternalServerError {
		InternalServerError(c, fallback, err)
		return
	}
	respond(c, status, ErrorDetail{Code: code, Message: err.Error()}, nil)
}

// NotFound returns a 404 Not Found error response.
func NotFound(c *gin.Context, message string) {
	respond(c, http.StatusNotFound, ErrorDetail{Code: ErrNotFound, Message: message}, nil)
}

// BadRequest returns a 400 Bad Request error response with optional details.
func BadRequest(c *gin.Context, message string, details map[string]interface{}) {
	respond(c, http.StatusBadRequest, ErrorDetail{Code: ErrBadRequest, Message: message, Details: details}, nil)
}

// UnprocessableEntity returns a 422 response for input that was understood
// but cannot be acted on, such as a parcel with no derivable location.
func UnprocessableEntity(c *gin.Context, message string) {
	respond(c, http.StatusUnprocessableEntity, ErrorDetail{Code: ErrUnprocessable, Message: message}, nil)
}

// InternalServerError returns a 500 with message. err is logged and
// attached to the request, never sent.
func InternalServerError(c *gin.Context, message string, err error) {
	respond(c, http.StatusInternalServerError, ErrorDetail{Code: ErrInternalServer, Message: message}, err)
}

// ValidationError returns a 400 listing each rejected query parameter.
func ValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	details := make(map[string]interface{}, len(validationErrors))
	for _, fe := range validationErrors {
		details[strings.ToLower(fe.Field())] = formatValidationError(fe)
	}
	respond(c, http.StatusBadRequest, ErrorDetail{
		Code:    ErrValidation,
		Message: "One or more query parameters are invalid",
		Details: details,
	}, nil)
}

func respond(c *gin.Context, status int, detail ErrorDetail, err error) {
	detail.RequestID = middleware.GetRequestID(c)

	if err != nil {
		_ = c.Error(err)
	}
	if log := middleware.GetLogger(c); log != nil {
		fields := map[string]interface{}{
			"code":    detail.Code,
			"message": detail.Message,
			"path":    c.Request.URL.Path,
		}
		if detail.Details != nil {
			fields["details"] = detail.Details
		}
		if status >= http.StatusInternalServerError {
			log.Error("Request error", err, fields)
		} else {
			log.Warn("Request error", fields)
		}
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Error: detail})
}

// formatValidationError phrases one binding failure. Bounds on strings are
// lengths, bounds on numbers are values.
func formatValidationError(fe validator.FieldError) string {
	text := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if text {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if text {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed the " + fe.Tag() + " check"
	}
}
