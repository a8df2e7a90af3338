package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jhcramos/urbix-api/internal/buildability"
	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/middleware"
	"github.com/jhcramos/urbix-api/internal/resolver"
	"github.com/jhcramos/urbix-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestContext creates a context carrying a logger that writes to buf
// and a fixed request ID.
func setupTestContext() (*gin.Context, *httptest.ResponseRecorder, *bytes.Buffer) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/site-report", nil)

	var buf bytes.Buffer
	c.Set(middleware.LoggerKey, logger.NewWithWriter(&buf, "debug"))
	c.Set(middleware.RequestIDKey, "test-request-id")
	return c, w, &buf
}

func parseErrorResponse(t *testing.T, body *bytes.Buffer) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(body.Bytes(), &response))
	return response
}

func lastLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ambiguous selector", resolver.ErrAmbiguousInput, http.StatusBadRequest, ErrBadRequest},
		{"coordinates out of range", fmt.Errorf("%w: latitude -95", services.ErrInvalidCoordinates), http.StatusBadRequest, ErrBadRequest},
		{"short search", services.ErrQueryTooShort, http.StatusBadRequest, ErrBadRequest},
		{"search limit", fmt.Errorf("%w: got 0", services.ErrInvalidLimit), http.StatusBadRequest, ErrBadRequest},
		{"wrapped not found", fmt.Errorf("lot 3 plan RP1: %w", resolver.ErrNotFound), http.StatusNotFound, ErrNotFound},
		{"no location", resolver.ErrMissingLocation, http.StatusUnprocessableEntity, ErrUnprocessable},
		{"no lot area", buildability.ErrMissingArea, http.StatusUnprocessableEntity, ErrUnprocessable},
		{"unknown zone", fmt.Errorf("%w: Rural Zone", buildability.ErrUnknownZone), http.StatusUnprocessableEntity, ErrUnprocessable},
		{"authority outage", errors.New("arcgis error 503"), http.StatusInternalServerError, ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Classify(tt.err)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFromError(t *testing.T) {
	t.Run("recognised failure reports its own text", func(t *testing.T) {
		// Arrange
		c, w, buf := setupTestContext()
		err := fmt.Errorf("%w: Emerging Community Zone", buildability.ErrUnknownZone)

		// Act
		FromError(c, err, "Failed to calculate buildability")

		// Assert
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, ErrUnprocessable, response.Error.Code)
		assert.Equal(t, "no planning rules for zone: Emerging Community Zone", response.Error.Message)
		assert.Equal(t, "test-request-id", response.Error.RequestID)
		assert.True(t, c.IsAborted())

		entry := lastLogEntry(t, buf)
		assert.Equal(t, "warn", entry["level"])
		assert.Equal(t, ErrUnprocessable, entry["code"])
	})

	t.Run("unknown failure hides its text", func(t *testing.T) {
		// Arrange
		c, w, buf := setupTestContext()
		err := errors.New("dial tcp 10.0.0.7:5432: connection refused")

		// Act
		FromError(c, err, "Failed to build site report")

		// Assert
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, ErrInternalServer, response.Error.Code)
		assert.Equal(t, "Failed to build site report", response.Error.Message)
		assert.NotContains(t, w.Body.String(), "10.0.0.7")

		entry := lastLogEntry(t, buf)
		assert.Equal(t, "error", entry["level"])
		assert.Equal(t, err.Error(), entry["error"])
		require.Len(t, c.Errors, 1)
		assert.Equal(t, err, c.Errors.Last().Err)
	})
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(c *gin.Context)
		status  int
		code    string
		message string
	}{
		{
			name:    "not found",
			write:   func(c *gin.Context) { NotFound(c, "No parcel found") },
			status:  http.StatusNotFound,
			code:    ErrNotFound,
			message: "No parcel found",
		},
		{
			name:    "bad request",
			write:   func(c *gin.Context) { BadRequest(c, "lat and lng must be provided together", nil) },
			status:  http.StatusBadRequest,
			code:    ErrBadRequest,
			message: "lat and lng must be provided together",
		},
		{
			name:    "unprocessable",
			write:   func(c *gin.Context) { UnprocessableEntity(c, "could not determine parcel location") },
			status:  http.StatusUnprocessableEntity,
			code:    ErrUnprocessable,
			message: "could not determine parcel location",
		},
		{
			name: "internal",
			write: func(c *gin.Context) {
				InternalServerError(c, "Failed to read index statistics", errors.New("pool closed"))
			},
			status:  http.StatusInternalServerError,
			code:    ErrInternalServer,
			message: "Failed to read index statistics",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w, _ := setupTestContext()

			tt.write(c)

			assert.Equal(t, tt.status, w.Code)
			response := parseErrorResponse(t, w.Body)
			assert.Equal(t, tt.code, response.Error.Code)
			assert.Equal(t, tt.message, response.Error.Message)
			assert.Equal(t, "test-request-id", response.Error.RequestID)
			assert.Nil(t, response.Error.Details)
		})
	}

	t.Run("bad request keeps details", func(t *testing.T) {
		c, w, _ := setupTestContext()

		BadRequest(c, "Invalid selector", map[string]interface{}{"plan": "RP12345"})

		response := parseErrorResponse(t, w.Body)
		assert.Equal(t, "RP12345", response.Error.Details["plan"])
	})
}

func TestValidationError(t *testing.T) {
	// Arrange
	type query struct {
		Q     string   `validate:"required,min=3"`
		Limit int      `validate:"omitempty,max=50"`
		Lat   *float64 `validate:"omitempty,min=-90"`
	}
	lat := -95.0
	err := validator.New().Struct(query{Q: "ab", Limit: 51, Lat: &lat})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)
	c, w, _ := setupTestContext()

	// Act
	ValidationError(c, validationErrors)

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, ErrValidation, response.Error.Code)
	assert.Equal(t, map[string]interface{}{
		"q":     "must be at least 3 characters",
		"limit": "must be at most 50",
		"lat":   "must be at least -90",
	}, response.Error.Details)
}

func TestFormatValidationError(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		param    string
		kind     reflect.Kind
		expected string
	}{
		{"required", "required", "", reflect.String, "is required"},
		{"min length", "min", "3", reflect.String, "must be at least 3 characters"},
		{"min value", "min", "1", reflect.Int, "must be at least 1"},
		{"max length", "max", "200", reflect.String, "must be at most 200 characters"},
		{"max value", "max", "180", reflect.Float64, "must be at most 180"},
		{"oneof", "oneof", "local remote", reflect.String, "must be one of: local remote"},
		{"other", "email", "", reflect.String, "failed the email check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &mockFieldError{tag: tt.tag, param: tt.param, kind: tt.kind}

			assert.Equal(t, tt.expected, formatValidationError(fe))
		})
	}
}

func TestErrorResponseWithoutContext(t *testing.T) {
	// Arrange
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/lookup", nil)

	// Act
	FromError(c, resolver.ErrNotFound, "Failed to look up parcel")

	// Assert
	assert.Equal(t, http.StatusNotFound, w.Code)
	response := parseErrorResponse(t, w.Body)
	assert.Equal(t, "parcel not found", response.Error.Message)
	assert.Empty(t, response.Error.RequestID)
}

// mockFieldError is a mock implementation of validator.FieldError for testing.
type mockFieldError struct {
	tag   string
	param string
	kind  reflect.Kind
}

func (m *mockFieldError) Tag() string                    { return m.tag }
func (m *mockFieldError) ActualTag() string              { return m.tag }
func (m *mockFieldError) Namespace() string              { return "" }
func (m *mockFieldError) StructNamespace() string        { return "" }
func (m *mockFieldError) Field() string                  { return "Field" }
func (m *mockFieldError) StructField() string            { return "Field" }
func (m *mockFieldError) Value() interface{}             { return nil }
func (m *mockFieldError) Param() string                  { return m.param }
func (m *mockFieldError) Kind() reflect.Kind             { return m.kind }
func (m *mockFieldError) Type() reflect.Type             { return nil }
func (m *mockFieldError) Translate(ut.Translator) string { return "" }
func (m *mockFieldError) Error() string                  { return "" }
