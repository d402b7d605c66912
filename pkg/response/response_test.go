package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, map[string]int{"rows": 3})

	assert.Equal(t, http.StatusOK, w.Code)
	r := decode(t, w)
	assert.Equal(t, 0, r.Code)
	assert.Equal(t, "success", r.Message)
	assert.Equal(t, map[string]interface{}{"rows": float64(3)}, r.Data)
}

func TestFromError(t *testing.T) {
	mappings := []Mapping{{Err: errMissing, Status: http.StatusNotFound}}

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"mapped", errMissing, http.StatusNotFound},
		{"wrapped", fmt.Errorf("snapshot 7: %w", errMissing), http.StatusNotFound},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			FromError(c, tt.err, mappings...)

			assert.Equal(t, tt.status, w.Code)
			r := decode(t, w)
			assert.Equal(t, tt.status, r.Code)
			assert.Equal(t, tt.err.Error(), r.Message)
			assert.Len(t, c.Errors, 1)
		})
	}
}
