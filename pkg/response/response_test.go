package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestJSONWithMeta(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, gin.H{"percent": "80%"}, map[string]interface{}{"loading": true})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "80%", body["data"]["percent"])
	assert.Equal(t, true, body["meta"]["loading"])
}

func TestErrorNormalisesUnknownErrors(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, appErrors.ErrInternal.Code, env.Error.Code)

	c, w = newContext()
	Error(c, appErrors.Clone(appErrors.ErrTimeout, "still loading"))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "still loading")
}

func TestAttachment(t *testing.T) {
	c, w := newContext()
	Attachment(c, "algebra_actual.csv", "text/csv", []byte("level,Name\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="algebra_actual.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "level,Name\n", w.Body.String())
}
