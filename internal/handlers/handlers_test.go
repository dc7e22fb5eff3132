// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partforge/catalog-backend/internal/services"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	catalogHandler := NewCatalogHandler(services.NewCatalogService(nil, nil))
	buildHandler := NewBuildHandler(services.NewCompatService(nil))
	ingestHandler := NewIngestHandler(nil)
	repairHandler := NewRepairHandler(nil, nil, nil)

	v1 := r.Group("/v1")
	v1.GET("/catalog/:category", catalogHandler.ListComponents)
	v1.GET("/catalog/:category/:id", catalogHandler.GetComponent)
	v1.POST("/builds/evaluate", buildHandler.Evaluate)
	v1.POST("/ingest", ingestHandler.Ingest)
	v1.GET("/repair/misfiled/:category", repairHandler.GetMisfiled)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListComponentsRejectsUnknownCategory(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "GET", "/v1/catalog/toaster", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.False(t, response["success"].(bool))
}

func TestGetComponentRejectsBadID(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "GET", "/v1/catalog/cpu/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateRejectsUnknownCategory(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "POST", "/v1/builds/evaluate", map[string]interface{}{
		"build": map[string]string{
			"toaster": "11111111-1111-1111-1111-111111111111",
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateRejectsBadComponentID(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "POST", "/v1/builds/evaluate", map[string]interface{}{
		"build": map[string]string{
			"cpu": "nope",
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateRejectsMissingBuild(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "POST", "/v1/builds/evaluate", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMisfiledRejectsUnknownCategory(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "GET", "/v1/repair/misfiled/toaster", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	r := newTestRouter()

	w := doJSON(t, r, "POST", "/v1/ingest", map[string]interface{}{
		"tuples": []interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
