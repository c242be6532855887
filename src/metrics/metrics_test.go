package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareObservesMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Init()
	Init()

	router := gin.New()
	router.Use(Middleware())
	router.GET("/images/:key", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.CollectAndCount(RequestDuration)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/a.jpg", nil))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/images/b.jpg", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	// both requests share the same label set
	assert.Equal(t, before+1, testutil.CollectAndCount(RequestDuration))
}

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	ImagesUploaded.Inc()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "imageserv_images_uploaded_total")
}
