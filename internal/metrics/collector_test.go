package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/hongyue0721/image-fill-site/internal/imagegen"
)

func TestCollectorObservations(t *testing.T) {
	c := NewCollector(nil)

	c.ObserveAttempt("new-api", imagegen.OutcomeRejected, 2*time.Second)
	c.ObserveAttempt("grok2api", imagegen.OutcomeSuccess, time.Second)
	c.ObserveGeneration(imagegen.OutcomeSuccess)
	c.ObserveCommit("grok2api")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamAttempts.WithLabelValues("new-api", imagegen.OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamAttempts.WithLabelValues("grok2api", imagegen.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations.WithLabelValues(imagegen.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commits.WithLabelValues("grok2api")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.upstreamDuration))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector(nil)
	b := NewCollector(nil)
	a.ObserveGeneration(imagegen.OutcomeFailed)

	assert.Equal(t, 0.0, testutil.ToFloat64(b.generations.WithLabelValues(imagegen.OutcomeFailed)))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	c := NewCollector(nil)
	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/metrics", c.Handler().ServeHTTP)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues(http.MethodGet, "/api/items/{id}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "imagefill_http_requests_total"))
}
