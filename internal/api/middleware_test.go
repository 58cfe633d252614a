package api_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zoravur/scorecast/internal/api"
	"github.com/zoravur/scorecast/pkg/metrics"
)

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(api.LoggingMiddleware)
	r.Get("/widget/{widgetID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	const rawID = "123e4567-e89b-12d3-a456-426614174000"
	resp, err := http.Get(srv.URL + "/widget/" + rawID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	mfs, err := metrics.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() != "scorecast_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() != "path" {
					continue
				}
				if lp.GetValue() == "/widget/{widgetID}" {
					found = true
				}
				if strings.Contains(lp.GetValue(), rawID) {
					t.Errorf("raw path minted a label value: %s", lp.GetValue())
				}
			}
		}
	}
	if !found {
		t.Errorf("no request counted under the route pattern label")
	}
}
