package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL+"/", "ewm-main-service", time.Second)
	c.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_ViewCounts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "true", q.Get("unique"))
		assert.Equal(t, "2026-05-01 12:00:00", q.Get("end"))
		assert.ElementsMatch(t, []string{"/events/e1", "/events/e2"}, q["uris"])

		_ = json.NewEncoder(w).Encode([]ViewStats{
			{App: "ewm-main-service", URI: "/events/e1", Hits: 7},
			{App: "ewm-main-service", URI: "/events", Hits: 100},
		})
	})

	counts, err := c.ViewCounts(context.Background(), []string{"e1", "e2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"e1": 7, "e2": 0}, counts)
}

func TestClient_ViewCounts_Empty(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	counts, err := c.ViewCounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestClient_ViewCounts_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.ViewCounts(context.Background(), []string{"e1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_Hit(t *testing.T) {
	var got EndpointHit
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/hit", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.Hit(context.Background(), "/events/e1", "10.0.0.1"))
	assert.Equal(t, EndpointHit{
		App:       "ewm-main-service",
		URI:       "/events/e1",
		IP:        "10.0.0.1",
		Timestamp: "2026-05-01 12:00:00",
	}, got)
}
