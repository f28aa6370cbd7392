package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avd-uisa/notify-go/internal/engine/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/notifications/", r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"notifications": []map[string]interface{}{
					{"id": "n-1", "category": "warning", "title": "Deadline passed", "is_read": false, "created_at": "2026-03-10T09:00:00Z"},
				},
				"next_cursor":  "def",
				"unread_count": 4,
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "access-token", nil)
	resp, err := c.List(context.Background(), 25, "abc")
	require.NoError(t, err)

	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "n-1", resp.Notifications[0].ID)
	assert.Equal(t, "def", resp.NextCursor)
	assert.Equal(t, 4, resp.UnreadCount)
}

func TestClient_UnreadCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/unread-count", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]int{"unread_count": 7},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "access-token", nil)
	count, err := c.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestClient_MarkRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/notifications/n-1/read", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	}))
	defer srv.Close()

	c := New(srv.URL, "access-token", nil)
	require.NoError(t, c.MarkRead(context.Background(), "n-1"))
}

func TestClient_MarkAllRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/notifications/read-all", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string][]string{"confirmed_ids": {"n-1", "n-2"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "access-token", nil)
	confirmed, err := c.MarkAllRead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"n-1", "n-2"}, confirmed)
}

func TestClient_StreamToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications/sse-token", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"token": "short-lived"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "access-token", nil)
	token, err := c.StreamToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "short-lived", token)
}

func TestClient_UnauthorizedMapsToAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "stale-token", nil)
	_, err := c.List(context.Background(), 10, "")
	require.Error(t, err)

	var authErr *connection.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   map[string]string{"code": "NOT_FOUND", "message": "notification not found"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "access-token", nil)
	err := c.MarkRead(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification not found")
}

func TestClient_StreamURL(t *testing.T) {
	c := New("https://api.example.com", "tok", nil)
	assert.Equal(t, "https://api.example.com/api/v1/notifications/stream", c.StreamURL())
}
