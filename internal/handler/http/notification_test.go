package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avd-uisa/notify-go/internal/domain/notification"
	"github.com/avd-uisa/notify-go/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotifService is a scriptable notification.Service for handler tests.
type fakeNotifService struct {
	listResp    *notification.ListResponse
	unreadCount int
	markReadErr error
	confirmed   []string
	queued      []notification.IngestRequest
	events      chan notification.PushEvent
}

func (f *fakeNotifService) Queue(_ context.Context, req notification.IngestRequest) error {
	f.queued = append(f.queued, req)
	return nil
}

func (f *fakeNotifService) QueueBulk(ctx context.Context, reqs []notification.IngestRequest) error {
	for _, req := range reqs {
		if err := f.Queue(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeNotifService) List(context.Context, notification.ListRequest) (*notification.ListResponse, error) {
	if f.listResp != nil {
		return f.listResp, nil
	}
	return &notification.ListResponse{Notifications: []notification.Record{}}, nil
}

func (f *fakeNotifService) GetUnreadCount(context.Context, string) (int, error) {
	return f.unreadCount, nil
}

func (f *fakeNotifService) MarkRead(context.Context, string, string) error {
	return f.markReadErr
}

func (f *fakeNotifService) MarkAllRead(context.Context, string) (*notification.MarkAllReadResponse, error) {
	return &notification.MarkAllReadResponse{ConfirmedIDs: f.confirmed}, nil
}

func (f *fakeNotifService) Delete(context.Context, string, string) error {
	return nil
}

func (f *fakeNotifService) Subscribe(context.Context, string) (<-chan notification.PushEvent, func()) {
	if f.events == nil {
		f.events = make(chan notification.PushEvent, 16)
	}
	return f.events, func() {}
}

func (f *fakeNotifService) Stop() {}

func setupTestServer(t *testing.T, svc notification.Service) (*httptest.Server, jwt.Service) {
	t.Helper()
	jwtService := jwt.NewJWTService("test-secret", 15*time.Minute, time.Minute)
	handler := NewNotificationHandler(svc, jwtService)
	router := NewRouter(jwtService, handler, RouterConfig{Env: "test", FrontendURL: "http://localhost:3000"})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, jwtService
}

func authedRequest(t *testing.T, jwtService jwt.Service, method, url string, body string) *http.Request {
	t.Helper()
	token, _, err := jwtService.GenerateAccessToken("user-1")
	require.NoError(t, err)

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var env map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestHandler_List(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := &fakeNotifService{
		listResp: &notification.ListResponse{
			Notifications: []notification.Record{
				{ID: "n-1", Category: notification.CategoryWarning, Title: "Deadline passed", CreatedAt: now},
			},
			NextCursor:  "abc",
			UnreadCount: 1,
		},
	}
	srv, jwtService := setupTestServer(t, svc)

	req := authedRequest(t, jwtService, http.MethodGet, srv.URL+"/api/v1/notifications/", "")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, true, env["success"])
	data := env["data"].(map[string]interface{})
	assert.Equal(t, "abc", data["next_cursor"])
	assert.Equal(t, float64(1), data["unread_count"])
}

func TestHandler_List_RequiresToken(t *testing.T) {
	srv, _ := setupTestServer(t, &fakeNotifService{})

	resp, err := http.Get(srv.URL + "/api/v1/notifications/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_List_RejectsStreamToken(t *testing.T) {
	srv, jwtService := setupTestServer(t, &fakeNotifService{})

	token, _, err := jwtService.GenerateStreamToken("user-1")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/notifications/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_MarkRead_InvalidID(t *testing.T) {
	srv, jwtService := setupTestServer(t, &fakeNotifService{})

	req := authedRequest(t, jwtService, http.MethodPost, srv.URL+"/api/v1/notifications/not-a-uuid/read", "")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_MarkRead_NotFound(t *testing.T) {
	svc := &fakeNotifService{markReadErr: notification.ErrNotificationNotFound}
	srv, jwtService := setupTestServer(t, svc)

	id := "0d9f3c1e-6a2b-4f9e-8a6e-1c2d3e4f5a6b"
	req := authedRequest(t, jwtService, http.MethodPost, srv.URL+"/api/v1/notifications/"+id+"/read", "")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_MarkAllRead(t *testing.T) {
	svc := &fakeNotifService{confirmed: []string{"n-1", "n-2"}}
	srv, jwtService := setupTestServer(t, svc)

	req := authedRequest(t, jwtService, http.MethodPost, srv.URL+"/api/v1/notifications/read-all", "")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	data := env["data"].(map[string]interface{})
	assert.Len(t, data["confirmed_ids"], 2)
}

func TestHandler_Ingest(t *testing.T) {
	svc := &fakeNotifService{}
	srv, jwtService := setupTestServer(t, svc)

	body := `{"recipient_id":"user-2","category":"approval_pending","title":"Review awaiting approval","link":"/reviews/42"}`
	req := authedRequest(t, jwtService, http.MethodPost, srv.URL+"/api/v1/notifications/", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, svc.queued, 1)
	assert.Equal(t, "user-2", svc.queued[0].RecipientID)
}

func TestHandler_Ingest_ValidationFailure(t *testing.T) {
	srv, jwtService := setupTestServer(t, &fakeNotifService{})

	body := `{"category":"bogus"}`
	req := authedRequest(t, jwtService, http.MethodPost, srv.URL+"/api/v1/notifications/", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	errDetail := env["error"].(map[string]interface{})
	details := errDetail["details"].(map[string]interface{})
	assert.Contains(t, details, "recipient_id")
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "category")
}

func TestHandler_StreamTokenHandshake(t *testing.T) {
	srv, jwtService := setupTestServer(t, &fakeNotifService{})

	req := authedRequest(t, jwtService, http.MethodGet, srv.URL+"/api/v1/notifications/sse-token", "")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	data := env["data"].(map[string]interface{})
	streamToken := data["token"].(string)

	userID, err := jwtService.ValidateStreamToken(streamToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestHandler_Stream(t *testing.T) {
	svc := &fakeNotifService{events: make(chan notification.PushEvent, 16)}
	srv, jwtService := setupTestServer(t, svc)

	token, _, err := jwtService.GenerateStreamToken("user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/notifications/stream?token="+token, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected", strings.TrimSpace(line))

	svc.events <- notification.PushEvent{
		Event: notification.EventNotificationArrived,
		Data:  notification.Record{ID: "n-1", Category: notification.CategorySuccess, Title: "t", CreatedAt: time.Now()},
	}

	var sawArrival bool
	for !sawArrival {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "event: notification-arrived" {
			sawArrival = true
		}
	}
}

func TestHandler_Stream_RejectsBadToken(t *testing.T) {
	srv, _ := setupTestServer(t, &fakeNotifService{})

	resp, err := http.Get(srv.URL + "/api/v1/notifications/stream?token=garbage")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/notifications/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
