package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/queue"
	"github.com/campuscommunity/synckit/store"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{r.Method, r.URL.Path, string(b), r.Header.Get("Authorization")})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(zap.NewNop(), &Config{BaseURL: baseURL, Timeout: time.Second, RateLimit: 1000, Burst: 100}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"relative url", (&Config{BaseURL: "/api"}).MergeDefaults(), true},
		{"negative rate", (&Config{RateLimit: -1}).MergeDefaults(), true},
		{"zero timeout", &Config{BaseURL: "http://x", RateLimit: 1, Burst: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReplay_Routes(t *testing.T) {
	tests := []struct {
		name       string
		payload    queue.Payload
		wantMethod string
		wantPath   string
		wantBody   string
	}{
		{"create news", queue.CreateNewsPayload{Title: "Fest", Author: "Dean"}, http.MethodPost, "/news", `"title":"Fest"`},
		{"update club", queue.UpdateClubPayload{ClubID: "4", Title: "Meetup"}, http.MethodPost, "/clubs/4/updates", `"clubId":"4"`},
		{"subscribe", queue.SubscribeClubPayload{ClubRef: queue.ClubRef{ClubID: "5"}}, http.MethodPost, "/clubs/5/subscribe", ""},
		{"unsubscribe", queue.UnsubscribeClubPayload{ClubRef: queue.ClubRef{ClubID: "6"}}, http.MethodDelete, "/clubs/6/subscribe", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, reqs := newTestServer(t, http.StatusCreated, `{}`)
			c := newTestClient(t, srv.URL, WithTokenSource(func(context.Context) (string, error) { return "tok", nil }))

			ok, err := c.Replay(context.Background(), queue.PendingAction{Type: tt.payload.ActionType(), Payload: tt.payload})
			if !ok || err != nil {
				t.Fatalf("Replay() = %v, %v", ok, err)
			}
			got := reqs()[0]
			if got.Method != tt.wantMethod || got.Path != tt.wantPath {
				t.Errorf("request = %s %s, want %s %s", got.Method, got.Path, tt.wantMethod, tt.wantPath)
			}
			if !strings.Contains(got.Body, tt.wantBody) {
				t.Errorf("body %q missing %q", got.Body, tt.wantBody)
			}
			if got.Auth != "Bearer tok" {
				t.Errorf("authorization = %q", got.Auth)
			}
		})
	}
}

func TestReplay_QueuedPointerPayload(t *testing.T) {
	ctx := context.Background()
	srv, reqs := newTestServer(t, http.StatusCreated, `{}`)
	c := newTestClient(t, srv.URL)

	q, err := queue.New(zap.NewNop(), store.NewMemory(), nil)
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	q.Initialize(ctx)
	if _, err := q.AddAction(ctx, &queue.CreateNewsPayload{Title: "Fest"}); err != nil {
		t.Fatalf("AddAction: %v", err)
	}

	res := q.ProcessPendingActions(ctx, c.Replay)
	if res != (queue.Result{Succeeded: 1}) || q.GetQueueLength() != 0 {
		t.Fatalf("result = %+v, len = %d", res, q.GetQueueLength())
	}
	if got := reqs(); len(got) != 1 || got[0].Path != "/news" {
		t.Errorf("requests = %+v", got)
	}
}

func TestReplay_StatusClassification(t *testing.T) {
	tests := []struct {
		status  int
		wantOK  bool
		wantErr bool
	}{
		{http.StatusOK, true, false},
		{http.StatusNoContent, true, false},
		{http.StatusBadRequest, false, false},
		{http.StatusNotFound, false, false},
		{http.StatusRequestTimeout, false, true},
		{http.StatusTooManyRequests, false, true},
		{http.StatusServiceUnavailable, false, true},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, ``)
			c := newTestClient(t, srv.URL)
			ok, err := c.Replay(context.Background(), queue.PendingAction{
				Type:    queue.ActionCreateNews,
				Payload: queue.CreateNewsPayload{Title: "x"},
			})
			if ok != tt.wantOK || (err != nil) != tt.wantErr {
				t.Errorf("Replay() = %v, %v; want %v, err=%v", ok, err, tt.wantOK, tt.wantErr)
			}
		})
	}
}

func TestReplay_UnsupportedPayload(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	if _, err := c.Replay(context.Background(), queue.PendingAction{Type: "ARCHIVE"}); err == nil {
		t.Error("expected error for missing payload")
	}
}

func TestReplay_TransportError(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	ok, err := c.Replay(context.Background(), queue.PendingAction{
		Type:    queue.ActionCreateNews,
		Payload: queue.CreateNewsPayload{Title: "x"},
	})
	if ok || err == nil {
		t.Errorf("Replay() = %v, %v", ok, err)
	}
}

func TestTokenSourceError(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `[]`)
	tokenErr := errors.New("no session")
	c := newTestClient(t, srv.URL, WithTokenSource(func(context.Context) (string, error) { return "", tokenErr }))

	if _, err := c.FetchNews(context.Background()); !errors.Is(err, tokenErr) {
		t.Errorf("error = %v", err)
	}
	if len(reqs()) != 0 {
		t.Error("request sent without token")
	}
}

func TestFetchNews(t *testing.T) {
	news := []model.NewsItem{{ID: "n1", Title: "Fest", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}}
	b, _ := json.Marshal(news)
	srv, reqs := newTestServer(t, http.StatusOK, string(b))
	c := newTestClient(t, srv.URL)

	got, err := c.FetchNews(context.Background())
	if err != nil || len(got) != 1 || got[0].Title != "Fest" {
		t.Fatalf("FetchNews() = %+v, %v", got, err)
	}
	if reqs()[0].Path != "/news" || reqs()[0].Auth != "" {
		t.Errorf("request = %+v", reqs()[0])
	}
}

func TestFetchClubs_SubscribedOnly(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `[{"id":"1","isSubscribed":true},{"id":"2","isSubscribed":false}]`)
	c := newTestClient(t, srv.URL)

	got, err := c.FetchClubs(context.Background())
	if err != nil || len(got) != 1 || got[0].ID != "1" {
		t.Errorf("FetchClubs() = %+v, %v", got, err)
	}
}

func TestFetchClubUpdates(t *testing.T) {
	srv, reqs := newTestServer(t, http.StatusOK, `[{"id":"u1","title":"Auditions"}]`)
	c := newTestClient(t, srv.URL)

	got, err := c.FetchClubUpdates(context.Background(), "9")
	if err != nil || len(got) != 1 {
		t.Fatalf("FetchClubUpdates() = %+v, %v", got, err)
	}
	if reqs()[0].Path != "/clubs/9/updates" {
		t.Errorf("path = %s", reqs()[0].Path)
	}
}

func TestFetch_ErrorStatusMessage(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadGateway, ``)
	c := newTestClient(t, srv.URL)

	_, err := c.FetchNews(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestFetch_DecodeError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"not":"a list"}`)
	c := newTestClient(t, srv.URL)
	if _, err := c.FetchNews(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}
