package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/config"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	"github.com/Gopher0727/FeedbackBot/internal/service"
	"github.com/Gopher0727/FeedbackBot/internal/storage"
	"github.com/Gopher0727/FeedbackBot/middleware/jwt"
)

const testAdmin int64 = 1001

type testServer struct {
	engine *gin.Engine
	rec    *notifier.Recorder
}

type serverOptions struct {
	mentions service.MentionService
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	store := repository.NewStore(db)

	settings := config.BotConfig{Admins: []int64{testAdmin}, MaxLength: 100, RetentionDays: 90, NotifyAdmins: true}
	rec := notifier.NewRecorder()

	stats := service.NewStatsService(store)
	feedback := service.NewFeedbackService(store, stats, settings, rec)
	users := service.NewUserService(store)
	admins := service.NewAdminService(store, settings, rec)
	require.NoError(t, admins.SeedAdmins(t.Context()))
	tasks := service.NewTaskService(store, rec)
	teams := service.NewTeamService(store, rec)
	quotes := service.NewQuoteService(store)
	digest := service.NewDigestService(store, tasks, teams, quotes, rec)
	auth := service.NewAuthService("secret-key", jwt.NewTokenManager("jwt-secret", "feedback-bot", 1, 24))

	mentions := opts.mentions
	if mentions == nil {
		mentions = service.NewRealMentionService(store)
	}
	fh := NewFeedbackHandler(feedback, stats)
	uh := NewUserHandler(users, admins)
	th := NewTaskHandler(tasks)
	mh := NewMentionHandler(mentions, service.NewBroadcaster(mentions))
	tmh := NewTeamHandler(teams, digest)
	qh := NewQuoteHandler(quotes)
	ah := NewAuthHandler(auth)

	r := gin.New()
	r.POST("/auth/token", ah.Token)
	r.POST("/auth/refresh", ah.Refresh)
	r.POST("/messages", fh.Submit)
	r.GET("/messages/new", fh.ListNew)
	r.POST("/messages/:id/replies", fh.Reply)
	r.GET("/stats", fh.Stats)
	r.GET("/users/:identity", uh.Get)
	r.GET("/users/:identity/messages", fh.ListForUser)
	r.PUT("/users/:identity/ban", uh.Ban)
	r.DELETE("/users/:identity/ban", uh.Unban)
	r.GET("/admins", uh.Admins)
	r.POST("/tasks", th.Create)
	r.GET("/tasks/:id", th.Get)
	r.PUT("/tasks/:id/status", th.SetStatus)
	r.POST("/chats/:chat/mentions", mh.Register)
	r.GET("/chats/:chat/mentions", mh.Members)
	r.POST("/chats/:chat/broadcasts", mh.Broadcast)
	r.POST("/teams", tmh.Create)
	r.GET("/teams/:id/members", tmh.Members)
	r.POST("/quotes", qh.Add)
	r.GET("/quotes/random", qh.Random)

	return &testServer{engine: r, rec: rec}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func submitBody(identity int64, text string) gin.H {
	return gin.H{"identity": identity, "username": "alice", "first_name": "Alice", "text": text}
}

func TestFeedbackHandler_SubmitAndReply(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodPost, "/messages", submitBody(42, "the app crashes"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode(t, w)
	assert.Equal(t, "new", msg["status"])
	assert.Equal(t, "general", msg["category"])
	assert.Len(t, s.rec.To(testAdmin), 1)

	w = s.do(t, http.MethodGet, "/messages/new", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["messages"], 1)

	w = s.do(t, http.MethodPost, "/messages/1/replies", gin.H{"admin": testAdmin, "text": "fixed"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/users/42/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["messages"].([]any)
	require.Len(t, list, 1)

	w = s.do(t, http.MethodGet, "/stats?days=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestFeedbackHandler_SubmitErrors(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "missing identity", body: gin.H{"text": "hello"}, want: http.StatusBadRequest},
		{name: "empty text", body: submitBody(1, "   "), want: http.StatusBadRequest},
		{name: "unknown category", body: gin.H{"identity": 1, "text": "hi", "category": "rant"}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/messages", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Contains(t, decode(t, w), "error")
		})
	}
}

func TestFeedbackHandler_ReplyErrors(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/messages", submitBody(42, "hello")).Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/messages/99/replies", gin.H{"admin": testAdmin, "text": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, "/messages/1/replies", gin.H{"admin": 7, "text": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/messages/abc/replies", gin.H{"admin": testAdmin, "text": "x"}).Code)
}

func TestFeedbackHandler_BannedSender(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/messages", submitBody(42, "first")).Code)

	w := s.do(t, http.MethodPut, "/users/42/ban", gin.H{"reason": "spam"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/messages", submitBody(42, "second"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "banned", decode(t, w)["code"])

	require.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/users/42/ban", nil).Code)
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/messages", submitBody(42, "third")).Code)
}

func TestUserHandler(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/users/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/users/x", nil).Code)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/messages", submitBody(42, "hello")).Code)
	w := s.do(t, http.MethodGet, "/users/42", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/admins", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["admins"], 1)
}

func TestTaskHandler(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodPost, "/tasks", gin.H{"title": "ship it", "created_by": 500, "assigned_to": 600, "priority": "high"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "high", decode(t, w)["priority"])

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/tasks", gin.H{"title": "x", "created_by": 500, "priority": "urgent"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/tasks/99", nil).Code)

	w = s.do(t, http.MethodPut, "/tasks/1/status", gin.H{"status": "in_progress", "actor": 600})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/tasks/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in_progress", decode(t, w)["status"])
}

func TestMentionHandler(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodPost, "/chats/-100/mentions", gin.H{"user": 5, "identity": 5, "username": "bob"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/chats/-100/broadcasts", gin.H{
		"caller": gin.H{"identity": 6, "username": "carol"},
		"text":   "standup now",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.EqualValues(t, 2, out["total"])
	assert.Contains(t, out["text"], "standup now")

	w = s.do(t, http.MethodGet, "/chats/-100/mentions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["members"], 2)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/chats/-100/broadcasts", gin.H{"text": "hi"}).Code)
}

func TestMentionHandler_Disabled(t *testing.T) {
	s := newTestServer(t, serverOptions{mentions: service.NullMentionService{}})

	w := s.do(t, http.MethodPost, "/chats/-100/mentions", gin.H{"user": 5, "identity": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "mentions_disabled", decode(t, w)["code"])
}

func TestTeamAndQuoteHandlers(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	w := s.do(t, http.MethodPost, "/teams", gin.H{"name": "core", "leader": 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/teams", gin.H{"name": "core"}).Code)

	w = s.do(t, http.MethodGet, "/teams/1/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["members"], 1)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/quotes/random", nil).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/quotes", gin.H{"text": "keep going", "category": "general"}).Code)
	w = s.do(t, http.MethodGet, "/quotes/random", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "keep going", decode(t, w)["text"])
}

func TestAuthHandler(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/token", gin.H{"client_id": "gw", "api_key": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/auth/token", gin.H{"client_id": "gw"}).Code)

	w := s.do(t, http.MethodPost, "/auth/token", gin.H{"client_id": "gw", "api_key": "secret-key"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rw := httptest.NewRecorder()
	s.engine.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/refresh", nil).Code)
}
