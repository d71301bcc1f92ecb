package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parishfund/server/internal/apperror"
	"parishfund/server/internal/calltimer"
	"parishfund/server/internal/logger"
	"parishfund/server/internal/messaging"
	"parishfund/server/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	err        error
	duplicate  bool
	lastSend   messaging.SendCommand
	lastMe     int64
	lastOther  int64
	lastAfter  int64
	blocked    []int64
	unblocked  []int64
	unread     int
	messages   []models.Message
	recipients []models.Recipient
}

func (f *fakeService) ListRecipients(_ context.Context, me int64) ([]models.Recipient, error) {
	f.lastMe = me
	return f.recipients, f.err
}

func (f *fakeService) ListConversations(_ context.Context, me int64) ([]models.Conversation, error) {
	f.lastMe = me
	return []models.Conversation{}, f.err
}

func (f *fakeService) ListMessages(_ context.Context, me, other, afterID int64) ([]models.Message, error) {
	f.lastMe, f.lastOther, f.lastAfter = me, other, afterID
	return f.messages, f.err
}

func (f *fakeService) SendMessage(_ context.Context, me int64, cmd messaging.SendCommand) (*models.SendResult, error) {
	f.lastMe, f.lastSend = me, cmd
	if f.err != nil {
		return nil, f.err
	}
	return &models.SendResult{ID: 9, CreatedAt: time.Unix(1700000000, 0).UTC(), Duplicate: f.duplicate}, nil
}

func (f *fakeService) UnreadCount(_ context.Context, me int64) (int, error) {
	f.lastMe = me
	return f.unread, f.err
}

func (f *fakeService) BlockUser(_ context.Context, me, other int64) error {
	f.lastMe = me
	f.blocked = append(f.blocked, other)
	return f.err
}

func (f *fakeService) UnblockUser(_ context.Context, me, other int64) error {
	f.lastMe = me
	f.unblocked = append(f.unblocked, other)
	return f.err
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	RefreshMs int64           `json:"refreshMs"`
}

// asUser stands in for the auth middleware
func asUser(id int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		return c.Next()
	}
}

func newMessageApp(svc MessageService) *fiber.App {
	h := NewMessageHandler(svc)
	app := fiber.New()
	app.Use(asUser(1))
	app.Get("/messages/recipients", h.GetRecipients)
	app.Get("/messages/conversations", h.GetConversations)
	app.Get("/messages/unread-count", h.GetUnreadCount)
	app.Get("/messages/:userId", h.GetMessages)
	app.Post("/messages", h.SendMessage)
	app.Post("/blocks/:userId", h.BlockUser)
	app.Delete("/blocks/:userId", h.UnblockUser)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestSendMessage_CreatedThenDuplicate(t *testing.T) {
	svc := &fakeService{}
	app := newMessageApp(svc)

	status, env := do(t, app, "POST", "/messages", `{"recipientId":2,"body":"hello","clientToken":"tok-1"}`)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.True(t, env.Success)
	assert.Equal(t, messaging.SendCommand{RecipientID: 2, Body: "hello", ClientToken: "tok-1"}, svc.lastSend)
	assert.Equal(t, int64(1), svc.lastMe)

	svc.duplicate = true
	status, env = do(t, app, "POST", "/messages", `{"recipientId":2,"body":"hello","clientToken":"tok-1"}`)
	assert.Equal(t, fiber.StatusOK, status)

	var result models.SendResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Duplicate)
	assert.Equal(t, int64(9), result.ID)
}

func TestSendMessage_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   apperror.Code
	}{
		{"validation", apperror.ErrEmptyBody, fiber.StatusBadRequest, apperror.CodeInvalidArgument},
		{"blocked", apperror.ErrConversationBlock, fiber.StatusForbidden, apperror.CodeBlocked},
		{"internal", apperror.Internal("failed to send message", errors.New("db down")), fiber.StatusInternalServerError, apperror.CodeInternal},
		{"untyped", errors.New("boom"), fiber.StatusInternalServerError, apperror.CodeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newMessageApp(&fakeService{err: tc.err})
			status, env := do(t, app, "POST", "/messages", `{"recipientId":2,"body":"x"}`)
			assert.Equal(t, tc.status, status)
			assert.False(t, env.Success)
			assert.Equal(t, string(tc.code), env.Code)
			assert.NotContains(t, env.Error, "db down")
		})
	}
}

func TestSendMessage_InvalidBody(t *testing.T) {
	status, env := do(t, newMessageApp(&fakeService{}), "POST", "/messages", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.False(t, env.Success)
}

func TestGetMessages_Cursor(t *testing.T) {
	svc := &fakeService{messages: []models.Message{{ID: 5, SenderID: 2, RecipientID: 1, Body: "hi"}}}
	app := newMessageApp(svc)

	status, env := do(t, app, "GET", "/messages/2?after_id=4", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(2), svc.lastOther)
	assert.Equal(t, int64(4), svc.lastAfter)

	var messages []models.Message
	require.NoError(t, json.Unmarshal(env.Data, &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Body)

	do(t, app, "GET", "/messages/2", "")
	assert.Equal(t, int64(0), svc.lastAfter)
}

func TestGetMessages_BadParams(t *testing.T) {
	app := newMessageApp(&fakeService{})

	status, _ := do(t, app, "GET", "/messages/abc", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, "GET", "/messages/2?after_id=x", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetUnreadCount(t *testing.T) {
	status, env := do(t, newMessageApp(&fakeService{unread: 3}), "GET", "/messages/unread-count", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"count":3}`, string(env.Data))
}

func TestGetRecipients(t *testing.T) {
	svc := &fakeService{recipients: []models.Recipient{{ID: 2, Name: "Bob", Role: "registrar"}}}
	status, env := do(t, newMessageApp(svc), "GET", "/messages/recipients", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `[{"id":2,"name":"Bob","role":"registrar"}]`, string(env.Data))
}

func TestBlockAndUnblock(t *testing.T) {
	svc := &fakeService{}
	app := newMessageApp(svc)

	status, _ := do(t, app, "POST", "/blocks/3", "")
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = do(t, app, "DELETE", "/blocks/3", "")
	assert.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, []int64{3}, svc.blocked)
	assert.Equal(t, []int64{3}, svc.unblocked)

	status, _ = do(t, app, "POST", "/blocks/0", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

type brokenStorage struct{}

func (brokenStorage) Load(context.Context, string) (calltimer.Snapshot, bool, error) {
	return calltimer.Snapshot{}, false, errors.New("disk gone")
}

func (brokenStorage) Save(context.Context, string, calltimer.Snapshot) error {
	return errors.New("disk gone")
}

func newTimerApp(store calltimer.Storage) *fiber.App {
	h := NewTimerHandler(store, logger.Discard(), 250*time.Millisecond)
	app := fiber.New()
	app.Get("/call-sessions/:sessionId/timer", h.GetSnapshot)
	app.Put("/call-sessions/:sessionId/timer", h.PutSnapshot)
	return app
}

func TestTimerSnapshot_RoundTrip(t *testing.T) {
	app := newTimerApp(calltimer.NewMemoryStorage())

	status, env := do(t, app, "GET", "/call-sessions/call-1/timer", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, string(apperror.CodeNotFound), env.Code)

	body := `{"status":"paused","startTime":null,"accumulatedTime":90000,"lastPauseTime":1700000090000}`
	status, _ = do(t, app, "PUT", "/call-sessions/call-1/timer", body)
	assert.Equal(t, fiber.StatusOK, status)

	status, env = do(t, app, "GET", "/call-sessions/call-1/timer", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, int64(250), env.RefreshMs)
	assert.JSONEq(t, body, string(env.Data))
}

func TestTimerSnapshot_RejectsInconsistentState(t *testing.T) {
	app := newTimerApp(calltimer.NewMemoryStorage())

	status, env := do(t, app, "PUT", "/call-sessions/call-1/timer", `{"status":"running","accumulatedTime":0}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, string(apperror.CodeInvalidArgument), env.Code)

	status, _ = do(t, app, "PUT", "/call-sessions/call-1/timer", `{"status":"spinning"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestTimerSnapshot_StorageFailure(t *testing.T) {
	app := newTimerApp(brokenStorage{})

	status, env := do(t, app, "GET", "/call-sessions/call-1/timer", "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.NotContains(t, env.Error, "disk gone")

	status, _ = do(t, app, "PUT", "/call-sessions/call-1/timer", `{"status":"stopped","accumulatedTime":0}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
}
