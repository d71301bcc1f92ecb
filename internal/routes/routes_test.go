package routes

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parishfund/server/internal/calltimer"
	"parishfund/server/internal/handlers"
	"parishfund/server/internal/logger"
	"parishfund/server/internal/messaging"
	"parishfund/server/internal/models"
	"parishfund/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("routes-secret")

type memRepo struct {
	messages []models.Message
}

func (m *memRepo) ListRecipients(context.Context, int64, []string) ([]models.Recipient, error) {
	return nil, nil
}

func (m *memRepo) ListConversations(context.Context, int64) ([]models.Conversation, error) {
	return nil, nil
}

func (m *memRepo) MarkPairRead(context.Context, int64, models.PairKey) (int64, error) {
	return 0, nil
}

func (m *memRepo) LatestMessages(_ context.Context, pair models.PairKey, _ int) ([]models.Message, error) {
	var out []models.Message
	for _, msg := range m.messages {
		if msg.PairKey() == pair {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memRepo) MessagesAfter(context.Context, models.PairKey, int64) ([]models.Message, error) {
	return nil, nil
}

func (m *memRepo) InsertMessage(_ context.Context, msg *models.Message) (bool, error) {
	msg.ID = int64(len(m.messages) + 1)
	msg.CreatedAt = time.Now()
	m.messages = append(m.messages, *msg)
	return true, nil
}

func (m *memRepo) UnreadCount(context.Context, int64) (int, error) { return 0, nil }

func (m *memRepo) IsBlocked(context.Context, int64, int64) (bool, error) { return false, nil }

func (m *memRepo) Block(context.Context, int64, int64) error { return nil }

func (m *memRepo) Unblock(context.Context, int64, int64) error { return nil }

func newApp() *fiber.App {
	svc := messaging.NewService(&memRepo{}, logger.Discard(), messaging.Options{EligibleRoles: []string{"admin"}})
	app := fiber.New()
	SetupRoutes(app, secret, Handlers{
		Messages: handlers.NewMessageHandler(svc),
		Timer:    handlers.NewTimerHandler(calltimer.NewMemoryStorage(), logger.Discard(), time.Second),
	})
	return app
}

func bearer(t *testing.T, userID int64) string {
	t.Helper()
	token, err := utils.GenerateToken(secret, userID, "admin", time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthIsPublic(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newApp()
	for _, target := range []string{
		"/api/v1/messages/recipients",
		"/api/v1/messages/conversations",
		"/api/v1/messages/unread-count",
		"/api/v1/messages/2",
		"/api/v1/call-sessions/call-1/timer",
	} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, target)
	}
}

func TestSendThenReadAsRecipient(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("POST", "/api/v1/messages", strings.NewReader(`{"recipientId":2,"body":"pledge call at 5"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, 1))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/messages/1", nil)
	req.Header.Set("Authorization", bearer(t, 2))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var env struct {
		Data []models.Message `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "pledge call at 5", env.Data[0].Body)
	assert.Equal(t, int64(1), env.Data[0].SenderID)
}
