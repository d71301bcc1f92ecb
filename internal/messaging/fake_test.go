package messaging

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"parishfund/server/internal/models"
)

// memRepo is an in-memory Repository used by the service tests
type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]models.User
	messages []models.Message
	blocks   map[[2]int64]bool
	tokens   map[string]int64

	failInsert error
	failMark   error
	failCount  error
}

func newMemRepo(users ...models.User) *memRepo {
	r := &memRepo{
		users:  map[int64]models.User{},
		blocks: map[[2]int64]bool{},
		tokens: map[string]int64{},
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memRepo) ListRecipients(_ context.Context, userID int64, roles []string) ([]models.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allowed := map[string]bool{}
	for _, role := range roles {
		allowed[role] = true
	}
	out := []models.Recipient{}
	for _, u := range r.users {
		if u.ID != userID && u.IsActive && allowed[u.Role] {
			out = append(out, u.ToRecipient())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) ListConversations(_ context.Context, userID int64) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byPair := map[models.PairKey]*models.Conversation{}
	for _, m := range r.messages {
		k := m.PairKey()
		if k.Low != userID && k.High != userID {
			continue
		}
		c, ok := byPair[k]
		if !ok {
			other := r.users[k.Other(userID)]
			c = &models.Conversation{OtherUser: models.Recipient{ID: k.Other(userID), Name: other.Name, Role: other.Role}}
			byPair[k] = c
		}
		if m.ID > c.LastMessage.ID {
			c.LastMessage = m
		}
		if m.RecipientID == userID && m.ReadAt == nil {
			c.UnreadCount++
		}
	}

	out := []models.Conversation{}
	for _, c := range byPair {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessage, out[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (r *memRepo) MarkPairRead(_ context.Context, userID int64, pair models.PairKey) (int64, error) {
	if r.failMark != nil {
		return 0, r.failMark
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var n int64
	for i := range r.messages {
		m := &r.messages[i]
		if m.PairKey() == pair && m.RecipientID == userID && m.ReadAt == nil {
			m.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (r *memRepo) pairMessages(pair models.PairKey) []models.Message {
	var out []models.Message
	for _, m := range r.messages {
		if m.PairKey() == pair {
			out = append(out, m)
		}
	}
	return out
}

func (r *memRepo) LatestMessages(_ context.Context, pair models.PairKey, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.pairMessages(pair)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return append([]models.Message{}, all...), nil
}

func (r *memRepo) MessagesAfter(_ context.Context, pair models.PairKey, afterID int64) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Message{}
	for _, m := range r.pairMessages(pair) {
		if m.ID > afterID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) InsertMessage(_ context.Context, msg *models.Message) (bool, error) {
	if r.failInsert != nil {
		return false, r.failInsert
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ClientToken != nil {
		if id, ok := r.tokens[*msg.ClientToken]; ok {
			*msg = r.messages[id-1]
			return false, nil
		}
	}
	r.nextID++
	msg.ID = r.nextID
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	if msg.ClientToken != nil {
		r.tokens[*msg.ClientToken] = msg.ID
	}
	return true, nil
}

func (r *memRepo) UnreadCount(_ context.Context, userID int64) (int, error) {
	if r.failCount != nil {
		return 0, r.failCount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, m := range r.messages {
		if m.RecipientID == userID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) IsBlocked(_ context.Context, a, b int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocks[[2]int64{a, b}] || r.blocks[[2]int64{b, a}], nil
}

func (r *memRepo) Block(_ context.Context, userID, blockedUserID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[[2]int64{userID, blockedUserID}] = true
	return nil
}

func (r *memRepo) Unblock(_ context.Context, userID, blockedUserID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, [2]int64{userID, blockedUserID})
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *memRepo) message(id int64) models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messages[id-1]
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []models.Message
	unread []int
}

func (n *recordingNotifier) MessageSent(msg models.Message, unread int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	n.unread = append(n.unread, unread)
}

var errBoom = errors.New("boom")
