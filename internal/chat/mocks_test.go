package chat

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/careerbridge/chat-service/internal/apperr"
	"github.com/careerbridge/chat-service/internal/models"
	"github.com/careerbridge/chat-service/internal/repository"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeConversationRepo is an in-memory ConversationRepo enforcing the same
// (pair_key, job_id) uniqueness the mongo index provides.
type fakeConversationRepo struct {
	mu      sync.Mutex
	byKey   map[string]*models.Conversation
	byID    map[primitive.ObjectID]*models.Conversation
	touched []touch

	// beforeInsert runs inside Insert with the lock held, letting tests
	// plant a racing writer.
	beforeInsert func()
	// hiddenReads makes FindByPair report NotFound that many more times
	// even when the record exists, simulating a not-yet-visible write.
	hiddenReads int
}

type touch struct {
	convID primitive.ObjectID
	msgID  primitive.ObjectID
	at     time.Time
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byKey: make(map[string]*models.Conversation),
		byID:  make(map[primitive.ObjectID]*models.Conversation),
	}
}

func key(pairKey, jobID string) string { return pairKey + "|" + jobID }

func (f *fakeConversationRepo) put(conv *models.Conversation) *models.Conversation {
	cp := *conv
	if cp.ID.IsZero() {
		cp.ID = primitive.NewObjectID()
	}
	f.byKey[key(cp.PairKey, cp.JobID)] = &cp
	f.byID[cp.ID] = &cp
	return &cp
}

func (f *fakeConversationRepo) FindByPair(_ context.Context, pairKey, jobID string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hiddenReads > 0 {
		f.hiddenReads--
		return nil, apperr.ErrNotFound
	}
	if c, ok := f.byKey[key(pairKey, jobID)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeConversationRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeConversationRepo) Insert(_ context.Context, conv *models.Conversation) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeInsert != nil {
		hook := f.beforeInsert
		f.beforeInsert = nil
		hook()
	}
	if _, ok := f.byKey[key(conv.PairKey, conv.JobID)]; ok {
		return nil, repository.ErrDuplicate
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	return f.put(conv), nil
}

func (f *fakeConversationRepo) ListForUser(_ context.Context, userID string, limit, skip int64) ([]*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Conversation
	for _, c := range f.byID {
		if c.HasParticipant(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) IDsForUser(_ context.Context, userID string) ([]primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []primitive.ObjectID
	for _, c := range f.byID {
		if c.HasParticipant(userID) {
			out = append(out, c.ID)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) TouchLastMessage(_ context.Context, convID, msgID primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, touch{convID: convID, msgID: msgID, at: at})
	if c, ok := f.byID[convID]; ok {
		c.LastMessageID = msgID
		c.LastMessageAt = at
	}
	return nil
}

func (f *fakeConversationRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeMessageRepo struct {
	mu   sync.Mutex
	msgs []*models.Message

	// insertErr fails the next Insert once, simulating a store outage.
	insertErr error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Insert(_ context.Context, msg *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		err := f.insertErr
		f.insertErr = nil
		return nil, err
	}
	cp := *msg
	cp.ID = primitive.NewObjectID()
	cp.CreatedAt = time.Now().UTC()
	f.msgs = append(f.msgs, &cp)
	out := cp
	return &out, nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, convID primitive.ObjectID, before time.Time, limit int64) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Message
	for _, m := range f.msgs {
		if m.ConversationID != convID {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkRead(_ context.Context, convID primitive.ObjectID, readerID string, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, m := range f.msgs {
		if m.ConversationID == convID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			t := at
			m.ReadAt = &t
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, convIDs []primitive.ObjectID, readerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	in := make(map[primitive.ObjectID]bool, len(convIDs))
	for _, id := range convIDs {
		in[id] = true
	}
	var n int64
	for _, m := range f.msgs {
		if in[m.ConversationID] && m.SenderID != readerID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeDirectory struct {
	known map[string]bool
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{known: make(map[string]bool)}
	for _, id := range ids {
		d.known[id] = true
	}
	return d
}

func (d *fakeDirectory) Exists(_ context.Context, id string) (bool, error) {
	return d.known[id], nil
}

// recordSink counts notifications for assertions.
type recordSink struct {
	mu                   sync.Mutex
	conversationsCreated []string // recipient ids
	messagesCreated      []primitive.ObjectID
	messagesRead         []string // reader ids
}

func (s *recordSink) ConversationCreated(_ context.Context, _ *models.Conversation, recipientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationsCreated = append(s.conversationsCreated, recipientID)
}

func (s *recordSink) MessageCreated(_ context.Context, _ *models.Conversation, msg *models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesCreated = append(s.messagesCreated, msg.ID)
}

func (s *recordSink) MessagesRead(_ context.Context, _ *models.Conversation, readerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messagesRead = append(s.messagesRead, readerID)
}

func (s *recordSink) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversationsCreated)
}
