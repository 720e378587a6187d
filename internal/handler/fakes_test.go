package handler

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"sonna/internal/ai"
	"sonna/internal/model"
	"sonna/internal/pkg/id"
	"sonna/internal/repository"
)

// Minimal in-memory stores for wiring real services behind handlers.
// Only the behavior the HTTP layer exercises is modeled.

type stubUserStore struct {
	users map[string]*model.User
	fail  error
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{users: make(map[string]*model.User)}
}

func (s *stubUserStore) Create(ctx context.Context, user *model.User) error {
	if s.fail != nil {
		return s.fail
	}
	if user.ID == "" {
		user.ID = id.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	return nil
}

func (s *stubUserStore) FindByID(ctx context.Context, uid string) (*model.User, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	if u, ok := s.users[uid]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserStore) FindByName(ctx context.Context, name string) (*model.User, error) {
	for _, u := range s.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserStore) UpdateName(ctx context.Context, uid, name string) error {
	u, ok := s.users[uid]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = name
	return nil
}

func (s *stubUserStore) UpdatePreferences(ctx context.Context, uid string, prefs map[string]any) error {
	u, ok := s.users[uid]
	if !ok {
		return repository.ErrNotFound
	}
	u.Preferences = prefs
	return nil
}

func (s *stubUserStore) Delete(ctx context.Context, uid string) error {
	if _, ok := s.users[uid]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, uid)
	return nil
}

type stubConversationStore struct {
	conversations map[string]*model.Conversation
}

func newStubConversationStore() *stubConversationStore {
	return &stubConversationStore{conversations: make(map[string]*model.Conversation)}
}

func (s *stubConversationStore) GetOrCreateActive(ctx context.Context, userID string, now time.Time) (*model.Conversation, error) {
	for _, conv := range s.conversations {
		if conv.UserID == userID && conv.IsActive(now) {
			return conv, nil
		}
	}
	conv := &model.Conversation{
		ID:        id.New(),
		UserID:    userID,
		Title:     model.PlaceholderTitle(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *stubConversationStore) FindByID(ctx context.Context, cid string) (*model.Conversation, error) {
	if conv, ok := s.conversations[cid]; ok {
		return conv, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubConversationStore) Touch(ctx context.Context, cid string, at time.Time) error {
	conv, ok := s.conversations[cid]
	if !ok {
		return repository.ErrNotFound
	}
	conv.UpdatedAt = at
	return nil
}

func (s *stubConversationStore) MaybeRetitle(ctx context.Context, cid, candidate string) (bool, error) {
	conv, ok := s.conversations[cid]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !model.HasPlaceholderTitle(conv.Title) {
		return false, nil
	}
	conv.Title = model.TitleFromMessage(candidate)
	return true, nil
}

func (s *stubConversationStore) ListByUser(ctx context.Context, userID string, limit int64) ([]*model.Conversation, error) {
	var out []*model.Conversation
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubConversationStore) Delete(ctx context.Context, cid string) error {
	if _, ok := s.conversations[cid]; !ok {
		return repository.ErrNotFound
	}
	delete(s.conversations, cid)
	return nil
}

type stubMessageStore struct {
	messages []*model.Message
}

func (s *stubMessageStore) Add(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = id.New()
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *stubMessageStore) Recent(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	thread := s.thread(conversationID)
	if int64(len(thread)) > limit {
		thread = thread[int64(len(thread))-limit:]
	}
	return thread, nil
}

func (s *stubMessageStore) ListByConversation(ctx context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	thread := s.thread(conversationID)
	if int64(len(thread)) > limit {
		thread = thread[:limit]
	}
	return thread, nil
}

func (s *stubMessageStore) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	var kept []*model.Message
	var removed int64
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			removed++
			continue
		}
		kept = append(kept, msg)
	}
	s.messages = kept
	return removed, nil
}

func (s *stubMessageStore) thread(conversationID string) []*model.Message {
	var out []*model.Message
	for _, msg := range s.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out
}

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Reply(ctx context.Context, req *ai.ReplyRequest) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubGenerator) Model() string { return "stub-model" }

type stubSynth struct {
	err error
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3:" + text), nil
}

type stubStorage struct {
	objects map[string][]byte
}

func newStubStorage() *stubStorage {
	return &stubStorage{objects: make(map[string][]byte)}
}

func (s *stubStorage) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return "", err
	}
	s.objects[key] = buf.Bytes()
	return "mem://" + key, nil
}

func (s *stubStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (s *stubStorage) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *stubStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *stubStorage) GetStorageType() string { return "memory" }
