package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"sonna/internal/ai"
	"sonna/internal/model"
	"sonna/internal/pkg/id"
	"sonna/internal/pkg/tts"
	"sonna/internal/repository"
)

// fakeUserStore in-memory UserStore
type fakeUserStore struct {
	users     map[string]*model.User
	createErr error
}

func newFakeUserStore(seed ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: map[string]*model.User{}}
	for _, u := range seed {
		s.users[u.ID] = u
	}
	return s
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, userID string) (*model.User, error) {
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) FindByName(_ context.Context, name string) (*model.User, error) {
	for _, u := range f.users {
		if u.Name == name {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) UpdateName(_ context.Context, userID, name string) error {
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Name = name
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeUserStore) UpdatePreferences(_ context.Context, userID string, prefs map[string]any) error {
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.Preferences = prefs
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeUserStore) Delete(_ context.Context, userID string) error {
	delete(f.users, userID)
	return nil
}

// fakeConversationStore in-memory ConversationStore plus the
// reassignment used by the identity migration.
type fakeConversationStore struct {
	convs    map[string]*model.Conversation
	touchErr error
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{convs: map[string]*model.Conversation{}}
}

func (f *fakeConversationStore) GetOrCreateActive(_ context.Context, userID string, now time.Time) (*model.Conversation, error) {
	cutoff := now.Add(-model.ActiveWindow)
	var best *model.Conversation
	for _, c := range f.convs {
		if c.UserID != userID || c.UpdatedAt.Before(cutoff) {
			continue
		}
		if best == nil || c.UpdatedAt.After(best.UpdatedAt) {
			best = c
		}
	}
	if best != nil {
		return best, nil
	}

	conv := &model.Conversation{
		ID:        id.New(),
		UserID:    userID,
		Title:     model.PlaceholderTitle(now),
		Metadata:  map[string]any{"source": "voice"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.convs[conv.ID] = conv
	return conv, nil
}

func (f *fakeConversationStore) FindByID(_ context.Context, convID string) (*model.Conversation, error) {
	if c, ok := f.convs[convID]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeConversationStore) Touch(_ context.Context, convID string, at time.Time) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	c, ok := f.convs[convID]
	if !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = at
	return nil
}

func (f *fakeConversationStore) MaybeRetitle(_ context.Context, convID, candidate string) (bool, error) {
	c, ok := f.convs[convID]
	if !ok {
		return false, nil
	}
	if !model.HasPlaceholderTitle(c.Title) {
		return false, nil
	}
	c.Title = model.TitleFromMessage(candidate)
	return true, nil
}

func (f *fakeConversationStore) ListByUser(_ context.Context, userID string, limit int64) ([]*model.Conversation, error) {
	var out []*model.Conversation
	for _, c := range f.convs {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeConversationStore) ReassignUser(_ context.Context, fromUserID, toUserID string) (int64, error) {
	var n int64
	for _, c := range f.convs {
		if c.UserID == fromUserID {
			c.UserID = toUserID
			n++
		}
	}
	return n, nil
}

func (f *fakeConversationStore) Delete(_ context.Context, convID string) error {
	if _, ok := f.convs[convID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.convs, convID)
	return nil
}

// fakeMessageStore in-memory MessageStore. Messages keep insertion
// order, which is chronological in these tests.
type fakeMessageStore struct {
	msgs   []*model.Message
	addErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{}
}

func (f *fakeMessageStore) Add(_ context.Context, msg *model.Message) error {
	if f.addErr != nil {
		return f.addErr
	}
	if msg.ID == "" {
		msg.ID = id.New()
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeMessageStore) byConversation(conversationID string) []*model.Message {
	var out []*model.Message
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMessageStore) Recent(_ context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	out := f.byConversation(conversationID)
	if int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (f *fakeMessageStore) ListByConversation(_ context.Context, conversationID string, limit int64) ([]*model.Message, error) {
	out := f.byConversation(conversationID)
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageStore) DeleteByConversation(_ context.Context, conversationID string) (int64, error) {
	var kept []*model.Message
	var n int64
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	f.msgs = kept
	return n, nil
}

// fakeTranscriber func-field Transcriber
type fakeTranscriber struct {
	transcribeFunc func(ctx context.Context, filename string, audio io.Reader) (string, error)
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if f.transcribeFunc != nil {
		return f.transcribeFunc(ctx, filename, audio)
	}
	return "", errors.New("transcribe func not set")
}

// fakeGenerator ReplyGenerator that records every request it saw.
type fakeGenerator struct {
	replyFunc func(ctx context.Context, req *ai.ReplyRequest) (string, error)
	modelName string
	requests  []*ai.ReplyRequest
}

func (f *fakeGenerator) Reply(ctx context.Context, req *ai.ReplyRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.replyFunc != nil {
		return f.replyFunc(ctx, req)
	}
	return "", errors.New("reply func not set")
}

func (f *fakeGenerator) Model() string {
	if f.modelName == "" {
		return "test-model"
	}
	return f.modelName
}

// fakePrimary func-field PrimarySynthesizer
type fakePrimary struct {
	synthesizeFunc func(ctx context.Context, text string) (*tts.Result, error)
}

func (f *fakePrimary) Synthesize(ctx context.Context, text string) (*tts.Result, error) {
	if f.synthesizeFunc != nil {
		return f.synthesizeFunc(ctx, text)
	}
	return nil, errors.New("synthesize func not set")
}

// fakeFallback func-field FallbackSynthesizer
type fakeFallback struct {
	synthesizeFunc func(ctx context.Context, text string) ([]byte, error)
}

func (f *fakeFallback) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if f.synthesizeFunc != nil {
		return f.synthesizeFunc(ctx, text)
	}
	return nil, errors.New("synthesize func not set")
}

// fakeArchive in-memory storage.Storage
type fakeArchive struct {
	objects   map[string][]byte
	uploadErr error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string][]byte{}}
}

func (f *fakeArchive) Upload(_ context.Context, key string, data io.Reader, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	f.objects[key] = b
	return "mem://" + key, nil
}

func (f *fakeArchive) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeArchive) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeArchive) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeArchive) GetStorageType() string {
	return "memory"
}
