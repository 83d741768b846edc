package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/safronx/sentinel/internal/roles"
	"github.com/safronx/sentinel/internal/telegram"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	mu      sync.Mutex
	bans    map[string]BanRecord
	mutes   map[string]MuteRecord
	listErr error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{
		bans:  make(map[string]BanRecord),
		mutes: make(map[string]MuteRecord),
	}
}

func key(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func (s *memStore) PutBan(_ context.Context, rec BanRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans[key(rec.ChatID, rec.UserID)] = rec
	return nil
}

func (s *memStore) DeleteBan(_ context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bans, key(chatID, userID))
	return nil
}

func (s *memStore) IsBanned(_ context.Context, chatID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bans[key(chatID, userID)]
	return ok
}

func (s *memStore) PutMute(_ context.Context, rec MuteRecord) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutes[key(rec.ChatID, rec.UserID)] = rec
	return nil
}

func (s *memStore) DeleteMute(_ context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mutes, key(chatID, userID))
	return nil
}

func (s *memStore) GetMute(_ context.Context, chatID, userID int64) (*MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.mutes[key(chatID, userID)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *memStore) ListMutes(_ context.Context) ([]MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MuteRecord, 0, len(s.mutes))
	for _, rec := range s.mutes {
		out = append(out, rec)
	}
	return out, nil
}

func (s *memStore) ListExpiredMutes(_ context.Context, now time.Time) ([]MuteRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []MuteRecord
	for _, rec := range s.mutes {
		if !rec.ExpiresAt.After(now) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// apiCall records one invocation on the fake platform.
type apiCall struct {
	method string
	chatID int64
	userID int64
	perms  telegram.ChatPermissions
	until  time.Time
}

// fakeAPI implements PlatformActions and Directory.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall

	selfMember  *telegram.ChatMember
	memberErr   error
	banErr      error
	unbanErr    error
	restrictErr map[int64]error // per target user id
	chats       map[string]*telegram.Chat
	chatErr     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		selfMember: &telegram.ChatMember{
			Status:             telegram.MemberStatusAdministrator,
			CanRestrictMembers: true,
		},
		chats: make(map[string]*telegram.Chat),
	}
}

func (f *fakeAPI) record(call apiCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callsFor(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) GetChatMember(_ context.Context, chatID, userID int64) (*telegram.ChatMember, error) {
	f.record(apiCall{method: "getChatMember", chatID: chatID, userID: userID})
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.selfMember, nil
}

func (f *fakeAPI) BanChatMember(_ context.Context, chatID, userID int64) error {
	f.record(apiCall{method: "banChatMember", chatID: chatID, userID: userID})
	return f.banErr
}

func (f *fakeAPI) UnbanChatMember(_ context.Context, chatID, userID int64) error {
	f.record(apiCall{method: "unbanChatMember", chatID: chatID, userID: userID})
	return f.unbanErr
}

func (f *fakeAPI) RestrictChatMember(_ context.Context, chatID, userID int64, perms telegram.ChatPermissions, until time.Time) error {
	f.record(apiCall{method: "restrictChatMember", chatID: chatID, userID: userID, perms: perms, until: until})
	if err, ok := f.restrictErr[userID]; ok {
		return err
	}
	return nil
}

func (f *fakeAPI) GetChatByUsername(_ context.Context, username string) (*telegram.Chat, error) {
	f.record(apiCall{method: "getChat"})
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	if chat, ok := f.chats[username]; ok {
		return chat, nil
	}
	return nil, &telegram.APIError{Code: 400, Description: "Bad Request: chat not found"}
}

// fakePerms allows a fixed set of (userID, action) pairs.
type fakePerms struct {
	allowed map[int64][]string
}

func (p *fakePerms) CanInvoke(userID int64, action string) bool {
	for _, a := range p.allowed[userID] {
		if a == action || a == roles.Wildcard {
			return true
		}
	}
	return false
}

// fakeAdmins implements AdminLookup over a fixed record set.
type fakeAdmins struct {
	records map[string]roles.AdminRecord
}

func (a *fakeAdmins) FindByUsername(username string) (roles.AdminRecord, bool) {
	rec, ok := a.records[username]
	return rec, ok
}

func groupMessage(chatID int64, from *telegram.User, text string) *telegram.Message {
	return &telegram.Message{
		MessageID: 1,
		From:      from,
		Chat:      telegram.Chat{ID: chatID, Type: "supergroup", Title: "test group"},
		Text:      text,
	}
}
