// Package servicetest provides in-memory fakes of the storage ports for
// tests of services and adapters.
package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lborres/tipsapi/core"
)

// Method names accepted by Fail and Block.
const (
	MethodCreateUser            = "CreateUser"
	MethodGetUserByLogin        = "GetUserByLogin"
	MethodUserExists            = "UserExists"
	MethodAdminExists           = "AdminExists"
	MethodTouchLogin            = "TouchLogin"
	MethodCreateSession         = "CreateSession"
	MethodGetLiveSession        = "GetLiveSession"
	MethodDeleteSessionByHash   = "DeleteSessionByHash"
	MethodDeleteExpiredSessions = "DeleteExpiredSessions"
	MethodListTipsters          = "ListTipsters"
	MethodGetTipster            = "GetTipster"
	MethodCreateTipster         = "CreateTipster"
	MethodUpdateTipster         = "UpdateTipster"
	MethodDeleteTipster         = "DeleteTipster"
	MethodListMatches           = "ListMatches"
	MethodGetMatch              = "GetMatch"
	MethodListMatchTips         = "ListMatchTips"
)

// FakeStorage is a test-only fake of every storage port. Failures are
// injected per method with Fail, and Block makes a method wait for its
// context to end.
type FakeStorage struct {
	mu       sync.RWMutex
	nextUser int64
	nextSess int64
	users    map[int64]*core.User
	sessions map[string]*core.Session // keyed by token hash
	tipsters map[string]*core.Tipster
	matches  map[string]*core.Match
	tips     map[string][]core.MatchTip // keyed by match id
	errs     map[string]error
	blocked  map[string]bool
	calls    map[string]int
}

var (
	_ core.AuthStorage    = (*FakeStorage)(nil)
	_ core.TipsterStorage = (*FakeStorage)(nil)
	_ core.MatchStorage   = (*FakeStorage)(nil)
)

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		users:    make(map[int64]*core.User),
		sessions: make(map[string]*core.Session),
		tipsters: make(map[string]*core.Tipster),
		matches:  make(map[string]*core.Match),
		tips:     make(map[string][]core.MatchTip),
		errs:     make(map[string]error),
		blocked:  make(map[string]bool),
		calls:    make(map[string]int),
	}
}

// Fail makes method return err until cleared with a nil err.
func (f *FakeStorage) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

// Block makes method wait until its context is done.
func (f *FakeStorage) Block(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[method] = true
}

// Calls returns how many times method was invoked.
func (f *FakeStorage) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

// enter records the call and applies injected behaviour. It must be called
// without f.mu held.
func (f *FakeStorage) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.errs[method]
	blocked := f.blocked[method]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// SeedUser stores u directly, assigning an id when zero.
func (f *FakeStorage) SeedUser(u *core.User) *core.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		f.nextUser++
		u.ID = f.nextUser
	} else if u.ID > f.nextUser {
		f.nextUser = u.ID
	}
	if u.Role == "" {
		u.Role = core.RoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	f.users[u.ID] = u
	return u
}

// SeedSession stores s directly, assigning an id when zero.
func (f *FakeStorage) SeedSession(s *core.Session) *core.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextSess++
		s.ID = f.nextSess
	}
	f.sessions[s.TokenHash] = s
	return s
}

// User returns the stored user with id.
func (f *FakeStorage) User(id int64) (*core.User, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	u, ok := f.users[id]
	return u, ok
}

// Sessions returns a snapshot of stored sessions.
func (f *FakeStorage) Sessions() []*core.Session {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*core.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UserStorage implementation

func (f *FakeStorage) CreateUser(ctx context.Context, u *core.User) error {
	if err := f.enter(ctx, MethodCreateUser); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username || (u.Email != nil && existing.Email != nil && *existing.Email == *u.Email) {
			return core.ErrUserExists
		}
	}
	f.nextUser++
	u.ID = f.nextUser
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	f.users[u.ID] = u
	return nil
}

func (f *FakeStorage) GetUserByLogin(ctx context.Context, identifier string) (*core.User, error) {
	if err := f.enter(ctx, MethodGetUserByLogin); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var found *core.User
	for _, u := range f.users {
		if u.Username == identifier || (u.Email != nil && *u.Email == identifier) {
			if found == nil || u.ID < found.ID {
				found = u
			}
		}
	}
	if found == nil {
		return nil, core.ErrUserNotFound
	}
	cp := *found
	return &cp, nil
}

func (f *FakeStorage) UserExists(ctx context.Context, username, email string) (bool, error) {
	if err := f.enter(ctx, MethodUserExists); err != nil {
		return false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Username == username || (email != "" && u.Email != nil && *u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeStorage) AdminExists(ctx context.Context) (bool, error) {
	if err := f.enter(ctx, MethodAdminExists); err != nil {
		return false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, u := range f.users {
		if u.Role == core.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeStorage) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	if err := f.enter(ctx, MethodTouchLogin); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	return nil
}

// SessionStorage implementation

func (f *FakeStorage) CreateSession(ctx context.Context, s *core.Session) error {
	if err := f.enter(ctx, MethodCreateSession); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSess++
	s.ID = f.nextSess
	f.sessions[s.TokenHash] = s
	return nil
}

func (f *FakeStorage) GetLiveSession(ctx context.Context, tokenHash string, now time.Time) (*core.SessionData, error) {
	if err := f.enter(ctx, MethodGetLiveSession); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.sessions[tokenHash]
	if !ok || !s.Live(now) {
		return nil, core.ErrSessionNotFound
	}
	u, ok := f.users[s.UserID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	sc, uc := *s, *u
	return &core.SessionData{User: &uc, Session: &sc}, nil
}

func (f *FakeStorage) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	if err := f.enter(ctx, MethodDeleteSessionByHash); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, tokenHash)
	return nil
}

func (f *FakeStorage) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if err := f.enter(ctx, MethodDeleteExpiredSessions); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, s := range f.sessions {
		if !s.Live(now) {
			delete(f.sessions, k)
			n++
		}
	}
	return n, nil
}

// TipsterStorage implementation

func (f *FakeStorage) ListTipsters(ctx context.Context, filter core.TipsterFilter) ([]*core.Tipster, int, error) {
	if err := f.enter(ctx, MethodListTipsters); err != nil {
		return nil, 0, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var matched []*core.Tipster
	for _, t := range f.tipsters {
		if filter.Platform != "" && (t.Platform == nil || *t.Platform != filter.Platform) {
			continue
		}
		if filter.Type != "" && (t.Type == nil || *t.Type != filter.Type) {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		less := tipsterLess(matched[i], matched[j], filter.SortBy)
		if strings.EqualFold(filter.SortOrder, "DESC") {
			return tipsterLess(matched[j], matched[i], filter.SortBy)
		}
		return less
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func tipsterLess(a, b *core.Tipster, by string) bool {
	switch by {
	case "created_at":
		return a.CreatedAt.Before(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "platform":
		return deref(a.Platform) < deref(b.Platform)
	default:
		return a.Name < b.Name
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (f *FakeStorage) GetTipster(ctx context.Context, id string) (*core.Tipster, error) {
	if err := f.enter(ctx, MethodGetTipster); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.tipsters[id]
	if !ok {
		return nil, core.ErrTipsterNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *FakeStorage) CreateTipster(ctx context.Context, t *core.Tipster) error {
	if err := f.enter(ctx, MethodCreateTipster); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.tipsters[t.ID]; exists {
		return core.ErrTipsterExists
	}
	cp := *t
	f.tipsters[t.ID] = &cp
	return nil
}

func (f *FakeStorage) UpdateTipster(ctx context.Context, id string, p core.TipsterPatch) error {
	if err := f.enter(ctx, MethodUpdateTipster); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tipsters[id]
	if !ok {
		return core.ErrTipsterNotFound
	}
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.URL != nil {
		t.URL = p.URL
	}
	if p.Type != nil {
		t.Type = p.Type
	}
	if p.Platform != nil {
		t.Platform = p.Platform
	}
	if p.TrackedData != nil {
		t.TrackedData = p.TrackedData
	}
	t.UpdatedAt = time.Now()
	return nil
}

func (f *FakeStorage) DeleteTipster(ctx context.Context, id string) error {
	if err := f.enter(ctx, MethodDeleteTipster); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tipsters[id]; !ok {
		return core.ErrTipsterNotFound
	}
	delete(f.tipsters, id)
	return nil
}

// MatchStorage implementation

// SeedMatch stores m directly.
func (f *FakeStorage) SeedMatch(m *core.Match) *core.Match {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
		m.UpdatedAt = m.CreatedAt
	}
	cp := *m
	f.matches[m.ID] = &cp
	return m
}

// SeedMatchTip attaches tip to the match with the given id.
func (f *FakeStorage) SeedMatchTip(matchID string, tip core.MatchTip) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tips[matchID] = append(f.tips[matchID], tip)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (f *FakeStorage) ListMatches(ctx context.Context, filter core.MatchFilter) ([]*core.Match, int, error) {
	if err := f.enter(ctx, MethodListMatches); err != nil {
		return nil, 0, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var matched []*core.Match
	for _, m := range f.matches {
		if filter.Date != "" && m.Date != filter.Date {
			continue
		}
		if filter.Competition != "" && !containsFold(deref(m.Competition.Name), filter.Competition) {
			continue
		}
		if filter.Team != "" && !containsFold(m.Home.Name, filter.Team) && !containsFold(m.Away.Name, filter.Team) {
			continue
		}
		if filter.Status != "" && m.Status.Stage != filter.Status {
			continue
		}
		if filter.Sport != "" && deref(m.Sport) != filter.Sport {
			continue
		}
		cp := *m
		cp.Statistics = nil
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if strings.EqualFold(filter.SortOrder, "DESC") {
			a, b = b, a
		}
		if ka, kb := matchKey(a, filter.SortBy), matchKey(b, filter.SortBy); ka != kb {
			return ka < kb
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return matched[start:end], total, nil
}

func matchKey(m *core.Match, by string) string {
	switch by {
	case "match_time":
		return deref(m.Time)
	case "competition_name":
		return deref(m.Competition.Name)
	case "status_stage":
		return m.Status.Stage
	case "sport":
		return deref(m.Sport)
	case "created_at":
		return m.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000")
	case "updated_at":
		return m.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000000")
	default:
		return m.Date
	}
}

func (f *FakeStorage) GetMatch(ctx context.Context, id string) (*core.Match, error) {
	if err := f.enter(ctx, MethodGetMatch); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, core.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *FakeStorage) ListMatchTips(ctx context.Context, matchID string) ([]core.MatchTip, error) {
	if err := f.enter(ctx, MethodListMatchTips); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]core.MatchTip(nil), f.tips[matchID]...), nil
}
