package outreach

import (
	"context"
	"sync"
	"time"
)

// fakeStore is an in-memory Store with per-method overrides, shared by the
// loader, executor, and batch tests.
type fakeStore struct {
	mu sync.Mutex

	prefs      map[string]Preferences
	models     map[string]EngagementModel
	streaks    map[string]StreakState
	alerts     map[string][]Alert
	counts     map[string]int
	lastActive map[string]*time.Time
	names      map[string]string
	userIDs    []string

	entries  []LogEntry
	outcomes []Outcome
	audits   []AuditRecord

	prefsErr     map[string]error
	userIDsErr   error
	loadErr      map[string]error // hard failure for any read of this user
	insertLogErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:      map[string]Preferences{},
		models:     map[string]EngagementModel{},
		streaks:    map[string]StreakState{},
		alerts:     map[string][]Alert{},
		counts:     map[string]int{},
		lastActive: map[string]*time.Time{},
		names:      map[string]string{},
		prefsErr:   map[string]error{},
		loadErr:    map[string]error{},
	}
}

func (f *fakeStore) Preferences(_ context.Context, userID string) (Preferences, error) {
	if err := f.loadErr[userID]; err != nil {
		return Preferences{}, err
	}
	if err := f.prefsErr[userID]; err != nil {
		return Preferences{}, err
	}
	p, ok := f.prefs[userID]
	if !ok {
		return Preferences{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) EngagementModel(_ context.Context, userID string) (EngagementModel, error) {
	if err := f.loadErr[userID]; err != nil {
		return EngagementModel{}, err
	}
	m, ok := f.models[userID]
	if !ok {
		return EngagementModel{}, ErrNotFound
	}
	return m, nil
}

func (f *fakeStore) Streak(_ context.Context, userID string) (StreakState, error) {
	if err := f.loadErr[userID]; err != nil {
		return StreakState{}, err
	}
	s, ok := f.streaks[userID]
	if !ok {
		return StreakState{}, ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) ActiveAlerts(_ context.Context, userID string) ([]Alert, error) {
	if err := f.loadErr[userID]; err != nil {
		return nil, err
	}
	return f.alerts[userID], nil
}

func (f *fakeStore) RecentOutreachCount(_ context.Context, userID string, _ time.Time) (int, error) {
	if err := f.loadErr[userID]; err != nil {
		return 0, err
	}
	return f.counts[userID], nil
}

func (f *fakeStore) LastActivityAt(_ context.Context, userID string) (*time.Time, error) {
	if err := f.loadErr[userID]; err != nil {
		return nil, err
	}
	return f.lastActive[userID], nil
}

func (f *fakeStore) UserName(_ context.Context, userID string) (string, error) {
	if err := f.loadErr[userID]; err != nil {
		return "", err
	}
	n, ok := f.names[userID]
	if !ok {
		return "", ErrNotFound
	}
	return n, nil
}

func (f *fakeStore) ActiveUserIDs(_ context.Context) ([]string, error) {
	if f.userIDsErr != nil {
		return nil, f.userIDsErr
	}
	return f.userIDs, nil
}

func (f *fakeStore) InsertLogEntry(_ context.Context, e LogEntry) error {
	if f.insertLogErr != nil {
		return f.insertLogErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) InsertOutcome(_ context.Context, o Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeStore) InsertAudit(_ context.Context, a AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, a)
	return nil
}

// fakePublisher records sends and can fail on demand.
type fakePublisher struct {
	mu    sync.Mutex
	sends []string // userID
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, userID, _, _, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, userID)
	return nil
}
