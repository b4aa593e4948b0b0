package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
)

// mockGateway is an in-memory gateway
type mockGateway struct {
	mu        sync.Mutex
	groups    map[string]*domain.Group
	listErr   error
	sendErr   map[string]error // keyed by recipient
	groupMsgs map[string][]string
	directs   map[string][]string
}

func newMockGateway(groups ...*domain.Group) *mockGateway {
	m := &mockGateway{
		groups:    make(map[string]*domain.Group),
		sendErr:   make(map[string]error),
		groupMsgs: make(map[string][]string),
		directs:   make(map[string][]string),
	}
	for _, g := range groups {
		m.groups[g.ID] = g
	}
	return m
}

func (m *mockGateway) ListGroups(ctx context.Context) ([]repo.GroupSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []repo.GroupSummary
	for _, g := range m.groups {
		out = append(out, repo.GroupSummary{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

func (m *mockGateway) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockGateway) ListMessages(ctx context.Context, groupID string, page int) ([]domain.InboundEvent, error) {
	return nil, nil
}

func (m *mockGateway) SendGroupMessage(ctx context.Context, groupID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.sendErr[groupID]; err != nil {
		return err
	}
	m.groupMsgs[groupID] = append(m.groupMsgs[groupID], text)
	return nil
}

func (m *mockGateway) SendDirectMessage(ctx context.Context, contactID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.sendErr[contactID]; err != nil {
		return err
	}
	m.directs[contactID] = append(m.directs[contactID], text)
	return nil
}

// mockLLM answers every call with a fixed response
type mockLLM struct {
	mu          sync.Mutex
	answer      string
	err         error
	block       chan struct{} // if set, Classify waits for it or ctx
	genBlock    chan struct{} // if set, Generate waits for it or ctx
	classifies  int
	generates   int
	lastPrompts []string
}

func (m *mockLLM) Classify(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.classifies++
	m.lastPrompts = append(m.lastPrompts, prompt)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.answer, m.err
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.generates++
	m.lastPrompts = append(m.lastPrompts, prompt)
	block := m.genBlock
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answer, m.err
}

func (m *mockLLM) generateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generates
}

func (m *mockLLM) classifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifies
}

// memStore keeps snapshots as JSON bytes
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   map[string]int
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), saves: make(map[string]int)}
}

func (s *memStore) Load(ctx context.Context, name string, v any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (s *memStore) Save(ctx context.Context, name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.data[name] = raw
	s.saves[name]++
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) saveCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves[name]
}

var errBoom = errors.New("boom")

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}
