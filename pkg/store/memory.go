package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process store used as the local cache tier and as the
// backing store in tests. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]json.RawMessage
	counters map[UsageCategory]int64
	subs     map[string]map[int]func(json.RawMessage)
	nextSub  int
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]json.RawMessage),
		counters: make(map[UsageCategory]int64),
		subs:     make(map[string]map[int]func(json.RawMessage)),
	}
}

func (m *Memory) GetDocument(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, nil
	}
	out := make(json.RawMessage, len(doc))
	copy(out, doc)
	return out, nil
}

func (m *Memory) SetDocument(_ context.Context, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.docs[key] = payload
	var fns []func(json.RawMessage)
	for _, fn := range m.subs[key] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
	return nil
}

func (m *Memory) DeleteDocument(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

func (m *Memory) ListKeys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Subscribe(ctx context.Context, key string, fn func(json.RawMessage)) (CancelFunc, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	if m.subs[key] == nil {
		m.subs[key] = make(map[int]func(json.RawMessage))
	}
	m.subs[key][id] = fn
	snapshot := m.docs[key]
	m.mu.Unlock()

	if snapshot != nil {
		fn(snapshot)
	}

	return func() {
		m.mu.Lock()
		delete(m.subs[key], id)
		m.mu.Unlock()
	}, nil
}

func (m *Memory) IncrementCounter(_ context.Context, category UsageCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[category]++
	return nil
}

func (m *Memory) Counters(_ context.Context) (Counters, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Counters{
		Pilot:   m.counters[UsagePilot],
		Student: m.counters[UsageStudent],
	}, nil
}
