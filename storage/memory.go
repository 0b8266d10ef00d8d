package storage

import (
	"context"
	"sort"
	"sync"
)

// Memory is a Store backed by nested maps. Data lives as long as the value.
type Memory struct {
	mu     sync.RWMutex
	data   map[string]map[string]string // origin -> key -> value
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) Get(_ context.Context, origin, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, ErrClosed
	}
	v, ok := m.data[origin][key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, origin, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	area, ok := m.data[origin]
	if !ok {
		area = make(map[string]string)
		m.data[origin] = area
	}
	area[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, origin, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data[origin], key)
	return nil
}

func (m *Memory) Keys(_ context.Context, origin string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(m.data[origin]))
	for k := range m.data[origin] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Clear(_ context.Context, origin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, origin)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
