package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// recordingEvents captures logged events for assertions.
type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type string
	Data map[string]any
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingEvents) ofType(eventType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeCatalog serves fixed pages and records the queries it received.
type fakeCatalog struct {
	pages   []CatalogPage
	err     error
	filters []string
	calls   int
}

func (f *fakeCatalog) QueryBundles(_ context.Context, filter string, page, _ int) (CatalogPage, error) {
	f.calls++
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return CatalogPage{}, f.err
	}
	if page >= len(f.pages) {
		return CatalogPage{}, nil
	}
	return f.pages[page], nil
}

// memoryBlobStore is an in-memory BlobStore keyed by object name.
type memoryBlobStore struct {
	mu        sync.Mutex
	objects   map[string]string
	fetchErrs map[string]error
	listErr   error
	fetched   []string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{
		objects:   make(map[string]string),
		fetchErrs: make(map[string]error),
	}
}

func (m *memoryBlobStore) put(name, content string) {
	m.objects[name] = content
}

func (m *memoryBlobStore) Fetch(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, name)
	if err, ok := m.fetchErrs[name]; ok {
		return nil, err
	}
	content, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", name, ErrNotFound)
	}
	return []byte(content), nil
}

func (m *memoryBlobStore) ListDirectories(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]bool)
	for name := range m.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			set[prefix+rest[:i+1]] = true
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memoryBlobStore) ListFilteredFiles(_ context.Context, prefix, pattern string) ([]BlobFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	var out []BlobFile
	for name, content := range m.objects {
		if strings.HasPrefix(name, prefix) && g.Match(strings.TrimPrefix(name, prefix)) {
			out = append(out, BlobFile{Name: name, Size: int64(len(content))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
