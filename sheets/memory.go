package sheets

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and --no-sheets runs.
type Memory struct {
	mu       sync.Mutex
	books    map[string]map[string][][]any // name -> tab -> rows
	appends  map[string]int
	formats  map[string]int
	failures map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		books:    make(map[string]map[string][][]any),
		appends:  make(map[string]int),
		formats:  make(map[string]int),
		failures: make(map[string]error),
	}
}

func (m *Memory) CreateOrReuse(ctx context.Context, name string, tabs []string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures["create"]; err != nil {
		return Handle{}, err
	}

	book, ok := m.books[name]
	if !ok {
		book = make(map[string][][]any)
		m.books[name] = book
	}

	h := Handle{ID: name, Name: name, URL: "memory://" + name}
	for _, tab := range tabs {
		if _, ok := book[tab]; !ok {
			book[tab] = nil
			h.NewTabs = append(h.NewTabs, tab)
		}
	}
	return h, nil
}

func (m *Memory) AppendRows(ctx context.Context, h Handle, tab string, rows [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[tab]; err != nil {
		return err
	}
	book, ok := m.books[h.ID]
	if !ok {
		return fmt.Errorf("spreadsheet %s not found", h.ID)
	}
	if _, ok := book[tab]; !ok {
		return fmt.Errorf("tab %s not found", tab)
	}
	book[tab] = append(book[tab], rows...)
	m.appends[tab]++
	return nil
}

func (m *Memory) FormatHeader(ctx context.Context, h Handle, tab string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formats[tab]++
	return nil
}

// FailOn makes every AppendRows for tab return err. The key "create"
// fails CreateOrReuse instead.
func (m *Memory) FailOn(tab string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[tab] = err
}

// Rows returns a copy of the rows written to tab, header included.
func (m *Memory) Rows(name, tab string) [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.books[name][tab]
	out := make([][]any, len(rows))
	copy(out, rows)
	return out
}

// Appends reports how many AppendRows calls reached tab.
func (m *Memory) Appends(tab string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends[tab]
}

// Formats reports how many times the header of tab was formatted.
func (m *Memory) Formats(tab string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.formats[tab]
}
