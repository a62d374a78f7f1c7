package remote

import (
	"context"
	"sync"

	"planner/internal/models"
)

// Memory is an in-process document store with the same contract as the HTTP
// channel: one record per user, whole-document replacement, and a push
// stream that fires on every change including the subscriber's own writes.
// It backs the sync server and local single-process setups.
type Memory struct {
	mu   sync.Mutex
	docs map[string]models.Document
	subs map[string][]chan *models.Document
}

// NewMemory returns an empty in-process document store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]models.Document),
		subs: make(map[string][]chan *models.Document),
	}
}

// Get returns the user's record and whether one exists.
func (m *Memory) Get(userID string) (models.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userID]
	if !ok {
		return models.Document{}, false
	}
	return cloneDocument(doc), true
}

// Put replaces the user's record and notifies every subscriber, the writer
// included.
func (m *Memory) Put(ctx context.Context, userID string, doc models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[userID] = cloneDocument(doc)
	for _, ch := range m.subs[userID] {
		snapshot := cloneDocument(doc)
		deliver(ch, &snapshot)
	}
	return nil
}

// Subscribe registers a push stream for the user's record. The current
// snapshot is delivered immediately; nil when no record exists yet. The
// stream closes when ctx is cancelled.
func (m *Memory) Subscribe(ctx context.Context, userID string) (<-chan *models.Document, error) {
	ch := make(chan *models.Document, 16)

	m.mu.Lock()
	if doc, ok := m.docs[userID]; ok {
		snapshot := cloneDocument(doc)
		ch <- &snapshot
	} else {
		ch <- nil
	}
	m.subs[userID] = append(m.subs[userID], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		subs := m.subs[userID]
		for i, sub := range subs {
			if sub == ch {
				m.subs[userID] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// deliver never blocks: snapshots are whole documents, so when a slow
// subscriber's buffer fills the oldest pending one is superseded and
// dropped. Callers hold m.mu, which also orders delivery against close.
func deliver(ch chan *models.Document, doc *models.Document) {
	for {
		select {
		case ch <- doc:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func cloneDocument(doc models.Document) models.Document {
	out := models.Document{Tasks: make([]models.Task, len(doc.Tasks))}
	copy(out.Tasks, doc.Tasks)
	for i, t := range doc.Tasks {
		out.Tasks[i].Days = append([]string{}, t.Days...)
	}
	return out
}
