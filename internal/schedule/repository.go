package schedule

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"planner/internal/models"
)

// CacheStore is the durable on-device mirror of the task list and the
// completion map. Each entry is rewritten in full on every mutation.
type CacheStore interface {
	LoadTasks(ctx context.Context) ([]models.Task, error)
	SaveTasks(ctx context.Context, tasks []models.Task) error
	LoadCompletion(ctx context.Context) (models.CompletionStatus, error)
	SaveCompletion(ctx context.Context, status models.CompletionStatus) error
}

// SyncChannel is the per-user remote task record: whole-document replacement
// writes and a push stream that fires on every change, own writes included.
// A nil document on the stream means no record exists for the user yet.
type SyncChannel interface {
	Put(ctx context.Context, userID string, doc models.Document) error
	Subscribe(ctx context.Context, userID string) (<-chan *models.Document, error)
}

// DefaultWriteTimeout bounds every remote write so a stalled sync endpoint
// cannot leave a mutation pending forever.
const DefaultWriteTimeout = 10 * time.Second

// AddRequest carries the inputs of the add-task operation.
type AddRequest struct {
	Title           string
	Time            string
	Description     string
	Kind            models.TaskKind
	Days            []string
	Date            string
	ImportanceIndex int
}

// Repository owns the in-memory task list for one user session. It is seeded
// from the cache, reconciled against the remote record while an identity is
// set, and writes every mutation through both stores. Deletes additionally
// require connectivity and identity, so a delete that cannot reach the
// remote is refused instead of silently resurrecting on the next sync.
type Repository struct {
	logger       *slog.Logger
	cache        CacheStore
	remote       SyncChannel // nil when the session has no sync backend
	writeTimeout time.Duration
	online       atomic.Bool
	ids          *idGenerator

	mu         sync.Mutex
	tasks      []models.Task
	completion models.CompletionStatus
	userID     string

	subCancel context.CancelFunc
	subWG     sync.WaitGroup
}

// NewRepository wires a repository over its two stores. remote may be nil
// for a purely local session.
func NewRepository(cache CacheStore, remote SyncChannel, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{
		logger:       logger,
		cache:        cache,
		remote:       remote,
		writeTimeout: DefaultWriteTimeout,
		ids:          newIDGenerator(),
		completion:   models.CompletionStatus{},
	}
	r.online.Store(true)
	return r
}

// SetWriteTimeout overrides the per-write remote timeout.
func (r *Repository) SetWriteTimeout(d time.Duration) {
	if d > 0 {
		r.writeTimeout = d
	}
}

// SetOnline feeds the external connectivity signal. It gates delete only;
// no data moves on a transition.
func (r *Repository) SetOnline(online bool) {
	r.online.Store(online)
}

// Online reports the last fed connectivity state.
func (r *Repository) Online() bool {
	return r.online.Load()
}

// Identity returns the current user id, or "" for an anonymous session.
func (r *Repository) Identity() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userID
}

// Load seeds the in-memory state from the cache. A missing or unreadable
// entry reads as empty, never as a failure. Call SetIdentity afterwards to
// start remote sync.
func (r *Repository) Load(ctx context.Context) error {
	tasks, err := r.cache.LoadTasks(ctx)
	if err != nil {
		r.logger.Warn("task cache unreadable, starting empty", slog.String("error", err.Error()))
		tasks = nil
	}
	status, err := r.cache.LoadCompletion(ctx)
	if err != nil {
		r.logger.Warn("completion cache unreadable, starting empty", slog.String("error", err.Error()))
		status = nil
	}
	if status == nil {
		status = models.CompletionStatus{}
	}

	r.mu.Lock()
	r.tasks = tasks
	r.completion = status
	for _, t := range tasks {
		r.ids.Observe(t.ID)
	}
	r.mu.Unlock()
	return nil
}

// SetIdentity switches the session's user. Any previous subscription is
// cancelled; a non-empty id with a sync backend starts a new one. The
// subscription lives until the next transition or Close.
func (r *Repository) SetIdentity(ctx context.Context, userID string) error {
	r.stopSubscription()

	r.mu.Lock()
	r.userID = userID
	r.mu.Unlock()

	if userID == "" || r.remote == nil {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := r.remote.Subscribe(subCtx, userID)
	if err != nil {
		cancel()
		return err
	}
	r.mu.Lock()
	r.subCancel = cancel
	r.mu.Unlock()

	r.subWG.Add(1)
	go func() {
		defer r.subWG.Done()
		for doc := range stream {
			r.applyRemote(subCtx, doc)
		}
	}()
	return nil
}

// applyRemote replaces the in-memory list and the cache mirror with the
// remote record verbatim (last-writer-wins, no field merge). A nil document
// means no record exists yet and the local state is retained. Echoes of this
// session's own writes replay as no-ops.
func (r *Repository) applyRemote(ctx context.Context, doc *models.Document) {
	if doc == nil {
		return
	}

	r.mu.Lock()
	if tasksEqual(r.tasks, doc.Tasks) {
		r.mu.Unlock()
		return
	}
	r.tasks = cloneTasks(doc.Tasks)
	for _, t := range r.tasks {
		r.ids.Observe(t.ID)
	}
	tasks := cloneTasks(r.tasks)
	r.mu.Unlock()

	if err := r.cache.SaveTasks(ctx, tasks); err != nil {
		r.logger.Warn("cache mirror write failed", slog.String("error", err.Error()))
	}
	r.logger.Info("remote push applied", slog.Int("tasks", len(tasks)))
}

// Add validates the request, constructs the task and writes it through the
// cache and - when an identity is present - the remote record. The local
// reflection happens first; a remote failure is returned alongside the
// created task so the caller sees the divergence (local-first,
// remote-eventual).
func (r *Repository) Add(ctx context.Context, req AddRequest) (models.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return models.Task{}, ErrTitleRequired
	}
	if req.Time == "" {
		return models.Task{}, ErrTimeRequired
	}

	task := models.Task{
		ID:          r.ids.Next(),
		Title:       title,
		Time:        req.Time,
		Description: strings.TrimSpace(req.Description),
		Days:        []string{},
	}
	switch req.Kind {
	case models.KindRecurring:
		if len(req.Days) == 0 {
			return models.Task{}, ErrNoDaysSelected
		}
		for _, day := range req.Days {
			if !models.ValidWeekday(day) {
				return models.Task{}, ErrUnknownWeekday
			}
		}
		task.Days = append([]string(nil), req.Days...)
		task.Color = models.ImportanceColors[clampImportance(req.ImportanceIndex)].Color
	case models.KindExactDate:
		if req.Date == "" {
			return models.Task{}, ErrNoDateSelected
		}
		if _, err := models.ParseISODate(req.Date); err != nil {
			return models.Task{}, ErrNoDateSelected
		}
		task.Date = req.Date
		task.Color = models.ExactDateColor
	default:
		return models.Task{}, ErrUnknownKind
	}

	r.mu.Lock()
	r.tasks = append(cloneTasks(r.tasks), task)
	tasks := cloneTasks(r.tasks)
	userID := r.userID
	r.mu.Unlock()

	return task, r.writeThrough(ctx, "add", task.ID, userID, tasks)
}

// Edit replaces a task's mutable fields: title, description and time. The
// calendar binding and color are fixed at creation. Write-through follows
// the same local-first policy as Add.
func (r *Repository) Edit(ctx context.Context, id int64, title, description, clock string) (models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Task{}, ErrTitleRequired
	}
	if clock == "" {
		return models.Task{}, ErrTimeRequired
	}

	r.mu.Lock()
	idx := -1
	for i, t := range r.tasks {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return models.Task{}, ErrTaskNotFound
	}
	tasks := cloneTasks(r.tasks)
	tasks[idx].Title = title
	tasks[idx].Description = strings.TrimSpace(description)
	tasks[idx].Time = clock
	r.tasks = tasks
	edited := tasks[idx]
	tasks = cloneTasks(tasks)
	userID := r.userID
	r.mu.Unlock()

	return edited, r.writeThrough(ctx, "edit", id, userID, tasks)
}

// Delete removes a task and its completion entries. It requires both
// connectivity and an identity, and the remote write must acknowledge before
// any local state changes: on failure the session is exactly as it was.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if !r.online.Load() {
		return ErrOffline
	}

	r.mu.Lock()
	userID := r.userID
	filtered := make([]models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.ID != id {
			filtered = append(filtered, t)
		}
	}
	found := len(filtered) != len(r.tasks)
	r.mu.Unlock()

	if userID == "" || r.remote == nil {
		return ErrNoIdentity
	}
	if !found {
		return ErrTaskNotFound
	}

	if err := r.put(ctx, userID, filtered); err != nil {
		return &RemoteError{Op: "delete", Err: err}
	}

	r.mu.Lock()
	r.tasks = filtered
	r.completion = PurgeCompletion(r.completion, id)
	tasks := cloneTasks(r.tasks)
	status := r.completion
	r.mu.Unlock()

	if err := r.cache.SaveTasks(ctx, tasks); err != nil {
		r.logger.Warn("cache write failed after delete", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	if err := r.cache.SaveCompletion(ctx, status); err != nil {
		r.logger.Warn("completion cache write failed after delete", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	return nil
}

// ToggleComplete flips the done flag for one task occurrence. It is always
// permitted: completion state is cache-only and never blocked by being
// offline. Returns the new flag.
func (r *Repository) ToggleComplete(ctx context.Context, id int64, date string) (bool, error) {
	if _, err := models.ParseISODate(date); err != nil {
		return false, ErrNoDateSelected
	}

	r.mu.Lock()
	found := false
	for _, t := range r.tasks {
		if t.ID == id {
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return false, ErrTaskNotFound
	}
	r.completion = ToggleCompletion(r.completion, id, date)
	status := r.completion
	done := IsCompleted(status, id, date)
	r.mu.Unlock()

	if err := r.cache.SaveCompletion(ctx, status); err != nil {
		r.logger.Warn("completion cache write failed", slog.Int64("id", id), slog.String("error", err.Error()))
	}
	return done, nil
}

// Tasks returns a snapshot of the current task list in insertion order.
func (r *Repository) Tasks() []models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneTasks(r.tasks)
}

// Completion returns the current completion map. The map is copy-on-write,
// so the snapshot stays stable while the repository moves on.
func (r *Repository) Completion() models.CompletionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completion
}

// IsDone reports the completion flag for one task occurrence.
func (r *Repository) IsDone(id int64, date string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return IsCompleted(r.completion, id, date)
}

// Close cancels the remote subscription and waits for it to drain.
func (r *Repository) Close() {
	r.stopSubscription()
}

func (r *Repository) stopSubscription() {
	r.mu.Lock()
	cancel := r.subCancel
	r.subCancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		r.subWG.Wait()
	}
}

// writeThrough persists the list to the cache unconditionally and to the
// remote record when a user is signed in. A remote failure does not undo the
// local reflection; it is logged and returned so the caller can surface it.
func (r *Repository) writeThrough(ctx context.Context, op string, id int64, userID string, tasks []models.Task) error {
	if err := r.cache.SaveTasks(ctx, tasks); err != nil {
		r.logger.Warn("cache write failed", slog.String("op", op), slog.Int64("id", id), slog.String("error", err.Error()))
	}
	if userID == "" || r.remote == nil {
		return nil
	}
	if err := r.put(ctx, userID, tasks); err != nil {
		r.logger.Warn("task not synced", slog.String("op", op), slog.Int64("id", id), slog.String("error", err.Error()))
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (r *Repository) put(ctx context.Context, userID string, tasks []models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	return r.remote.Put(ctx, userID, models.Document{Tasks: tasks})
}

func cloneTasks(tasks []models.Task) []models.Task {
	if tasks == nil {
		return nil
	}
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	return out
}

func tasksEqual(a, b []models.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Title != b[i].Title ||
			a[i].Time != b[i].Time || a[i].Description != b[i].Description ||
			a[i].Color != b[i].Color || a[i].Date != b[i].Date {
			return false
		}
		if len(a[i].Days) != len(b[i].Days) {
			return false
		}
		for j := range a[i].Days {
			if a[i].Days[j] != b[i].Days[j] {
				return false
			}
		}
	}
	return true
}

func clampImportance(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(models.ImportanceColors) {
		return len(models.ImportanceColors) - 1
	}
	return i
}
