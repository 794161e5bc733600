// Package listing keeps the client-side state of an infinitely scrolling,
// filterable task list.
package listing

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/session"
)

// Lister fetches one page of the owner's tasks.
type Lister interface {
	List(ctx context.Context, ownerID string, filter models.TaskFilter, page, pageSize int) (models.TaskPage, error)
}

type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseLoadingInitial Phase = "loading-initial"
	PhaseLoadingMore    Phase = "loading-more"
	PhaseReady          Phase = "ready"
)

// State is a snapshot of the list.
type State struct {
	Filter      models.TaskFilter
	Page        int
	PageSize    int
	Tasks       []models.Task
	HasMore     bool
	TotalCount  int64
	Phase       Phase
	Loading     bool
	LoadingMore bool
	Err         error
	// Version increases with every published change.
	Version uint64
}

// Option configures a Controller.
type Option func(*Controller)

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithDebounce sets how long search input must settle before it is applied.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot after every state change.
// The callback runs outside the controller's lock and may call back into it.
// A snapshot is skipped when a newer one has already been handed out, so
// observed versions only increase.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller owns the filter, page cursor and accumulated results of a task list.
// Only the most recently issued request may write results; responses of
// superseded requests are dropped.
type Controller struct {
	lister   Lister
	tracker  *session.Tracker
	pageSize int
	debounce time.Duration
	logger   *zap.Logger
	onChange func(State)

	mu            sync.Mutex
	state         State
	pendingSearch string
	searchTimer   *time.Timer
	generation    uint64
	cancel        context.CancelFunc
	ownerID       string
	started       bool
	closed        bool
	unsubscribe   func()
	inflight      sync.WaitGroup
	version       uint64

	delivered atomic.Uint64
}

// New creates a Controller. Nothing is fetched until Start.
func New(lister Lister, tracker *session.Tracker, opts ...Option) *Controller {
	c := &Controller{
		lister:   lister,
		tracker:  tracker,
		pageSize: constants.DefaultPageSize,
		debounce: constants.SearchDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Page: 1, PageSize: c.pageSize, Tasks: []models.Task{}, Phase: PhaseIdle}
	return c
}

// Start subscribes to session changes and loads the first page.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	unsubscribe := c.tracker.Subscribe(c.onSessionEvent)

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.resetLocked(principalID(c.tracker.Current()))
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

// SetSearch records new search input; it takes effect after the debounce delay.
func (c *Controller) SetSearch(search string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pendingSearch = strings.TrimSpace(search)
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	c.searchTimer = time.AfterFunc(c.debounce, c.flushSearch)
}

// SetStatus applies a status filter immediately.
func (c *Controller) SetStatus(status models.Match[models.TaskStatus]) {
	c.changeFilter(func(f *models.TaskFilter) bool {
		if f.Status == status {
			return false
		}
		f.Status = status
		return true
	})
}

// SetPriority applies a priority filter immediately.
func (c *Controller) SetPriority(priority models.Match[models.TaskPriority]) {
	c.changeFilter(func(f *models.TaskFilter) bool {
		if f.Priority == priority {
			return false
		}
		f.Priority = priority
		return true
	})
}

// Refresh reloads from page one with the current filter, e.g. after a create or update.
func (c *Controller) Refresh() {
	c.changeFilter(func(*models.TaskFilter) bool { return true })
}

// LoadMore requests the next page. It reports whether a request was issued:
// only a ready list with more rows and nothing in flight can advance.
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	if c.closed || c.ownerID == "" || c.state.Phase != PhaseReady || !c.state.HasMore {
		c.mu.Unlock()
		return false
	}
	c.state.Page++
	c.state.Phase = PhaseLoadingMore
	c.state.LoadingMore = true
	c.state.Err = nil
	c.issueLocked(false)
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return true
}

// Remove splices a deleted task out of the list without refetching.
func (c *Controller) Remove(id string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	removed := false
	for i, t := range c.state.Tasks {
		if t.ID == id {
			c.state.Tasks = append(c.state.Tasks[:i:i], c.state.Tasks[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		c.mu.Unlock()
		return
	}
	if c.state.TotalCount > 0 {
		c.state.TotalCount--
	}
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

// State returns a snapshot of the list.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until no fetch is in flight.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close cancels pending work and detaches from the session. Later responses are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.searchTimer != nil {
		c.searchTimer.Stop()
	}
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) flushSearch() {
	c.mu.Lock()
	search := c.pendingSearch
	c.mu.Unlock()

	c.changeFilter(func(f *models.TaskFilter) bool {
		if f.Search == search {
			return false
		}
		f.Search = search
		return true
	})
}

func (c *Controller) changeFilter(apply func(*models.TaskFilter) bool) {
	c.mu.Lock()
	if c.closed || !apply(&c.state.Filter) {
		c.mu.Unlock()
		return
	}
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.resetLocked(c.ownerID)
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Controller) onSessionEvent(e session.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	switch e.Kind {
	case session.EventSignedOut:
		c.resetLocked("")
	case session.EventSignedIn, session.EventUserUpdated:
		owner := principalID(e.Principal)
		if e.Kind == session.EventUserUpdated && owner == c.ownerID {
			c.mu.Unlock()
			return
		}
		c.resetLocked(owner)
	default:
		c.mu.Unlock()
		return
	}
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

// resetLocked discards results and, when there is an owner, loads page one.
func (c *Controller) resetLocked(ownerID string) {
	c.ownerID = ownerID
	c.state.Page = 1
	c.state.Tasks = []models.Task{}
	c.state.HasMore = false
	c.state.TotalCount = 0
	c.state.LoadingMore = false
	c.state.Err = nil

	if ownerID == "" {
		c.generation++
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		c.state.Phase = PhaseIdle
		c.state.Loading = false
		return
	}

	c.state.Phase = PhaseLoadingInitial
	c.state.Loading = true
	c.issueLocked(true)
}

// issueLocked supersedes any in-flight request and fetches the current page
func (c *Controller) issueLocked(initial bool) {
	c.generation++
	gen := c.generation
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	owner, filter, page := c.ownerID, c.state.Filter, c.state.Page
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()
		result, err := c.lister.List(ctx, owner, filter, page, c.pageSize)
		c.complete(gen, initial, result, err)
	}()
}

func (c *Controller) complete(gen uint64, initial bool, result models.TaskPage, err error) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("dropping superseded task page", zap.Uint64("generation", gen))
		return
	}
	c.cancel = nil
	c.state.Loading = false
	c.state.LoadingMore = false
	c.state.Phase = PhaseReady

	switch {
	case err != nil && initial:
		c.logger.Warn("failed to load tasks", zap.Error(err))
		c.state.Tasks = []models.Task{}
		c.state.TotalCount = 0
		c.state.HasMore = false
		c.state.Err = err
	case err != nil:
		c.logger.Warn("failed to load more tasks", zap.Int("page", c.state.Page), zap.Error(err))
		c.state.Page--
		c.state.HasMore = false
		c.state.Err = err
	case initial:
		c.state.Tasks = append([]models.Task{}, result.Tasks...)
		c.state.TotalCount = result.TotalCount
		c.state.HasMore = result.HasMore
	default:
		c.state.Tasks = append(c.state.Tasks, result.Tasks...)
		c.state.TotalCount = result.TotalCount
		c.state.HasMore = result.HasMore
	}
	snapshot := c.publishLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

// publishLocked records a state change and returns its snapshot
func (c *Controller) publishLocked() State {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.Version = c.version
	s.Tasks = append([]models.Task(nil), c.state.Tasks...)
	if s.Tasks == nil {
		s.Tasks = []models.Task{}
	}
	return s
}

func (c *Controller) notify(s State) {
	if c.onChange == nil {
		return
	}
	for {
		last := c.delivered.Load()
		if s.Version <= last {
			return
		}
		if c.delivered.CompareAndSwap(last, s.Version) {
			break
		}
	}
	c.onChange(s)
}

func principalID(p *session.Principal) string {
	if p == nil {
		return ""
	}
	return p.UserID
}
