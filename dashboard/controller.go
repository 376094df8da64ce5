package dashboard

import (
	"context"
	"errdash/config"
	"errdash/models"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ResolvePrompt is shown before resolving an error
const ResolvePrompt = "Please enter resolution details:"

var (
	ErrNotLoaded      = errors.New("no batch loaded yet")
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrRecordNotFound = errors.New("error record not in current batch")
	ErrNoOpenDetail   = errors.New("no error detail is open")
	ErrUnknownStatus  = errors.New("unknown status")
	ErrNotOpenDetail  = errors.New("error is not the open detail")
)

// Fetcher is the backend the controller talks to
type Fetcher interface {
	ListErrors(ctx context.Context, status, source string) ([]models.ErrorRecord, error)
	ResolveError(ctx context.Context, id int64, resolution string) (*models.ActionResponse, error)
	Sync(ctx context.Context, force bool) (*models.SyncResponse, error)
	Stats(ctx context.Context) (*models.ErrorStats, error)
	ReportError(ctx context.Context, report models.ErrorReport) (*models.ActionResponse, error)
}

// Prompter asks the user for free text; ok is false when cancelled
type Prompter interface {
	Prompt(message string) (text string, ok bool)
}

// Alerter shows a blocking notice to the user
type Alerter interface {
	Alert(message string)
}

// DiagnosticSink receives failures that are logged but never alerted
type DiagnosticSink interface {
	Error(source, message string, err error, contextData map[string]interface{})
	Warn(source, message, detail string)
}

// ResolveOutcome is the result of one resolve attempt
type ResolveOutcome int

const (
	ResolveAborted ResolveOutcome = iota
	ResolveCompleted
	ResolveRejected
	ResolveFailed
)

func (o ResolveOutcome) String() string {
	switch o {
	case ResolveCompleted:
		return "completed"
	case ResolveRejected:
		return "rejected"
	case ResolveFailed:
		return "failed"
	default:
		return "aborted"
	}
}

// Options tune a Controller
type Options struct {
	SyncSuccessMarker string
	Diagnostics       DiagnosticSink
}

// Controller is one dashboard view: the last fetched batch plus the view
// state built on top of it.
type Controller struct {
	fetcher Fetcher
	diag    DiagnosticSink
	marker  string
	button  *SyncButton

	mu           sync.RWMutex
	batch        []models.ErrorRecord
	loaded       bool
	activeStatus string
	filters      Filters
	openID       int64
	stats        *models.ErrorStats
	lastActivity time.Time
	listeners    map[int]chan struct{}
	nextListener int
}

// NewController creates a controller with the "all" tab active
func NewController(fetcher Fetcher, opts Options) *Controller {
	marker := opts.SyncSuccessMarker
	if marker == "" {
		marker = config.DefaultSyncSuccessMarker
	}
	return &Controller{
		fetcher:      fetcher,
		diag:         opts.Diagnostics,
		marker:       marker,
		button:       newSyncButton(),
		activeStatus: models.StatusAll,
		lastActivity: time.Now(),
		listeners:    make(map[int]chan struct{}),
	}
}

func (c *Controller) logFailure(source, message string, err error, ctx map[string]interface{}) {
	if c.diag != nil {
		c.diag.Error(source, message, err, ctx)
	}
}

func (c *Controller) touch() {
	c.lastActivity = time.Now()
}

// LastActivity is when the view was last used
func (c *Controller) LastActivity() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

// LoadErrors fetches the records for status using the current source filter.
// On failure the previous batch stays in place and the error is only logged.
func (c *Controller) LoadErrors(ctx context.Context, status string) error {
	status, ok := models.NormalizeStatus(status)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownStatus, status)
	}
	c.mu.RLock()
	source := c.filters.SourceParam()
	c.mu.RUnlock()

	batch, err := c.fetcher.ListErrors(ctx, status, source)
	if err != nil {
		c.logFailure("load", "Error loading errors", err, map[string]interface{}{
			"status": status,
			"source": source,
		})
		return err
	}
	c.checkConsistency(batch)

	c.mu.Lock()
	c.batch = batch
	c.loaded = true
	c.touch()
	c.mu.Unlock()

	c.notify()
	return nil
}

// checkConsistency warns about records whose status disagrees with their
// resolution fields. They are still shown.
func (c *Controller) checkConsistency(batch []models.ErrorRecord) {
	if c.diag == nil {
		return
	}
	for _, rec := range batch {
		if !rec.Consistent() {
			c.diag.Warn("load", "Inconsistent error record",
				fmt.Sprintf("id=%d status=%s resolution_set=%t resolution_time_set=%t",
					rec.ID, rec.Status, rec.HasResolution(), rec.ResolutionTime != nil && !rec.ResolutionTime.IsZero()))
		}
	}
}

// Reload repeats the fetch for the active tab
func (c *Controller) Reload(ctx context.Context) error {
	return c.LoadErrors(ctx, c.ActiveStatus())
}

// Navigate makes status the single active tab and loads it. Status is
// matched case-insensitively; anything but all/open/resolved is rejected
// and leaves the view unchanged.
func (c *Controller) Navigate(ctx context.Context, status string) error {
	status, ok := models.NormalizeStatus(status)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownStatus, status)
	}
	c.mu.Lock()
	c.activeStatus = status
	c.touch()
	c.mu.Unlock()
	return c.LoadErrors(ctx, status)
}

// ActiveStatus is the status of the active tab
func (c *Controller) ActiveStatus() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeStatus
}

// NavLinks lists the tabs with exactly one marked active
func (c *Controller) NavLinks() []NavLink {
	active := c.ActiveStatus()
	links := []NavLink{
		{Status: models.StatusAll, Label: "All Errors"},
		{Status: models.StatusOpen, Label: "Open"},
		{Status: models.StatusResolved, Label: "Resolved"},
	}
	for i := range links {
		links[i].Active = links[i].Status == active
	}
	return links
}

// SetFilters replaces the filters. No fetch happens.
func (c *Controller) SetFilters(f Filters) {
	c.mu.Lock()
	c.filters = f
	c.touch()
	c.mu.Unlock()
}

// Filters returns the current filters
func (c *Controller) Filters() Filters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filters
}

// Batch returns a copy of the last fetched records
func (c *Controller) Batch() []models.ErrorRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ErrorRecord, len(c.batch))
	copy(out, c.batch)
	return out
}

// Loaded reports whether any fetch has succeeded
func (c *Controller) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Cards projects the batch through the current filters
func (c *Controller) Cards() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filters.Apply(c.batch)
}

func (c *Controller) findLocked(id int64) (models.ErrorRecord, bool) {
	for _, rec := range c.batch {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.ErrorRecord{}, false
}

// OpenDetail opens the detail view for id and remembers it as the open record
func (c *Controller) OpenDetail(id int64) (Detail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return Detail{}, ErrNotLoaded
	}
	rec, ok := c.findLocked(id)
	if !ok {
		return Detail{}, fmt.Errorf("%w: %d", ErrRecordNotFound, id)
	}
	c.openID = id
	c.touch()
	return NewDetail(rec), nil
}

// CloseDetail dismisses the detail view
func (c *Controller) CloseDetail() {
	c.mu.Lock()
	c.openID = 0
	c.mu.Unlock()
}

// OpenDetailID returns the id of the open record, if any
func (c *Controller) OpenDetailID() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.openID, c.openID != 0
}

func (c *Controller) openDetail() *Detail {
	if c.openID == 0 {
		return nil
	}
	rec, ok := c.findLocked(c.openID)
	if !ok {
		return nil
	}
	d := NewDetail(rec)
	return &d
}

// SubmitOpenResolution resolves id only when it is the open detail
func (c *Controller) SubmitOpenResolution(ctx context.Context, id int64, resolution string) (ResolveOutcome, error) {
	if open, ok := c.OpenDetailID(); !ok || open != id {
		return ResolveAborted, fmt.Errorf("%w: %d", ErrNotOpenDetail, id)
	}
	return c.SubmitResolution(ctx, id, resolution)
}

// ResolveOpen resolves the record shown in the detail view
func (c *Controller) ResolveOpen(ctx context.Context, prompter Prompter) (ResolveOutcome, error) {
	id, ok := c.OpenDetailID()
	if !ok {
		return ResolveAborted, ErrNoOpenDetail
	}
	return c.Resolve(ctx, id, prompter)
}

// Resolve asks for resolution text and submits it. A cancelled or empty
// prompt makes no request and leaves the detail open.
func (c *Controller) Resolve(ctx context.Context, id int64, prompter Prompter) (ResolveOutcome, error) {
	text, ok := prompter.Prompt(ResolvePrompt)
	if !ok || text == "" {
		return ResolveAborted, nil
	}
	return c.SubmitResolution(ctx, id, text)
}

// SubmitResolution posts already collected resolution text
func (c *Controller) SubmitResolution(ctx context.Context, id int64, resolution string) (ResolveOutcome, error) {
	if resolution == "" {
		return ResolveAborted, nil
	}
	resp, err := c.fetcher.ResolveError(ctx, id, resolution)
	if err != nil {
		c.logFailure("resolve", "Error resolving error", err, map[string]interface{}{"error_id": id})
		return ResolveFailed, err
	}
	if !resp.Succeeded() {
		c.logFailure("resolve", "Error resolving error", fmt.Errorf("backend status %q: %s", resp.Status, resp.Message),
			map[string]interface{}{"error_id": id})
		return ResolveRejected, nil
	}

	c.mu.Lock()
	if c.openID == id {
		c.openID = 0
	}
	c.touch()
	c.mu.Unlock()

	// reload failures are already logged by LoadErrors
	_ = c.Reload(ctx)
	return ResolveCompleted, nil
}

// SyncState is the current sync button state
func (c *Controller) SyncState() ButtonState {
	return c.button.State()
}

// Sync triggers a forced backend sync and alerts its outcome. The button is
// disabled for the duration; a press while disabled returns ErrSyncInProgress.
func (c *Controller) Sync(ctx context.Context, alerter Alerter) (SyncOutcome, error) {
	if !c.button.begin() {
		return SyncOutcome{}, ErrSyncInProgress
	}
	defer c.button.settle()

	resp, err := c.fetcher.Sync(ctx, true)
	outcome := classifySync(resp, err, c.marker)
	if err != nil {
		c.logFailure("sync", "Sync error", err, nil)
	}
	if alerter != nil {
		alerter.Alert(outcome.Alert)
	}
	if outcome.Reload {
		c.mu.Lock()
		c.activeStatus = models.StatusAll
		c.mu.Unlock()
		_ = c.LoadErrors(ctx, models.StatusAll)
	}
	return outcome, nil
}

// RefreshStats fetches backend counters. Failures are only logged.
func (c *Controller) RefreshStats(ctx context.Context) (*models.ErrorStats, error) {
	stats, err := c.fetcher.Stats(ctx)
	if err != nil {
		c.logFailure("stats", "Error loading stats", err, nil)
		return nil, err
	}
	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
	return stats, nil
}

// Stats returns the last fetched counters, nil before the first success
func (c *Controller) Stats() *models.ErrorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Report submits a manually logged error and reloads the active tab
func (c *Controller) Report(ctx context.Context, report models.ErrorReport) (int64, error) {
	resp, err := c.fetcher.ReportError(ctx, report)
	if err != nil {
		c.logFailure("report", "Error reporting error", err, map[string]interface{}{"error_type": report.ErrorType})
		return 0, err
	}
	if !resp.Succeeded() {
		err := fmt.Errorf("backend status %q: %s", resp.Status, resp.Message)
		c.logFailure("report", "Error reporting error", err, nil)
		return 0, err
	}
	_ = c.Reload(ctx)
	return resp.ErrorID, nil
}

// Page assembles the full view
func (c *Controller) Page(title, wsPath, version string) Page {
	nav := c.NavLinks()
	button := c.button.State()

	c.mu.RLock()
	defer c.mu.RUnlock()
	cards := c.filters.Apply(c.batch)
	return Page{
		Title:   title,
		Nav:     nav,
		Filters: c.filters,
		Sources: distinctSources(c.batch),
		Cards:   cards,
		Visible: CountVisible(cards),
		Stats:   c.stats,
		Detail:  c.openDetail(),
		Button:  button,
		WSPath:  wsPath,
		Version: version,
	}
}

// Subscribe returns a channel signalled after every successful load. The
// returned func releases it.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Subscribers is the number of live Subscribe channels
func (c *Controller) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners)
}

func (c *Controller) notify() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ParseID parses a record id from a path or command argument
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid error id %q", raw)
	}
	return id, nil
}
