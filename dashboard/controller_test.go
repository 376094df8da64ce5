package dashboard

import (
	"context"
	"errdash/apiclient"
	"errdash/models"
	"errors"
	"strings"
	"sync"
	"testing"
)

type fakeFetcher struct {
	mu          sync.Mutex
	batch       []models.ErrorRecord
	listErr     error
	listCalls   []string
	resolveResp *models.ActionResponse
	resolveErr  error
	resolved    []string
	syncResp    *models.SyncResponse
	syncErr     error
	syncCalls   int
	syncHook    func()
	stats       *models.ErrorStats
	statsErr    error
}

func (f *fakeFetcher) ListErrors(ctx context.Context, status, source string) ([]models.ErrorRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, status+"/"+source)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.batch, nil
}

func (f *fakeFetcher) ResolveError(ctx context.Context, id int64, resolution string) (*models.ActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, resolution)
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.resolveResp, nil
}

func (f *fakeFetcher) Sync(ctx context.Context, force bool) (*models.SyncResponse, error) {
	f.mu.Lock()
	f.syncCalls++
	hook := f.syncHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return f.syncResp, f.syncErr
}

func (f *fakeFetcher) Stats(ctx context.Context) (*models.ErrorStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeFetcher) ReportError(ctx context.Context, report models.ErrorReport) (*models.ActionResponse, error) {
	return &models.ActionResponse{Status: "success", ErrorID: 99}, nil
}

func (f *fakeFetcher) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

type recordingSink struct {
	mu       sync.Mutex
	sources  []string
	warnings []string
}

func (s *recordingSink) Error(source, message string, err error, ctx map[string]interface{}) {
	s.mu.Lock()
	s.sources = append(s.sources, source)
	s.mu.Unlock()
}

func (s *recordingSink) Warn(source, message, detail string) {
	s.mu.Lock()
	s.warnings = append(s.warnings, detail)
	s.mu.Unlock()
}

type stubPrompter struct {
	text  string
	ok    bool
	asked string
}

func (p *stubPrompter) Prompt(message string) (string, bool) {
	p.asked = message
	return p.text, p.ok
}

type recordingAlerter struct {
	alerts []string
}

func (a *recordingAlerter) Alert(message string) {
	a.alerts = append(a.alerts, message)
}

func sampleBatch() []models.ErrorRecord {
	return []models.ErrorRecord{
		{ID: 1, ErrorType: "DatabaseConnection", AffectedComponent: "Database", Severity: models.SeverityHigh, Status: models.StatusOpen, Source: "inwise"},
		{ID: 2, ErrorType: "SlowQuery", AffectedComponent: "Reports", Severity: models.SeverityLow, Status: models.StatusOpen, Source: "manual"},
		{ID: 3, ErrorType: "APITimeout", AffectedComponent: "Gateway", Severity: models.SeverityHigh, Status: models.StatusResolved, Source: "inwise", Resolution: "raised timeout"},
	}
}

func newTestController(f *fakeFetcher, sink DiagnosticSink) *Controller {
	return NewController(f, Options{Diagnostics: sink})
}

func TestController_LoadErrors_UsesSourceFilter(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)

	if err := c.LoadErrors(context.Background(), ""); err != nil {
		t.Fatalf("LoadErrors: %v", err)
	}
	c.SetFilters(Filters{Source: "manual"})
	if err := c.LoadErrors(context.Background(), models.StatusOpen); err != nil {
		t.Fatalf("LoadErrors: %v", err)
	}

	want := []string{"all/all", "open/manual"}
	if strings.Join(f.listCalls, ",") != strings.Join(want, ",") {
		t.Fatalf("list calls = %v, want %v", f.listCalls, want)
	}
}

func TestController_LoadFailureKeepsBatchAndLogsSilently(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	sink := &recordingSink{}
	c := newTestController(f, sink)
	if err := c.LoadErrors(context.Background(), models.StatusAll); err != nil {
		t.Fatalf("LoadErrors: %v", err)
	}

	f.listErr = &apiclient.APIError{StatusCode: 502}
	if err := c.LoadErrors(context.Background(), models.StatusAll); err == nil {
		t.Fatalf("expected error")
	}
	if got := len(c.Cards()); got != 3 {
		t.Fatalf("expected prior batch to stay rendered, got %d cards", got)
	}
	if len(sink.sources) != 1 || sink.sources[0] != "load" {
		t.Fatalf("expected one load diagnostic, got %v", sink.sources)
	}
}

func TestController_CardsMatchBatchOneToOne(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)
	_ = c.LoadErrors(context.Background(), models.StatusAll)
	c.SetFilters(Filters{Severity: models.SeverityHigh})

	cards := c.Cards()
	if len(cards) != len(f.batch) {
		t.Fatalf("cards = %d, batch = %d", len(cards), len(f.batch))
	}
	for i, card := range cards {
		if card.Record.ID != f.batch[i].ID {
			t.Fatalf("card %d id = %d, want %d", i, card.Record.ID, f.batch[i].ID)
		}
	}
	if got := CountVisible(cards); got != 2 {
		t.Fatalf("visible = %d, want 2", got)
	}
	if f.listCount() != 1 {
		t.Fatalf("filter change must not fetch")
	}
}

func TestController_NavigateMarksSingleActive(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)
	if err := c.Navigate(context.Background(), models.StatusResolved); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	active := 0
	for _, link := range c.NavLinks() {
		if link.Active {
			active++
			if link.Status != models.StatusResolved {
				t.Fatalf("wrong active link %q", link.Status)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active link, got %d", active)
	}
	if f.listCalls[0] != "resolved/all" {
		t.Fatalf("unexpected fetch %v", f.listCalls)
	}
}

func TestController_NavigateNormalizesStatus(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)

	if err := c.Navigate(context.Background(), "Open"); err != nil {
		t.Fatalf("Navigate(Open): %v", err)
	}
	if got := c.ActiveStatus(); got != models.StatusOpen {
		t.Fatalf("active status = %q", got)
	}

	err := c.Navigate(context.Background(), "bogus")
	if !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
	if got := c.ActiveStatus(); got != models.StatusOpen {
		t.Fatalf("unknown status must not change the tab, got %q", got)
	}
	if f.listCount() != 1 {
		t.Fatalf("unknown status must not fetch, calls %v", f.listCalls)
	}

	active := 0
	for _, link := range c.NavLinks() {
		if link.Active {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active link, got %d", active)
	}
}

func TestController_LoadWarnsOnInconsistentRecords(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	sink := &recordingSink{}
	c := newTestController(f, sink)

	if err := c.LoadErrors(context.Background(), models.StatusAll); err != nil {
		t.Fatalf("LoadErrors: %v", err)
	}
	// record 3 is resolved without a resolution time
	if len(sink.warnings) != 1 || !strings.Contains(sink.warnings[0], "id=3") {
		t.Fatalf("warnings = %v", sink.warnings)
	}
	if len(c.Batch()) != 3 {
		t.Fatalf("inconsistent records must still be kept")
	}
	if len(sink.sources) != 0 {
		t.Fatalf("no error diagnostics expected, got %v", sink.sources)
	}
}

func TestController_SubmitOpenResolutionRequiresOpenDetail(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch(), resolveResp: &models.ActionResponse{Status: "success"}}
	c := newTestController(f, nil)
	_ = c.LoadErrors(context.Background(), models.StatusAll)

	if _, err := c.SubmitOpenResolution(context.Background(), 1, "fixed"); !errors.Is(err, ErrNotOpenDetail) {
		t.Fatalf("expected ErrNotOpenDetail without open detail, got %v", err)
	}
	if _, err := c.OpenDetail(2); err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}
	if _, err := c.SubmitOpenResolution(context.Background(), 1, "fixed"); !errors.Is(err, ErrNotOpenDetail) {
		t.Fatalf("expected ErrNotOpenDetail for another id, got %v", err)
	}
	if len(f.resolved) != 0 {
		t.Fatalf("no resolve call expected, got %v", f.resolved)
	}

	outcome, err := c.SubmitOpenResolution(context.Background(), 2, "fixed")
	if err != nil || outcome != ResolveCompleted {
		t.Fatalf("outcome = %v %v", outcome, err)
	}
	if _, ok := c.OpenDetailID(); ok {
		t.Fatalf("detail should close after resolve")
	}
}

func TestController_OpenDetail(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)

	if _, err := c.OpenDetail(1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	_ = c.LoadErrors(context.Background(), models.StatusAll)

	d, err := c.OpenDetail(1)
	if err != nil || !d.ShowResolve {
		t.Fatalf("open record should show resolve: %+v %v", d, err)
	}
	d, err = c.OpenDetail(3)
	if err != nil || d.ShowResolve {
		t.Fatalf("resolved record should hide resolve: %+v %v", d, err)
	}
	if id, ok := c.OpenDetailID(); !ok || id != 3 {
		t.Fatalf("open id = %d %v", id, ok)
	}
	if _, err := c.OpenDetail(42); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestController_ResolveCancelledPromptMakesNoCall(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)
	_ = c.LoadErrors(context.Background(), models.StatusAll)
	_, _ = c.OpenDetail(1)

	for _, p := range []*stubPrompter{{ok: false}, {text: "", ok: true}} {
		outcome, err := c.ResolveOpen(context.Background(), p)
		if err != nil || outcome != ResolveAborted {
			t.Fatalf("expected abort, got %v %v", outcome, err)
		}
		if p.asked != ResolvePrompt {
			t.Fatalf("prompt text = %q", p.asked)
		}
	}
	if len(f.resolved) != 0 {
		t.Fatalf("no resolve request expected, got %v", f.resolved)
	}
	if _, ok := c.OpenDetailID(); !ok {
		t.Fatalf("detail must stay open")
	}
}

func TestController_ResolveSuccessClosesAndReloadsActive(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch(), resolveResp: &models.ActionResponse{Status: "success"}}
	c := newTestController(f, nil)
	_ = c.Navigate(context.Background(), models.StatusOpen)
	_, _ = c.OpenDetail(1)

	outcome, err := c.ResolveOpen(context.Background(), &stubPrompter{text: "restarted pool", ok: true})
	if err != nil || outcome != ResolveCompleted {
		t.Fatalf("got %v %v", outcome, err)
	}
	if _, ok := c.OpenDetailID(); ok {
		t.Fatalf("detail should be closed")
	}
	if f.resolved[0] != "restarted pool" {
		t.Fatalf("resolution = %q", f.resolved[0])
	}
	if last := f.listCalls[len(f.listCalls)-1]; last != "open/all" {
		t.Fatalf("expected reload of active status, got %q", last)
	}
}

func TestController_ResolveRejectedStaysOpen(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch(), resolveResp: &models.ActionResponse{Status: "error", Message: "not found"}}
	sink := &recordingSink{}
	c := newTestController(f, sink)
	_ = c.LoadErrors(context.Background(), models.StatusAll)
	_, _ = c.OpenDetail(2)

	outcome, err := c.ResolveOpen(context.Background(), &stubPrompter{text: "x", ok: true})
	if err != nil || outcome != ResolveRejected {
		t.Fatalf("got %v %v", outcome, err)
	}
	if _, ok := c.OpenDetailID(); !ok {
		t.Fatalf("detail must stay open")
	}
	if f.listCount() != 1 {
		t.Fatalf("no reload expected")
	}
	if len(sink.sources) != 1 || sink.sources[0] != "resolve" {
		t.Fatalf("diagnostics = %v", sink.sources)
	}
}

func TestController_ResolveWithoutOpenDetail(t *testing.T) {
	c := newTestController(&fakeFetcher{}, nil)
	if _, err := c.ResolveOpen(context.Background(), &stubPrompter{text: "x", ok: true}); !errors.Is(err, ErrNoOpenDetail) {
		t.Fatalf("expected ErrNoOpenDetail, got %v", err)
	}
}

func TestController_SyncOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		resp      *models.SyncResponse
		err       error
		wantAlert string
		reload    bool
	}{
		{"skipped", &models.SyncResponse{Status: "skipped", Message: "Already syncing"}, nil, "Already syncing", false},
		{"success", &models.SyncResponse{Status: "success", Message: "Sync completed successfully: 4 errors"}, nil, AlertSyncSucceeded, true},
		{"backend error", &models.SyncResponse{Status: "error", Message: "token expired"}, nil, "Sync failed: token expired", false},
		{"no message", &models.SyncResponse{Status: "error"}, nil, "Sync failed: Unknown error occurred", false},
		{"http 500", nil, &apiclient.APIError{StatusCode: 500}, "Sync failed: HTTP error! status: 500", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{batch: sampleBatch(), syncResp: tt.resp, syncErr: tt.err}
			c := newTestController(f, nil)
			_ = c.Navigate(context.Background(), models.StatusOpen)
			alerter := &recordingAlerter{}

			outcome, err := c.Sync(context.Background(), alerter)
			if err != nil {
				t.Fatalf("Sync: %v", err)
			}
			if len(alerter.alerts) != 1 || alerter.alerts[0] != tt.wantAlert {
				t.Fatalf("alerts = %q, want %q", alerter.alerts, tt.wantAlert)
			}
			if outcome.Reload != tt.reload {
				t.Fatalf("reload = %v, want %v", outcome.Reload, tt.reload)
			}
			wantCalls := 1
			if tt.reload {
				wantCalls = 2
				if last := f.listCalls[len(f.listCalls)-1]; last != "all/all" {
					t.Fatalf("expected reload of all, got %q", last)
				}
			}
			if f.listCount() != wantCalls {
				t.Fatalf("list calls = %d, want %d", f.listCount(), wantCalls)
			}
			if st := c.SyncState(); st.Disabled || st.Label != SyncIdleLabel {
				t.Fatalf("button not restored: %+v", st)
			}
		})
	}
}

func TestController_SyncPressWhileInFlightIgnored(t *testing.T) {
	f := &fakeFetcher{syncResp: &models.SyncResponse{Status: "skipped", Message: "Already syncing"}}
	c := newTestController(f, nil)

	var during ButtonState
	var second error
	f.syncHook = func() {
		during = c.SyncState()
		_, second = c.Sync(context.Background(), nil)
	}

	if _, err := c.Sync(context.Background(), &recordingAlerter{}); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !during.Disabled || during.Label != SyncLoadingLabel {
		t.Fatalf("button during sync = %+v", during)
	}
	if !errors.Is(second, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", second)
	}
	if f.syncCalls != 1 {
		t.Fatalf("sync calls = %d", f.syncCalls)
	}
}

func TestController_CustomSyncMarker(t *testing.T) {
	f := &fakeFetcher{syncResp: &models.SyncResponse{Status: "success", Message: "done: 3 imported"}}
	c := NewController(f, Options{SyncSuccessMarker: "done"})
	outcome, _ := c.Sync(context.Background(), nil)
	if outcome.Kind != SyncSucceeded {
		t.Fatalf("expected success with custom marker, got %v", outcome.Kind)
	}
}

func TestController_StatsFailureIsSilent(t *testing.T) {
	sink := &recordingSink{}
	f := &fakeFetcher{statsErr: errors.New("connection refused")}
	c := newTestController(f, sink)
	if _, err := c.RefreshStats(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if c.Stats() != nil {
		t.Fatalf("stats should stay nil")
	}

	f.statsErr = nil
	f.stats = &models.ErrorStats{TotalErrors: 3}
	if _, err := c.RefreshStats(context.Background()); err != nil {
		t.Fatalf("RefreshStats: %v", err)
	}
	if c.Stats().TotalErrors != 3 {
		t.Fatalf("stats = %+v", c.Stats())
	}
	if len(sink.sources) != 1 || sink.sources[0] != "stats" {
		t.Fatalf("diagnostics = %v", sink.sources)
	}
}

func TestController_SubscribeSignalsAfterLoad(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)
	ch, cancel := c.Subscribe()
	defer cancel()

	_ = c.LoadErrors(context.Background(), models.StatusAll)
	select {
	case <-ch:
	default:
		t.Fatalf("expected a signal after load")
	}

	if n := c.Subscribers(); n != 1 {
		t.Fatalf("subscribers = %d", n)
	}
	cancel()
	if n := c.Subscribers(); n != 0 {
		t.Fatalf("subscribers after cancel = %d", n)
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("12"); err != nil || id != 12 {
		t.Fatalf("ParseID(12) = %d %v", id, err)
	}
	for _, raw := range []string{"", "0", "-3", "abc"} {
		if _, err := ParseID(raw); err == nil {
			t.Fatalf("ParseID(%q) should fail", raw)
		}
	}
}
