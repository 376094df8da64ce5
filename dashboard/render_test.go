package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errdash/models"
	"strings"
	"testing"
	"time"
)

func TestRenderCards_HiddenCardsKeepMarkup(t *testing.T) {
	cards := Filters{Severity: "high"}.Apply(sampleBatch())

	var buf bytes.Buffer
	if err := RenderCards(&buf, cards); err != nil {
		t.Fatalf("RenderCards: %v", err)
	}
	out := buf.String()

	if n := strings.Count(out, `class="card error-card`); n != 3 {
		t.Fatalf("expected 3 cards, got %d", n)
	}
	if n := strings.Count(out, `data-error-id="2" hidden`); n != 1 {
		t.Fatalf("expected card 2 to be hidden:\n%s", out)
	}
	if strings.Contains(out, `data-error-id="1" hidden`) {
		t.Fatalf("card 1 should be visible")
	}
	for _, want := range []string{"error-severity-high", "error-severity-low", "View Details"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output", want)
		}
	}
}

func TestRenderCards_InwiseBadgeAndEscaping(t *testing.T) {
	ts, _ := models.ParseTimestamp("2024-03-01T10:20:30")
	cards := Filters{}.Apply([]models.ErrorRecord{{
		ID:        5,
		ErrorType: "<script>alert(1)</script>",
		Severity:  models.SeverityMedium,
		Status:    models.StatusOpen,
		Source:    "inwise",
		InwiseID:  "INW-42",
		Timestamp: ts,
	}})

	var buf bytes.Buffer
	if err := RenderCards(&buf, cards); err != nil {
		t.Fatalf("RenderCards: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Fatalf("error type must be escaped")
	}
	if !strings.Contains(out, "INWise ID: INW-42") {
		t.Fatalf("missing inwise badge")
	}
	if !strings.Contains(out, ts.Local().Format(TimeLayout)) {
		t.Fatalf("missing local timestamp")
	}
}

func TestRenderDetail_Placeholders(t *testing.T) {
	var buf bytes.Buffer
	rec := models.ErrorRecord{ID: 9, ErrorType: "X", Status: models.StatusOpen}
	if err := RenderDetail(&buf, NewDetail(rec)); err != nil {
		t.Fatalf("RenderDetail: %v", err)
	}
	out := buf.String()
	for _, want := range []string{NoStackTrace, NoImpact} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q", want)
		}
	}
	if strings.Contains(out, "Resolved at:") {
		t.Fatalf("open record has no resolution block")
	}
	if strings.Contains(out, `id="resolveError" class="btn btn-success" data-error-id="9" hidden`) {
		t.Fatalf("resolve control must be visible for open records")
	}
}

func TestRenderDetail_ResolvedHidesResolve(t *testing.T) {
	at := models.Timestamp{Time: time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)}
	rec := models.ErrorRecord{
		ID:             4,
		Status:         models.StatusResolved,
		StackTrace:     "trace line",
		Impact:         "checkout down",
		Resolution:     "rolled back",
		ResolutionTime: &at,
	}

	var buf bytes.Buffer
	if err := RenderDetail(&buf, NewDetail(rec)); err != nil {
		t.Fatalf("RenderDetail: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `data-error-id="4" hidden>Mark as Resolved`) {
		t.Fatalf("resolve control must be hidden:\n%s", out)
	}
	for _, want := range []string{"trace line", "checkout down", "rolled back", at.Local().Format(TimeLayout)} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q", want)
		}
	}
}

func TestRenderPage(t *testing.T) {
	f := &fakeFetcher{batch: sampleBatch()}
	c := newTestController(f, nil)
	_ = c.Navigate(context.Background(), models.StatusOpen)
	c.SetFilters(Filters{Source: "manual"})
	_, _ = c.OpenDetail(2)

	var buf bytes.Buffer
	if err := RenderPage(&buf, c.Page("Error Dashboard", "/ws", "test")); err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	out := buf.String()

	if n := strings.Count(out, "nav-link active"); n != 1 {
		t.Fatalf("expected one active nav link, got %d", n)
	}
	if !strings.Contains(out, `class="nav-link active" data-status="open"`) {
		t.Fatalf("open tab should be active")
	}
	if !strings.Contains(out, `<option value="manual" selected>`) {
		t.Fatalf("source option not selected")
	}
	if !strings.Contains(out, `id="syncButton" class="btn btn-outline-primary">Sync<`) {
		t.Fatalf("sync button missing or disabled")
	}
	if !strings.Contains(out, `class="error-details" data-error-id="2"`) {
		t.Fatalf("open detail not rendered")
	}
	if !strings.Contains(out, "1 / 3") {
		t.Fatalf("visible counter missing")
	}
}

func TestRenderCards_UnparsedTimestamp(t *testing.T) {
	var rec models.ErrorRecord
	if err := json.Unmarshal([]byte(`{"id":8,"error_type":"X","status":"open","timestamp":"sometime"}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderCards(&buf, Filters{}.Apply([]models.ErrorRecord{rec})); err != nil {
		t.Fatalf("RenderCards: %v", err)
	}
	if !strings.Contains(buf.String(), InvalidTimestamp) {
		t.Fatalf("expected placeholder for unparsed timestamp:\n%s", buf.String())
	}
	if got := FormatTimestamp(models.Timestamp{}); got != "" {
		t.Fatalf("absent timestamp = %q", got)
	}
}
