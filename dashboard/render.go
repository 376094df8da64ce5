package dashboard

import (
	"errdash/models"
	"html/template"
	"io"
)

// TimeLayout is used for every timestamp shown to the user, in local time
const TimeLayout = "2006-01-02 15:04:05"

// InvalidTimestamp replaces a timestamp the backend sent in an unknown format
const InvalidTimestamp = "Invalid Date"

// Placeholders for optional detail fields
const (
	NoStackTrace = "No stack trace available"
	NoImpact     = "Not specified"
)

// Detail is the record opened in the detail view
type Detail struct {
	Record      models.ErrorRecord
	ShowResolve bool
}

// NewDetail builds the detail view; the resolve control is hidden for resolved records
func NewDetail(rec models.ErrorRecord) Detail {
	return Detail{Record: rec, ShowResolve: !rec.IsResolved()}
}

// NavLink is one status tab
type NavLink struct {
	Status string
	Label  string
	Active bool
}

// Page is everything the full dashboard needs
type Page struct {
	Title   string
	Nav     []NavLink
	Filters Filters
	Sources []string
	Cards   []Card
	Visible int
	Stats   *models.ErrorStats
	Detail  *Detail
	Button  ButtonState
	WSPath  string
	Version string
}

var templateFuncs = template.FuncMap{
	"localTime":   formatLocal,
	"statusBadge": statusBadgeClass,
	"orDefault":   orDefault,
	"selected":    isSelected,
}

var templates = template.Must(template.New("dashboard").Funcs(templateFuncs).Parse(cardsTemplate + detailTemplate + pageTemplate))

// RenderCards writes the card list. Hidden cards keep their markup.
func RenderCards(w io.Writer, cards []Card) error {
	return templates.ExecuteTemplate(w, "cards", cards)
}

// RenderDetail writes the detail view fragment
func RenderDetail(w io.Writer, detail Detail) error {
	return templates.ExecuteTemplate(w, "detail", detail)
}

// RenderPage writes the full dashboard document
func RenderPage(w io.Writer, page Page) error {
	return templates.ExecuteTemplate(w, "page", page)
}

func statusBadgeClass(status string) string {
	if status == models.StatusResolved {
		return "resolved-badge"
	}
	return "open-badge"
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func isSelected(current, option string) bool {
	if current == "" {
		current = FilterAll
	}
	return current == option
}

// FormatTimestamp renders ts in local time, "" when absent and
// InvalidTimestamp when it could not be parsed.
func FormatTimestamp(ts models.Timestamp) string {
	switch {
	case ts.Unparsed():
		return InvalidTimestamp
	case ts.IsZero():
		return ""
	}
	return ts.Local().Format(TimeLayout)
}

func formatLocal(ts interface{}) string {
	switch v := ts.(type) {
	case models.Timestamp:
		return FormatTimestamp(v)
	case *models.Timestamp:
		if v == nil {
			return ""
		}
		return FormatTimestamp(*v)
	default:
		return ""
	}
}

const cardsTemplate = `
{{define "badges"}}<span class="badge {{statusBadge .Status}}">{{.Status}}</span>
<span class="badge bg-info">{{.Source}}</span>
{{if .InwiseID}}<span class="badge bg-secondary">INWise ID: {{.InwiseID}}</span>{{end}}{{end}}

{{define "cards"}}{{range .}}<div class="card error-card error-severity-{{.Record.Severity}}" data-error-id="{{.Record.ID}}"{{if not .Visible}} hidden{{end}}>
  <div class="card-body">
    <div class="d-flex justify-content-between align-items-start">
      <h5 class="card-title">{{.Record.ErrorType}}</h5>
      <div>{{template "badges" .Record}}</div>
    </div>
    <h6 class="card-subtitle mb-2 text-muted">{{.Record.AffectedComponent}}</h6>
    <p class="card-text">{{.Record.Message}}</p>
    <div class="d-flex justify-content-between align-items-center">
      <span class="error-timestamp">{{localTime .Record.Timestamp}}</span>
      <button class="btn btn-primary btn-sm view-details" data-error-id="{{.Record.ID}}">View Details</button>
    </div>
  </div>
</div>
{{end}}{{end}}
`

const detailTemplate = `
{{define "detail"}}<div class="error-details" data-error-id="{{.Record.ID}}">
  <div class="d-flex justify-content-between">
    <h4>{{.Record.ErrorType}}</h4>
    <div>{{template "badges" .Record}}</div>
  </div>
  <p class="text-muted">{{.Record.AffectedComponent}}</p>
  <hr>
  <h5>Error Message</h5>
  <p>{{.Record.Message}}</p>
  <h5>Stack Trace</h5>
  <div class="stack-trace">{{orDefault .Record.StackTrace "No stack trace available"}}</div>
  <h5>Additional Information</h5>
  <ul class="list-group">
    <li class="list-group-item"><strong>Environment:</strong> {{.Record.Environment}}</li>
    <li class="list-group-item"><strong>Severity:</strong> {{.Record.Severity}}</li>
    <li class="list-group-item"><strong>Impact:</strong> {{orDefault .Record.Impact "Not specified"}}</li>
    <li class="list-group-item"><strong>Source:</strong> {{.Record.Source}}</li>
    <li class="list-group-item"><strong>Timestamp:</strong> {{localTime .Record.Timestamp}}</li>
  </ul>
  {{if .Record.HasResolution}}<div class="error-resolution">
    <h5>Resolution</h5>
    <p>{{.Record.Resolution}}</p>
    <small>Resolved at: {{localTime .Record.ResolutionTime}}</small>
  </div>{{end}}
  <button id="resolveError" class="btn btn-success" data-error-id="{{.Record.ID}}"{{if not .ShowResolve}} hidden{{end}}>Mark as Resolved</button>
</div>
{{end}}
`

const pageTemplate = `
{{define "page"}}<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="/static/dashboard.css">
</head>
<body data-ws-path="{{.WSPath}}">
<header class="dash-header">
  <h1>{{.Title}}</h1>
  {{with .Stats}}<div class="dash-stats">
    <span>Total: {{.TotalErrors}}</span>
    <span class="error-severity-high">High open: {{.HighSeverityOpen}}</span>
    <span class="error-severity-medium">Medium open: {{.MediumSeverityOpen}}</span>
    <span class="error-severity-low">Low open: {{.LowSeverityOpen}}</span>
    <span>Resolved: {{printf "%.2f" .ResolutionRate}}%</span>
  </div>{{end}}
  <button id="syncButton" class="btn btn-outline-primary"{{if .Button.Disabled}} disabled{{end}}>{{.Button.Label}}</button>
</header>
<nav class="nav">
  {{range .Nav}}<a href="?status={{.Status}}" class="nav-link{{if .Active}} active{{end}}" data-status="{{.Status}}">{{.Label}}</a>
  {{end}}
</nav>
<form class="filters" onsubmit="return false">
  <select id="severityFilter" name="severity">
    <option value="all"{{if selected .Filters.Severity "all"}} selected{{end}}>All severities</option>
    <option value="high"{{if selected .Filters.Severity "high"}} selected{{end}}>High</option>
    <option value="medium"{{if selected .Filters.Severity "medium"}} selected{{end}}>Medium</option>
    <option value="low"{{if selected .Filters.Severity "low"}} selected{{end}}>Low</option>
  </select>
  <input id="componentFilter" name="component" placeholder="Component" value="{{.Filters.Component}}">
  <input id="searchFilter" name="search" placeholder="Search errors" value="{{.Filters.Search}}">
  <select id="sourceFilter" name="source">
    <option value="all"{{if selected .Filters.Source "all"}} selected{{end}}>All sources</option>
    {{range .Sources}}<option value="{{.}}"{{if selected $.Filters.Source .}} selected{{end}}>{{.}}</option>
    {{end}}
  </select>
  <span class="visible-count">{{.Visible}} / {{len .Cards}}</span>
</form>
<main class="error-list">{{template "cards" .Cards}}</main>
<div id="errorDetailModal" class="modal"{{if not .Detail}} hidden{{end}}>
  <div class="modal-dialog">
    <div class="modal-body">{{with .Detail}}{{template "detail" .}}{{end}}</div>
    <button class="btn btn-secondary modal-close">Close</button>
  </div>
</div>
<footer class="text-muted">errdash {{.Version}}</footer>
<script src="/static/dashboard.js"></script>
</body>
</html>
{{end}}
`
