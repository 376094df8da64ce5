package cli

import (
	"context"
	"errdash/dashboard"
	"errdash/diagnostics"
	"errdash/models"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

// Fetcher is what the CLI needs from the backend client
type Fetcher interface {
	dashboard.Fetcher
	BaseURL() string
}

// CLI is the interactive dashboard client
type CLI struct {
	rl      *readline.Instance
	running bool
	ctrl    *dashboard.Controller
	diag    *diagnostics.Logger
	baseURL string
	out     io.Writer
}

// New connects to the backend and prepares the readline loop
func New(client Fetcher, diag *diagnostics.Logger, syncMarker string) (*CLI, error) {
	ctrl := dashboard.NewController(client, dashboard.Options{
		SyncSuccessMarker: syncMarker,
		Diagnostics:       diag,
	})

	// Test connectivity
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := ctrl.Navigate(ctx, models.StatusAll); err != nil {
		return nil, fmt.Errorf("cannot connect to backend: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %v", err)
	}

	return &CLI{
		rl:      rl,
		running: true,
		ctrl:    ctrl,
		diag:    diag,
		baseURL: client.BaseURL(),
		out:     os.Stdout,
	}, nil
}

// Start runs the CLI loop
func (c *CLI) Start() {
	defer c.rl.Close()
	c.printWelcome()

	for c.running {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				fmt.Fprintln(c.out, "\n⚠ Ctrl+C detected. Please use 'exit' or 'quit' command to exit gracefully.")
				continue
			}
			break
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		c.handleCommand(input)
	}
}

func (c *CLI) printWelcome() {
	printBanner(c.out, "errdash - Error Tracking CLI")
	fmt.Fprintf(c.out, "\nConnected to: %s\n", c.baseURL)
	fmt.Fprintf(c.out, "Loaded %d error(s). Type 'help' for available commands\n", len(c.ctrl.Batch()))
}

func (c *CLI) handleCommand(input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "h", "?":
		c.showHelp()
	case "list", "ls":
		c.handleList(args)
	case "filter", "f":
		c.handleFilter(args)
	case "show":
		c.handleShow(args)
	case "resolve":
		c.handleResolve(args)
	case "sync":
		c.handleSync()
	case "stats":
		c.handleStats()
	case "report":
		c.handleReport()
	case "diag":
		c.handleDiag(args)
	case "clear":
		fmt.Fprint(c.out, "\033[H\033[2J")
	case "exit", "quit", "q":
		c.running = false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}
}

func (c *CLI) showHelp() {
	fmt.Fprintln(c.out)
	printBanner(c.out, "Available Commands")
	fmt.Fprintln(c.out)

	commands := [][]string{
		{"help, h, ?", "Show this help message"},
		{"", ""},
		{"ERRORS:", ""},
		{"list [all|open|resolved]", "Load and list errors (default: active tab)"},
		{"filter <field> <value>", "Filter by severity, component, search or source"},
		{"filter clear", "Remove all filters"},
		{"show <id>", "Show error details"},
		{"resolve [id]", "Resolve the shown error (or <id>)"},
		{"report", "Log an error manually (interactive)"},
		{"", ""},
		{"BACKEND:", ""},
		{"sync", "Trigger a forced sync"},
		{"stats", "Show error statistics"},
		{"diag [id]", "Show recent silent failures (or one in full)"},
		{"", ""},
		{"SYSTEM:", ""},
		{"clear", "Clear screen"},
		{"exit, quit, q", "Exit the program"},
	}

	for _, cmd := range commands {
		if cmd[0] != "" {
			fmt.Fprintf(c.out, "  %-30s %s\n", cmd[0], cmd[1])
		} else {
			fmt.Fprintln(c.out)
		}
	}
}

func (c *CLI) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (c *CLI) handleList(args []string) {
	status := c.ctrl.ActiveStatus()
	if len(args) > 0 {
		status = strings.ToLower(args[0])
	}
	ctx, cancel := c.context()
	defer cancel()
	if err := c.ctrl.Navigate(ctx, status); err != nil {
		fmt.Fprintf(c.out, "Error: %v (showing previous results)\n", err)
	}
	printCards(c.out, c.ctrl.ActiveStatus(), c.ctrl.Cards())
}

func (c *CLI) handleFilter(args []string) {
	f, err := applyFilterArgs(c.ctrl.Filters(), args)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		fmt.Fprintln(c.out, "Usage: filter <severity|component|search|source> <value> | filter clear")
		return
	}
	sourceChanged := f.SourceParam() != c.ctrl.Filters().SourceParam()
	c.ctrl.SetFilters(f)

	// source is also a server-side filter
	if sourceChanged {
		ctx, cancel := c.context()
		defer cancel()
		if err := c.ctrl.Reload(ctx); err != nil {
			fmt.Fprintf(c.out, "Error: %v (showing previous results)\n", err)
		}
	}
	fmt.Fprintf(c.out, "Filters: %s\n", describeFilters(f))
	printCards(c.out, c.ctrl.ActiveStatus(), c.ctrl.Cards())
}

func (c *CLI) handleShow(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: show <id>")
		return
	}
	id, err := dashboard.ParseID(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	detail, err := c.ctrl.OpenDetail(id)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	printDetail(c.out, detail)
}

func (c *CLI) handleResolve(args []string) {
	if len(args) > 0 {
		id, err := dashboard.ParseID(args[0])
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		detail, err := c.ctrl.OpenDetail(id)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		if !detail.ShowResolve {
			fmt.Fprintf(c.out, "Error %d is already resolved.\n", id)
			return
		}
	}

	ctx, cancel := c.context()
	defer cancel()
	outcome, err := c.ctrl.ResolveOpen(ctx, c)
	if errors.Is(err, dashboard.ErrNoOpenDetail) {
		fmt.Fprintln(c.out, "No error is open. Use 'show <id>' or 'resolve <id>'.")
		return
	}

	switch outcome {
	case dashboard.ResolveAborted:
		fmt.Fprintln(c.out, "Cancelled.")
	case dashboard.ResolveCompleted:
		fmt.Fprintln(c.out, "✓ Resolved.")
		printCards(c.out, c.ctrl.ActiveStatus(), c.ctrl.Cards())
	default:
		fmt.Fprintln(c.out, "✗ Not resolved. See 'diag' for details.")
	}
}

// Prompt implements dashboard.Prompter; Ctrl+C cancels
func (c *CLI) Prompt(message string) (string, bool) {
	text, cancelled := c.readInputWithCancel(strings.TrimSuffix(message, ":"), "")
	if cancelled {
		return "", false
	}
	return text, true
}

// Alert implements dashboard.Alerter
func (c *CLI) Alert(message string) {
	fmt.Fprintln(c.out)
	printBanner(c.out, message)
}

func (c *CLI) handleSync() {
	fmt.Fprintln(c.out, dashboard.SyncLoadingLabel)
	ctx, cancel := c.context()
	defer cancel()
	outcome, err := c.ctrl.Sync(ctx, c)
	if errors.Is(err, dashboard.ErrSyncInProgress) {
		fmt.Fprintln(c.out, "A sync is already running.")
		return
	}
	if outcome.Reload {
		printCards(c.out, c.ctrl.ActiveStatus(), c.ctrl.Cards())
	}
}

func (c *CLI) handleStats() {
	ctx, cancel := c.context()
	defer cancel()
	stats, err := c.ctrl.RefreshStats(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	printStats(c.out, stats)
}

func (c *CLI) handleReport() {
	fmt.Fprintln(c.out, "Report an error (Ctrl+C to cancel)")

	var report models.ErrorReport
	fields := []struct {
		prompt string
		def    string
		dst    *string
	}{
		{"Error type", "", &report.ErrorType},
		{"Message", "", &report.Message},
		{"Severity (low/medium/high)", models.SeverityMedium, &report.Severity},
		{"Affected component", "", &report.AffectedComponent},
		{"Environment", "production", &report.Environment},
		{"Impact", "", &report.Impact},
	}
	for _, field := range fields {
		value, cancelled := c.readInputWithCancel(field.prompt, field.def)
		if cancelled {
			fmt.Fprintln(c.out, "Cancelled.")
			return
		}
		*field.dst = value
	}

	report.Normalize()
	if report.ErrorType == "" || report.Message == "" {
		fmt.Fprintln(c.out, "Error: error type and message are required")
		return
	}
	if !models.ValidSeverity(report.Severity) {
		fmt.Fprintf(c.out, "Error: invalid severity %q\n", report.Severity)
		return
	}

	ctx, cancel := c.context()
	defer cancel()
	id, err := c.ctrl.Report(ctx, report)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "✓ Logged as error %d\n", id)
}

func (c *CLI) handleDiag(args []string) {
	if c.diag == nil {
		fmt.Fprintln(c.out, "Diagnostics not available.")
		return
	}
	if len(args) == 0 {
		printDiagnostics(c.out, c.diag.Entries())
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: invalid diagnostic id %q\n", args[0])
		return
	}
	entry := c.diag.Get(id)
	if entry == nil {
		fmt.Fprintf(c.out, "Diagnostic %d not found (older entries are evicted).\n", id)
		return
	}
	printDiagnostic(c.out, entry)
}

// readInputWithCancel reads input and supports cancellation
func (c *CLI) readInputWithCancel(prompt, defaultValue string) (string, bool) {
	if defaultValue != "" {
		c.rl.SetPrompt(fmt.Sprintf("%s [%s]: ", prompt, defaultValue))
	} else {
		c.rl.SetPrompt(fmt.Sprintf("%s: ", prompt))
	}

	line, err := c.rl.Readline()
	c.rl.SetPrompt("> ") // Restore default prompt

	if err != nil {
		if err == readline.ErrInterrupt {
			return "", true
		}
		return defaultValue, false
	}

	input := strings.TrimSpace(line)
	if input == "" && defaultValue != "" {
		return defaultValue, false
	}
	return input, false
}
