package diagnostics

import (
	"encoding/json"
	"errdash/models"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"
)

// Levels recorded by the logger
const (
	LevelError = "ERROR"
	LevelWarn  = "WARN"
)

// Store persists entries beyond the in-memory window
type Store interface {
	Save(entry *models.DiagnosticLog) error
}

// Logger records silent failures: they are written to the process log and
// kept for inspection but never shown to the user as an alert.
type Logger struct {
	logs      []*models.DiagnosticLog
	logsMap   map[int]*models.DiagnosticLog
	mu        sync.RWMutex
	maxLogs   int
	idCounter int
	store     Store
}

// NewLogger creates a logger keeping at most maxLogs entries in memory.
func NewLogger(maxLogs int) *Logger {
	if maxLogs <= 0 {
		maxLogs = 100
	}
	return &Logger{
		logs:    make([]*models.DiagnosticLog, 0, maxLogs),
		logsMap: make(map[int]*models.DiagnosticLog),
		maxLogs: maxLogs,
	}
}

// AttachStore enables persistence. Store failures only reach the process log.
func (l *Logger) AttachStore(store Store) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store = store
}

// Record stores one entry
func (l *Logger) Record(level, source, message, detail string, contextData map[string]interface{}) {
	stack := getStackTrace(3)

	contextJSON := ""
	if contextData != nil {
		if data, err := json.Marshal(contextData); err == nil {
			contextJSON = string(data)
		}
	}

	log.Printf("[%s] %s: %s %s", level, source, message, detail)

	l.mu.Lock()
	if len(l.logs) >= l.maxLogs {
		oldLog := l.logs[0]
		delete(l.logsMap, oldLog.ID)
		l.logs = l.logs[1:]
	}

	l.idCounter++
	entry := &models.DiagnosticLog{
		ID:        l.idCounter,
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
		Detail:    detail,
		Stack:     stack,
		Context:   contextJSON,
	}
	l.logs = append(l.logs, entry)
	l.logsMap[entry.ID] = entry
	store := l.store
	l.mu.Unlock()

	if store != nil {
		if err := store.Save(entry); err != nil {
			log.Printf("Failed to persist diagnostic entry %d: %v", entry.ID, err)
		}
	}
}

// Error records an error with optional context
func (l *Logger) Error(source, message string, err error, contextData map[string]interface{}) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	l.Record(LevelError, source, message, detail, contextData)
}

// Warn records a warning
func (l *Logger) Warn(source, message, detail string) {
	l.Record(LevelWarn, source, message, detail, nil)
}

// Entries returns the in-memory entries, latest first
func (l *Logger) Entries() []*models.DiagnosticLog {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.logs)
	result := make([]*models.DiagnosticLog, total)
	for i := 0; i < total; i++ {
		result[i] = l.logs[total-1-i]
	}
	return result
}

// Get returns a single entry by ID
func (l *Logger) Get(id int) *models.DiagnosticLog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logsMap[id]
}

// Clear removes all in-memory entries
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = make([]*models.DiagnosticLog, 0, l.maxLogs)
	l.logsMap = make(map[int]*models.DiagnosticLog)
	l.idCounter = 0
}

func getStackTrace(skip int) string {
	const maxDepth = 10
	var stack string

	for i := skip; i < skip+maxDepth; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		funcName := "unknown"
		if fn != nil {
			funcName = fn.Name()
		}

		stack += fmt.Sprintf("%s:%d %s\n", file, line, funcName)
	}

	return stack
}
