package database

import (
	"errdash/config"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// pragma is one SQLite PRAGMA applied to every connection.
type pragma struct {
	name  string
	value string
}

func (p pragma) dsnParam() string { return p.name + "(" + p.value + ")" }

func (p pragma) statement() string { return "PRAGMA " + p.name + " = " + p.value }

// sqlitePragmas lists the tuning PRAGMAs enabled in settings. Unsupported
// journal modes or synchronous levels are skipped.
func sqlitePragmas(settings *config.Config) []pragma {
	if !settings.SQLitePragmasEnabled {
		return nil
	}
	var out []pragma
	if settings.SQLiteBusyTimeoutMS > 0 {
		out = append(out, pragma{"busy_timeout", strconv.Itoa(settings.SQLiteBusyTimeoutMS)})
	}
	if mode := oneOf(settings.SQLiteJournalMode, "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF"); mode != "" {
		out = append(out, pragma{"journal_mode", mode})
	}
	if level := oneOf(settings.SQLiteSynchronous, "OFF", "NORMAL", "FULL", "EXTRA", "0", "1", "2", "3"); level != "" {
		out = append(out, pragma{"synchronous", level})
	}
	return out
}

// oneOf upper-cases value and returns it when it is in allowed, else "".
func oneOf(value string, allowed ...string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	for _, a := range allowed {
		if value == a {
			return value
		}
	}
	return ""
}

// buildSQLiteDSN adds the _pragma parameters to dbPath, keeping any
// existing query.
func buildSQLiteDSN(dbPath string, pragmas []pragma) string {
	base, rawQuery, _ := strings.Cut(dbPath, "?")
	query, _ := url.ParseQuery(rawQuery)
	for _, p := range pragmas {
		query.Add("_pragma", p.dsnParam())
	}
	if len(query) == 0 {
		return base
	}
	return base + "?" + query.Encode()
}

type sqlitePool struct {
	maxOpen     int
	maxIdle     int
	idleTimeout time.Duration
	lifetime    time.Duration
}

// poolFromSettings clamps the configured limits: at least one open
// connection, idle connections within [0, maxOpen], no negative durations.
func poolFromSettings(settings *config.Config) sqlitePool {
	p := sqlitePool{
		maxOpen:     max(settings.SQLiteMaxOpenConns, 1),
		maxIdle:     max(settings.SQLiteMaxIdleConns, 0),
		idleTimeout: time.Duration(max(settings.SQLiteConnMaxIdleSec, 0)) * time.Second,
		lifetime:    time.Duration(max(settings.SQLiteConnMaxLifeSec, 0)) * time.Second,
	}
	p.maxIdle = min(p.maxIdle, p.maxOpen)
	return p
}
