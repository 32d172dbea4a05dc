package store

import (
	"fmt"
	"strings"
)

// ConnString builds a local-store DSN understood by the ncruces/go-sqlite3
// driver. It always turns on foreign keys and WAL journaling; multiThread
// disables same-thread connection enforcement, which the HTTP tool server
// needs because requests may be dispatched on any goroutine/OS thread.
func ConnString(path string, multiThread bool) string {
	path = strings.TrimSpace(path)
	conn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)", path)
	if multiThread {
		conn += "&vfs=multi-thread"
	}
	return conn
}
