// Package watcher keeps the index synchronized with the filesystem. It
// watches registered directories with fsnotify, debounces event bursts,
// and dispatches the coalesced outcome to the indexer.
package watcher

import (
	"time"
)

// Operation is the coalesced file system operation for a path.
type Operation int

const (
	// OpCreate indicates a new file appeared.
	OpCreate Operation = iota
	// OpModify indicates an existing file changed.
	OpModify
	// OpDelete indicates a file is gone.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a single file system event.
type FileEvent struct {
	// Path is the absolute path to the file.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures watcher behavior.
type Options struct {
	// DebounceWindow is the quiet period before coalesced events are
	// emitted. Default: 400ms.
	DebounceWindow time.Duration

	// EventBufferSize is the size of the event channel buffer.
	// Default: 1000.
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  400 * time.Millisecond,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
