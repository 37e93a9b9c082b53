package journal

import (
	"sync"

	"interlude/internal/logger"
)

// DefaultBuffer is the number of entries a Writer queues before dropping.
const DefaultBuffer = 64

// Writer persists entries on a background goroutine so the caller never
// blocks on disk I/O.
type Writer struct {
	repo    *Repository
	log     *logger.Logger
	entries chan Entry
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewWriter starts a writer draining into repo.
func NewWriter(repo *Repository, log *logger.Logger, buffer int) *Writer {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	writer := &Writer{
		repo:    repo,
		log:     log,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go writer.loop()
	return writer
}

// Record queues entry. It returns false when the queue is full or the
// writer is closed; the entry is dropped in that case.
func (writer *Writer) Record(entry Entry) bool {
	writer.mu.Lock()
	defer writer.mu.Unlock()
	if writer.closed {
		return false
	}
	select {
	case writer.entries <- entry:
		return true
	default:
		writer.log.WarnOnce("journal-full", "journal queue full, dropping %s entry", entry.Kind)
		return false
	}
}

// Close flushes queued entries and stops the goroutine.
func (writer *Writer) Close() {
	writer.mu.Lock()
	if writer.closed {
		writer.mu.Unlock()
		return
	}
	writer.closed = true
	close(writer.entries)
	writer.mu.Unlock()
	<-writer.done
}

func (writer *Writer) loop() {
	defer close(writer.done)
	for entry := range writer.entries {
		if err := writer.repo.Create(&entry); err != nil {
			writer.log.Warn("journal write failed: %v", err)
		}
	}
}
