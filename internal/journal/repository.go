package journal

import (
	"time"

	"github.com/pkg/errors"
)

// Repository handles journal queries.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an entry. Times are stored in UTC so that sqlite's textual
// comparison orders them correctly.
func (r *Repository) Create(entry *Entry) error {
	entry.At = entry.At.UTC()
	if result := r.db.Create(entry); result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert journal entry")
	}
	return nil
}

// Since returns entries at or after since, oldest first.
func (r *Repository) Since(since time.Time) ([]Entry, error) {
	var entries []Entry
	result := r.db.Where("at >= ?", since.UTC()).Order("at ASC").Find(&entries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query journal entries")
	}
	return entries, nil
}

// SummaryBetween counts entries per kind within [start, end).
func (r *Repository) SummaryBetween(start, end time.Time) ([]Summary, error) {
	var summaries []Summary
	result := r.db.Model(&Entry{}).
		Select("kind, COUNT(*) as count, SUM(seconds) as total_seconds").
		Where("at >= ? AND at < ?", start.UTC(), end.UTC()).
		Group("kind").
		Order("kind ASC").
		Scan(&summaries)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query journal summary")
	}
	return summaries, nil
}

// DeleteBefore removes entries older than before.
func (r *Repository) DeleteBefore(before time.Time) (int64, error) {
	result := r.db.Where("at < ?", before.UTC()).Delete(&Entry{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old journal entries")
	}
	return result.RowsAffected, nil
}
