package store

import (
	"context"

	"github.com/avasilyev/docbase/internal/models"
	"github.com/google/uuid"
)

// AppendActivity inserts one activity log row. Runs on its own handle,
// outside any unit of work; failures are the caller's to swallow.
func (s *Store) AppendActivity(ctx context.Context, e *models.ActivityEntry) error {
	_, err := s.exec(ctx, `
		INSERT INTO activity_log (id, user_id, action, subject, path, detail, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), e.User, e.Action, e.Subject, e.Path, e.Detail, e.At.Unix())
	return err
}
