package store

import (
	"context"
	"strings"
)

// QuotaUsed sums the sizes of the current versions of every document whose
// context is one of the given contexts.
func (s *Store) QuotaUsed(ctx context.Context, contexts []string) (int64, error) {
	if len(contexts) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(contexts)+1)
	args = append(args, true)
	for _, c := range contexts {
		args = append(args, c)
	}

	query := `SELECT COALESCE(SUM(v.size), 0) FROM versions v
		JOIN nodes n ON n.id = v.document_id
		WHERE v.current=? AND n.context IN (?` + strings.Repeat(",?", len(contexts)-1) + `)`

	var total int64
	if err := s.db.QueryRowContext(ctx, s.q(query), args...).Scan(&total); err != nil {
		return 0, wrapDB(err)
	}
	return total, nil
}

// UserQuota returns the configured quota in bytes for a user; 0 means no
// row or unlimited.
func (s *Store) UserQuota(ctx context.Context, user string) (int64, error) {
	var quota int64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COALESCE(MAX(quota_bytes), 0) FROM user_config WHERE user_id=?`), user).Scan(&quota)
	if err != nil {
		return 0, wrapDB(err)
	}
	return quota, nil
}

// SetUserQuota upserts the configured quota for a user.
func (s *Store) SetUserQuota(ctx context.Context, user string, quotaBytes int64) error {
	_, err := s.exec(ctx, `
		INSERT INTO user_config (user_id, quota_bytes) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET quota_bytes = EXCLUDED.quota_bytes`,
		user, quotaBytes)
	return err
}

// ContextSize sums current-version sizes over one context tag.
func (s *Store) ContextSize(ctx context.Context, context string) (int64, error) {
	return s.QuotaUsed(ctx, []string{context})
}
