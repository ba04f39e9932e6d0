// Package services composes the store, blob store, permission evaluator,
// automation engine and quota accounting into the public repository
// operations. Every operation runs inside one unit of work; the advisory
// document lock and the permission bits are re-checked inside that same
// unit of work.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/avasilyev/docbase/internal/automation"
	"github.com/avasilyev/docbase/internal/blob"
	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/dbx"
	"github.com/avasilyev/docbase/internal/keymutex"
	"github.com/avasilyev/docbase/internal/logging"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/security"
	"github.com/avasilyev/docbase/internal/store"
)

// TextExtractor turns document content into plain text. Invoked only from
// the extraction queue, wrapped by text_extractor PRE/POST hooks.
type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType string, content io.Reader) (string, error)
}

// LanguageDetector guesses the language of extracted text. May return ""
// when undetermined.
type LanguageDetector interface {
	Detect(text string) string
}

// Config wires the service's collaborators. Numerator, Extractor and
// Detector are optional. DefaultQuotaBytes applies to users without an
// explicit quota row; 0 means unlimited.
type Config struct {
	DB        *sql.DB
	Dialect   dbx.Dialect
	Blobs     blob.Store
	Roles     security.PrincipalResolver
	Numerator store.VersionNumerator
	Extractor TextExtractor
	Detector  LanguageDetector
	Logger    logging.Logger

	DefaultQuotaBytes int64
}

// Service is the repository orchestrator.
type Service struct {
	db        *sql.DB
	store     *store.Store
	blobs     blob.Store
	security  *security.Evaluator
	numerator store.VersionNumerator
	extractor TextExtractor
	detector  LanguageDetector
	log       logging.Logger

	defaultQuota int64

	// serializes first-login base folder creation per user
	userLocks *keymutex.KeyMutex
}

func New(cfg Config) *Service {
	numerator := cfg.Numerator
	if numerator == nil {
		numerator = store.MajorNumerator{}
	}
	return &Service{
		db:        cfg.DB,
		store:     store.New(cfg.DB, cfg.Dialect),
		blobs:     cfg.Blobs,
		security:  security.NewEvaluator(cfg.Roles),
		numerator: numerator,
		extractor: cfg.Extractor,
		detector:  cfg.Detector,
		log:       cfg.Logger,
		userLocks: keymutex.New(),

		defaultQuota: cfg.DefaultQuotaBytes,
	}
}

// withTx runs fn inside one unit of work with a transaction-bound store.
func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context, st *store.Store) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.store.WithTx(tx))
	})
}

// engine builds an automation engine bound to the same transaction as st.
func (s *Service) engine(st *store.Store) *automation.Engine {
	return automation.NewEngine(st, s.log)
}

// logActivity appends to the activity log outside the unit of work.
// Failures are swallowed; the log never fails an operation.
func (s *Service) logActivity(ctx context.Context, user, action, subject, path, detail string) {
	e := &models.ActivityEntry{
		User: user, Action: action, Subject: subject, Path: path, Detail: detail,
		At: time.Now().UTC(),
	}
	if err := s.store.AppendActivity(ctx, e); err != nil {
		s.log.Warn(ctx, "activity log append failed", "action", action, "error", err)
	}
}

// Context tags of the per-user base subtrees. Quota is accounted over all
// three.
func personalContext(user string) string { return common.ContextPersonal + "/" + user }
func trashContext(user string) string    { return common.ContextTrash + "/" + user }
func mailContext(user string) string     { return common.ContextMail + "/" + user }

func quotaContexts(user string) []string {
	return []string{personalContext(user), trashContext(user), mailContext(user)}
}

// CurrentQuota returns the user's accounted byte total: the sizes of the
// current versions of every document in the user's contexts.
func (s *Service) CurrentQuota(ctx context.Context, user string) (int64, error) {
	return s.store.QuotaUsed(ctx, quotaContexts(user))
}

// SetUserQuota configures a user's quota in bytes; 0 falls back to the
// service-wide default quota.
func (s *Service) SetUserQuota(ctx context.Context, user string, quotaBytes int64) error {
	return s.store.SetUserQuota(ctx, user, quotaBytes)
}

// assertWithinQuota fails when adding size bytes would push the user over
// the configured quota. The system user is exempt; a user without a quota
// row falls back to the default quota, and 0 means unlimited.
func (s *Service) assertWithinQuota(ctx context.Context, st *store.Store, user string, size int64) error {
	if user == common.SystemUser {
		return nil
	}
	quota, err := st.UserQuota(ctx, user)
	if err != nil {
		return err
	}
	if quota <= 0 {
		quota = s.defaultQuota
	}
	if quota <= 0 {
		return nil
	}
	used, err := st.QuotaUsed(ctx, quotaContexts(user))
	if err != nil {
		return err
	}
	if used+size > quota {
		return fmt.Errorf("%w: %d + %d > %d", common.ErrUserQuotaExceeded, used, size, quota)
	}
	return nil
}
