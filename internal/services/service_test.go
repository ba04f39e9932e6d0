package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasilyev/docbase/internal/blob"
	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/logging"
	"github.com/avasilyev/docbase/internal/models"
	"github.com/avasilyev/docbase/internal/security"
	"github.com/avasilyev/docbase/internal/store"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type staticExtractor struct {
	text string
	err  error
}

func (e staticExtractor) Extract(_ context.Context, _, _ string, r io.Reader) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if e.text != "" {
		return e.text, nil
	}
	b, err := io.ReadAll(r)
	return string(b), err
}

func newTestService(t *testing.T, roles security.PrincipalResolver, extractor TextExtractor) *Service {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	db, dialect, err := store.Open(ctx, "sqlite", filepath.Join(dir, "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blobs, err := blob.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	if roles == nil {
		roles = security.StaticResolver{}
	}
	svc := New(Config{
		DB: db, Dialect: dialect, Blobs: blobs, Roles: roles,
		Extractor: extractor, Logger: testLogger(),
	})
	require.NoError(t, svc.Bootstrap(ctx))
	return svc
}

func userHome(t *testing.T, svc *Service, user string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.EnsureUserBaseFolders(ctx, user))
	n, err := svc.GetNodeByPath(ctx, user, "/"+common.ContextPersonal+"/"+user)
	require.NoError(t, err)
	return n.ID
}

func createDoc(t *testing.T, svc *Service, user, parentID, name, content string) *models.Node {
	t.Helper()
	res, err := svc.CreateDocument(context.Background(), CreateDocumentRequest{
		User: user, ParentID: parentID, Name: name, MimeType: "text/plain",
		Content: strings.NewReader(content), Size: int64(len(content)),
	})
	require.NoError(t, err)
	return res.Node
}

func TestDocumentLifecycleScenario(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	require.NoError(t, svc.SetUserQuota(ctx, "alice", 1024))

	doc := createDoc(t, svc, "alice", home, "a.txt", "ten bytes!")

	used, err := svc.CurrentQuota(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), used)

	// same name in the same folder collides
	_, err = svc.CreateDocument(ctx, CreateDocumentRequest{
		User: "alice", ParentID: home, Name: "a.txt", MimeType: "text/plain",
		Content: strings.NewReader("x"), Size: 1,
	})
	assert.True(t, errors.Is(err, common.ErrItemExists))

	// give bob write access so his lock attempt reaches the lock check
	_, err = svc.GrantUser(ctx, "alice", doc.ID, "bob", models.PermRead|models.PermWrite, false)
	require.NoError(t, err)

	_, err = svc.Lock(ctx, "alice", doc.ID)
	require.NoError(t, err)
	_, err = svc.Lock(ctx, "bob", doc.ID)
	assert.True(t, errors.Is(err, common.ErrLock))

	// carol holds no grants at all
	_, err = svc.Rename(ctx, "carol", doc.ID, "b.txt")
	assert.True(t, errors.Is(err, common.ErrAccessDenied))

	require.NoError(t, svc.Unlock(ctx, "alice", doc.ID, false))
	require.NoError(t, svc.Purge(ctx, "alice", doc.ID))

	_, err = svc.GetNode(ctx, "alice", doc.ID)
	assert.True(t, errors.Is(err, common.ErrPathNotFound))

	used, err = svc.CurrentQuota(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)
}

func TestQuotaExceededOnCreate(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	require.NoError(t, svc.SetUserQuota(ctx, "alice", 5))

	_, err := svc.CreateDocument(ctx, CreateDocumentRequest{
		User: "alice", ParentID: home, Name: "big.txt", MimeType: "text/plain",
		Content: strings.NewReader("ten bytes!"), Size: 10,
	})
	assert.True(t, errors.Is(err, common.ErrUserQuotaExceeded))

	// nothing persisted
	_, err = svc.GetNodeByPath(ctx, "alice", "/personal/alice/big.txt")
	assert.True(t, errors.Is(err, common.ErrPathNotFound))

	// the system user is exempt
	_, err = svc.CreateDocument(ctx, CreateDocumentRequest{
		User: common.SystemUser, ParentID: home, Name: "big.txt", MimeType: "text/plain",
		Content: strings.NewReader("ten bytes!"), Size: 10,
	})
	require.NoError(t, err)
}

func TestCheckoutCheckinKeepsSingleCurrentVersion(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	doc := createDoc(t, svc, "alice", home, "a.txt", "first")

	lock, err := svc.Checkout(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", lock.Owner)

	out, err := svc.IsCheckedOut(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.True(t, out)

	version, err := svc.Checkin(ctx, "alice", doc.ID, strings.NewReader("second"), 6)
	require.NoError(t, err)
	assert.Equal(t, "2.0", version.Label)

	out, err = svc.IsCheckedOut(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.False(t, out)
	locked, err := svc.IsLocked(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.False(t, locked)

	history, err := svc.GetVersionHistory(ctx, "alice", doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	currents := 0
	for _, v := range history {
		if v.Current {
			currents++
		}
	}
	assert.Equal(t, 1, currents)

	rc, current, err := svc.GetContent(ctx, "alice", doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
	assert.Equal(t, "2.0", current.Label)
}

func TestCancelCheckoutReleasesLockAndFlag(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	doc := createDoc(t, svc, "alice", home, "a.txt", "first")

	_, err := svc.Checkout(ctx, "alice", doc.ID)
	require.NoError(t, err)
	require.NoError(t, svc.CancelCheckout(ctx, "alice", doc.ID, false))

	out, err := svc.IsCheckedOut(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.False(t, out)

	history, err := svc.GetVersionHistory(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTrashRenameProbing(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")

	for i := 0; i < 3; i++ {
		doc := createDoc(t, svc, "alice", home, "report.pdf", "content")
		require.NoError(t, svc.Delete(ctx, "alice", doc.ID))
	}

	trash, err := svc.GetNodeByPath(ctx, "alice", "/"+common.ContextTrash+"/alice")
	require.NoError(t, err)
	children, err := svc.GetChildren(ctx, "alice", trash.ID)
	require.NoError(t, err)

	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"report.pdf", "report (1).pdf", "report (2).pdf"}, names)

	// trashed documents keep counting against the user's quota
	used, err := svc.CurrentQuota(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(21), used)
}

func TestMoveAcrossContextsRewritesSubtree(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	aliceHome := userHome(t, svc, "alice")
	bobHome := userHome(t, svc, "bob")

	folder, err := svc.CreateFolder(ctx, "alice", aliceHome, "shared")
	require.NoError(t, err)
	doc := createDoc(t, svc, "alice", folder.ID, "a.txt", "ten bytes!")

	_, err = svc.GrantUser(ctx, "bob", bobHome, "alice", models.PermRead|models.PermWrite, false)
	require.NoError(t, err)

	require.NoError(t, svc.Move(ctx, "alice", folder.ID, bobHome))

	moved, err := svc.GetNode(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, common.ContextPersonal+"/bob", moved.Context)

	aliceUsed, err := svc.CurrentQuota(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), aliceUsed)
	bobUsed, err := svc.CurrentQuota(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bobUsed)
}

func TestPurgeFolderCascades(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	folder, err := svc.CreateFolder(ctx, "alice", home, "project")
	require.NoError(t, err)
	sub, err := svc.CreateFolder(ctx, "alice", folder.ID, "drafts")
	require.NoError(t, err)
	doc := createDoc(t, svc, "alice", sub.ID, "a.txt", "ten bytes!")
	_, err = svc.AddNote(ctx, "alice", doc.ID, "first draft")
	require.NoError(t, err)

	require.NoError(t, svc.Purge(ctx, "alice", folder.ID))

	for _, id := range []string{folder.ID, sub.ID, doc.ID} {
		_, err := svc.GetNode(ctx, "alice", id)
		assert.True(t, errors.Is(err, common.ErrPathNotFound))
	}

	used, err := svc.CurrentQuota(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), used)

	// purge of an already-removed subtree is a no-op
	require.NoError(t, svc.Purge(ctx, "alice", folder.ID))
}

func TestGetChildrenPrunesUnreadableNodes(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	visible := createDoc(t, svc, "alice", home, "visible.txt", "x")
	hidden := createDoc(t, svc, "alice", home, "hidden.txt", "x")

	_, err := svc.GrantUser(ctx, "alice", home, "bob", models.PermRead, false)
	require.NoError(t, err)
	_, err = svc.GrantUser(ctx, "alice", visible.ID, "bob", models.PermRead, false)
	require.NoError(t, err)

	children, err := svc.GetChildren(ctx, "bob", home)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, visible.ID, children[0].ID)

	_, err = svc.GetNode(ctx, "bob", hidden.ID)
	assert.True(t, errors.Is(err, common.ErrAccessDenied))
}

func TestRecursiveGrantPartialSuccess(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	folder, err := svc.CreateFolder(ctx, "alice", home, "project")
	require.NoError(t, err)
	mine := createDoc(t, svc, "alice", folder.ID, "mine.txt", "x")

	// a system-authored document alice cannot administer
	other := createDoc(t, svc, common.SystemUser, folder.ID, "other.txt", "x")
	_, err = svc.RevokeUser(ctx, common.SystemUser, other.ID, "alice", models.AllGrants, false)
	require.NoError(t, err)

	outcomes, err := svc.GrantUser(ctx, "alice", folder.ID, "bob", models.PermRead, true)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	byID := map[string]error{}
	for _, o := range outcomes {
		byID[o.NodeID] = o.Err
	}
	assert.NoError(t, byID[folder.ID])
	assert.NoError(t, byID[mine.ID])
	assert.True(t, errors.Is(byID[other.ID], common.ErrAccessDenied))

	granted, err := svc.GetNode(ctx, "bob", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine.txt", granted.Name)
}

func TestCopyClonesContentAndSelectedAttributes(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	src, err := svc.CreateDocument(ctx, CreateDocumentRequest{
		User: "alice", ParentID: home, Name: "a.txt", MimeType: "text/plain",
		Content: strings.NewReader("payload"), Size: 7,
		Keywords: []string{"alpha"}, Notes: []string{"remember"},
	})
	require.NoError(t, err)

	dst, err := svc.CreateFolder(ctx, "alice", home, "copies")
	require.NoError(t, err)

	cp, err := svc.Copy(ctx, "alice", src.Node.ID, dst.ID, ExtendedAttributes{Keywords: true, Notes: true})
	require.NoError(t, err)
	assert.NotEqual(t, src.Node.ID, cp.ID)

	rc, _, err := svc.GetContent(ctx, "alice", cp.ID)
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))

	clone, err := svc.GetNode(ctx, "alice", cp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, clone.Document.Keywords)

	notes, err := svc.GetNotes(ctx, "alice", cp.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "remember", notes[0].Text)
}

func TestAutomationPreHookRewritesDocumentCreate(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	require.NoError(t, svc.CreateAutomationRule(ctx, &models.AutomationRule{
		Name: "tag invoices", Event: models.EventDocumentCreate, Timing: models.TimingPre,
		Order: 1, Active: true,
		Validations: []models.AutomationItem{{Order: 1, Type: "name_contains", Param0: "invoice", Active: true}},
		Actions:     []models.AutomationItem{{Order: 1, Type: "add_keyword", Param0: "finance", Active: true}},
	}))

	doc := createDoc(t, svc, "alice", home, "invoice-42.pdf", "x")
	created, err := svc.GetNode(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"finance"}, created.Document.Keywords)

	plain := createDoc(t, svc, "alice", home, "letter.txt", "x")
	other, err := svc.GetNode(ctx, "alice", plain.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Document.Keywords)
}

func TestExtractionQueue(t *testing.T) {
	svc := newTestService(t, nil, staticExtractor{text: "hello\x00world"})
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	doc := createDoc(t, svc, "alice", home, "a.txt", "hello world")

	count, err := svc.PendingExtractionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	size, err := svc.PendingExtractionSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), size)

	processed, err := svc.ProcessExtractionQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	n, err := svc.GetNode(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.True(t, n.Document.TextExtracted)
	assert.Equal(t, "helloworld", n.Document.ExtractedText)

	count, err = svc.PendingExtractionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExtractionFailureStillMarksDocument(t *testing.T) {
	svc := newTestService(t, nil, staticExtractor{err: errors.New("unsupported format")})
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	doc := createDoc(t, svc, "alice", home, "a.bin", "\x01\x02")

	processed, err := svc.ProcessExtractionQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	n, err := svc.GetNode(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.True(t, n.Document.TextExtracted)
	assert.Empty(t, n.Document.ExtractedText)
}

func TestPropertyGroupSearch(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	doc := createDoc(t, svc, "alice", home, "contract.pdf", "x")

	require.NoError(t, svc.AddPropertyGroup(ctx, "alice", doc.ID, "legal", []models.NodeProperty{
		{Name: "state", Value: "signed"},
	}))

	found, err := svc.FindByPropertyValue(ctx, "alice", "legal", "state", "signed")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, doc.ID, found[0].ID)
}

func TestGetPropertiesAggregatesDocumentState(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	res, err := svc.CreateDocument(ctx, CreateDocumentRequest{
		User: "alice", ParentID: home, Name: "offer.txt", MimeType: "text/plain",
		Content: strings.NewReader("offer body"), Size: 10,
		Keywords: []string{"sales"},
		Notes:    []string{"first draft"},
	})
	require.NoError(t, err)

	_, err = svc.Lock(ctx, "alice", res.Node.ID)
	require.NoError(t, err)

	props, err := svc.GetProperties(ctx, "alice", res.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, "/personal/alice/offer.txt", props.Path)
	assert.Equal(t, "1.0", props.Current.Label)
	assert.Equal(t, []string{"sales"}, props.Node.Document.Keywords)
	require.Len(t, props.Notes, 1)
	assert.Equal(t, "first draft", props.Notes[0].Text)
	require.NotNil(t, props.Node.Document.Lock)
	assert.Equal(t, "alice", props.Node.Document.Lock.Owner)

	_, err = svc.GetProperties(ctx, "alice", home)
	assert.True(t, errors.Is(err, common.ErrPathNotFound))
}

func TestDefaultQuotaAppliesWithoutExplicitRow(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, dialect, err := store.Open(ctx, "sqlite", filepath.Join(dir, "repo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	blobs, err := blob.NewFSStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	svc := New(Config{
		DB: db, Dialect: dialect, Blobs: blobs, Roles: security.StaticResolver{},
		Logger: testLogger(), DefaultQuotaBytes: 5,
	})
	require.NoError(t, svc.Bootstrap(ctx))

	home := userHome(t, svc, "alice")

	// no explicit quota row: the default kicks in
	_, err = svc.CreateDocument(ctx, CreateDocumentRequest{
		User: "alice", ParentID: home, Name: "big.txt", MimeType: "text/plain",
		Content: strings.NewReader("ten bytes!"), Size: 10,
	})
	assert.True(t, errors.Is(err, common.ErrUserQuotaExceeded))

	// an explicit quota overrides the default
	require.NoError(t, svc.SetUserQuota(ctx, "alice", 1024))
	createDoc(t, svc, "alice", home, "big.txt", "ten bytes!")
}

func TestCheckinSucceedsAfterForceUnlock(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	home := userHome(t, svc, "alice")
	doc := createDoc(t, svc, "alice", home, "a.txt", "first")

	_, err := svc.Checkout(ctx, "alice", doc.ID)
	require.NoError(t, err)

	// an administrator force-releases the lock under the open edit session
	_, err = svc.GrantUser(ctx, "alice", doc.ID, "bob", models.AllGrants, false)
	require.NoError(t, err)
	require.NoError(t, svc.Unlock(ctx, "bob", doc.ID, true))

	v, err := svc.Checkin(ctx, "alice", doc.ID, strings.NewReader("second"), 6)
	require.NoError(t, err)
	assert.Equal(t, "2.0", v.Label)

	checkedOut, err := svc.IsCheckedOut(ctx, "alice", doc.ID)
	require.NoError(t, err)
	assert.False(t, checkedOut)
}
