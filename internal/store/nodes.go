package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avasilyev/docbase/internal/common"
	"github.com/avasilyev/docbase/internal/models"
)

const nodeColumns = `id, parent_id, kind, name, context, author, created,
	mime_type, checked_out, text_extracted, extracted_text, language,
	lock_token, lock_owner, lock_created,
	mail_from, mail_to, mail_subject, mail_sent`

// CreateNode inserts the node row, its permission rows and, for documents,
// the keyword/category/subscriptor/property collections. Fails with
// ErrItemExists when a sibling of the same name exists.
func (s *Store) CreateNode(ctx context.Context, n *models.Node) error {
	if err := s.CheckItemExistence(ctx, n.ParentID, n.Name); err != nil {
		return err
	}

	var parent any
	if n.ParentID != "" {
		parent = n.ParentID
	}

	var (
		mimeType                      string
		checkedOut, textExtracted     bool
		extractedText, language       string
		mailFrom, mailTo, mailSubject string
		mailSent                      int64
	)

	switch n.Kind {
	case models.KindDocument:
		d := n.Document
		mimeType = d.MimeType
		checkedOut = d.CheckedOut
		textExtracted = d.TextExtracted
		extractedText = d.ExtractedText
		language = d.Language
	case models.KindMail:
		m := n.Mail
		mailFrom = m.From
		mailTo = m.To
		mailSubject = m.Subject
		mailSent = m.Sent.Unix()
		textExtracted = true
	default:
		textExtracted = true
	}

	_, err := s.exec(ctx, `
		INSERT INTO nodes (id, parent_id, kind, name, context, author, created,
			mime_type, checked_out, text_extracted, extracted_text, language,
			mail_from, mail_to, mail_subject, mail_sent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, parent, string(n.Kind), n.Name, n.Context, n.Author, n.Created.Unix(),
		mimeType, checkedOut, textExtracted, extractedText, language,
		mailFrom, mailTo, mailSubject, mailSent)
	if err != nil {
		return err
	}

	for principal, bits := range n.UserPermissions {
		if err := s.SetPermission(ctx, n.ID, principal, false, bits); err != nil {
			return err
		}
	}
	for principal, bits := range n.RolePermissions {
		if err := s.SetPermission(ctx, n.ID, principal, true, bits); err != nil {
			return err
		}
	}

	if n.Kind == models.KindDocument {
		if err := s.replaceDocumentCollections(ctx, n.ID, n.Document); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) replaceDocumentCollections(ctx context.Context, nodeID string, d *models.DocumentProps) error {
	for _, kw := range d.Keywords {
		if _, err := s.exec(ctx, `INSERT INTO keywords (node_id, keyword) VALUES (?, ?)`, nodeID, kw); err != nil {
			return err
		}
	}
	for _, cat := range d.Categories {
		if _, err := s.exec(ctx, `INSERT INTO categories (node_id, category_id) VALUES (?, ?)`, nodeID, cat); err != nil {
			return err
		}
	}
	for _, sub := range d.Subscriptors {
		if _, err := s.exec(ctx, `INSERT INTO subscriptors (node_id, user_id) VALUES (?, ?)`, nodeID, sub); err != nil {
			return err
		}
	}
	for _, p := range d.Properties {
		if _, err := s.exec(ctx, `INSERT INTO node_properties (node_id, grp, name, value) VALUES (?, ?, ?, ?)`,
			nodeID, p.Group, p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(sc rowScanner) (*models.Node, error) {
	var (
		n                             models.Node
		parent                        sql.NullString
		kind                          string
		created                       int64
		mimeType                      string
		checkedOut, textExtracted     bool
		extractedText, language       string
		lockToken, lockOwner          sql.NullString
		lockCreated                   sql.NullInt64
		mailFrom, mailTo, mailSubject string
		mailSent                      int64
	)

	err := sc.Scan(&n.ID, &parent, &kind, &n.Name, &n.Context, &n.Author, &created,
		&mimeType, &checkedOut, &textExtracted, &extractedText, &language,
		&lockToken, &lockOwner, &lockCreated,
		&mailFrom, &mailTo, &mailSubject, &mailSent)
	if err != nil {
		return nil, err
	}

	n.ParentID = parent.String
	n.Kind = models.NodeKind(kind)
	n.Created = time.Unix(created, 0).UTC()

	switch n.Kind {
	case models.KindDocument:
		d := &models.DocumentProps{
			MimeType:      mimeType,
			CheckedOut:    checkedOut,
			TextExtracted: textExtracted,
			ExtractedText: extractedText,
			Language:      language,
		}
		if lockToken.Valid {
			d.Lock = &models.Lock{
				Token:   lockToken.String,
				Owner:   lockOwner.String,
				Created: time.Unix(lockCreated.Int64, 0).UTC(),
			}
		}
		n.Document = d
	case models.KindMail:
		n.Mail = &models.MailProps{
			From:    mailFrom,
			To:      mailTo,
			Subject: mailSubject,
			Sent:    time.Unix(mailSent, 0).UTC(),
		}
	}

	return &n, nil
}

// FindByPk loads one node with its permission maps and, for documents, the
// keyword/category/subscriptor/property collections.
func (s *Store) FindByPk(ctx context.Context, id string) (*models.Node, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+nodeColumns+` FROM nodes WHERE id=?`), id)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrPathNotFound, id)
	}
	if err != nil {
		return nil, wrapDB(err)
	}

	if err := s.hydrate(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) hydrate(ctx context.Context, n *models.Node) error {
	users, roles, err := s.NodePermissions(ctx, n.ID)
	if err != nil {
		return err
	}
	n.UserPermissions = users
	n.RolePermissions = roles

	if n.Kind != models.KindDocument {
		return nil
	}

	d := n.Document
	if d.Keywords, err = s.stringColumn(ctx, `SELECT keyword FROM keywords WHERE node_id=? ORDER BY keyword`, n.ID); err != nil {
		return err
	}
	if d.Categories, err = s.stringColumn(ctx, `SELECT category_id FROM categories WHERE node_id=? ORDER BY category_id`, n.ID); err != nil {
		return err
	}
	if d.Subscriptors, err = s.stringColumn(ctx, `SELECT user_id FROM subscriptors WHERE node_id=? ORDER BY user_id`, n.ID); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, s.q(`SELECT grp, name, value FROM node_properties WHERE node_id=? ORDER BY grp, name`), n.ID)
	if err != nil {
		return wrapDB(err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.NodeProperty
		if err := rows.Scan(&p.Group, &p.Name, &p.Value); err != nil {
			return wrapDB(err)
		}
		d.Properties = append(d.Properties, p)
	}
	return wrapDB(rows.Err())
}

func (s *Store) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, v)
	}
	return out, wrapDB(rows.Err())
}

// FindByParent lists the children of a folder ordered by name.
func (s *Store) FindByParent(ctx context.Context, parentID string) ([]*models.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+nodeColumns+` FROM nodes WHERE parent_id=? ORDER BY name`), parentID)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []*models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err)
	}

	for _, n := range out {
		if err := s.hydrate(ctx, n); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FindChildByName resolves one child of parentID by name.
func (s *Store) FindChildByName(ctx context.Context, parentID, name string) (*models.Node, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+nodeColumns+` FROM nodes WHERE parent_id=? AND name=?`), parentID, name)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrPathNotFound, name)
	}
	if err != nil {
		return nil, wrapDB(err)
	}
	if err := s.hydrate(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// FindRoot resolves the repository root node.
func (s *Store) FindRoot(ctx context.Context) (*models.Node, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+nodeColumns+` FROM nodes WHERE parent_id IS NULL`))

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: root", common.ErrPathNotFound)
	}
	if err != nil {
		return nil, wrapDB(err)
	}
	if err := s.hydrate(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// HasChildren reports whether the node has any child.
func (s *Store) HasChildren(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM nodes WHERE parent_id=?`), id).Scan(&count)
	if err != nil {
		return false, wrapDB(err)
	}
	return count > 0, nil
}

// ChildIDs returns the ids of the node's children, folders first so tree
// walks visit containers before leaves.
func (s *Store) ChildIDs(ctx context.Context, id string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT id FROM nodes WHERE parent_id=? ORDER BY CASE kind WHEN 'folder' THEN 0 ELSE 1 END, name`, id)
}

// ItemExists reports whether parentID already has a child called name.
func (s *Store) ItemExists(ctx context.Context, parentID, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT COUNT(*) FROM nodes WHERE parent_id=? AND name=?`), parentID, name).Scan(&count)
	if err != nil {
		return false, wrapDB(err)
	}
	return count > 0, nil
}

// CheckItemExistence fails with ErrItemExists when parentID already has a
// child called name.
func (s *Store) CheckItemExistence(ctx context.Context, parentID, name string) error {
	exists, err := s.ItemExists(ctx, parentID, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", common.ErrItemExists, name)
	}
	return nil
}

// Rename updates the node name after re-checking the sibling collision.
func (s *Store) Rename(ctx context.Context, id, newName string) error {
	n, err := s.FindByPk(ctx, id)
	if err != nil {
		return err
	}
	if err := s.CheckItemExistence(ctx, n.ParentID, newName); err != nil {
		return err
	}
	_, err = s.exec(ctx, `UPDATE nodes SET name=? WHERE id=?`, newName, id)
	return err
}

// Move re-parents the node after re-checking the name collision at the
// destination. The caller handles context rewriting.
func (s *Store) Move(ctx context.Context, id, dstID string) error {
	n, err := s.FindByPk(ctx, id)
	if err != nil {
		return err
	}
	if err := s.CheckItemExistence(ctx, dstID, n.Name); err != nil {
		return err
	}
	_, err = s.exec(ctx, `UPDATE nodes SET parent_id=? WHERE id=?`, dstID, id)
	return err
}

// SetContext rewrites the context tag of a single node.
func (s *Store) SetContext(ctx context.Context, id, context string) error {
	_, err := s.exec(ctx, `UPDATE nodes SET context=? WHERE id=?`, context, id)
	return err
}

// SoftDelete moves the node under the trash folder, probing "base (n).ext"
// until a collision-free name is found, so trash never silently overwrites.
func (s *Store) SoftDelete(ctx context.Context, id, trashID string) (string, error) {
	n, err := s.FindByPk(ctx, id)
	if err != nil {
		return "", err
	}
	trash, err := s.FindByPk(ctx, trashID)
	if err != nil {
		return "", err
	}

	base, ext := splitName(n.Name)
	testName := n.Name

	for i := 1; ; i++ {
		exists, err := s.ItemExists(ctx, trashID, testName)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		if ext != "" {
			testName = fmt.Sprintf("%s (%d).%s", base, i, ext)
		} else {
			testName = fmt.Sprintf("%s (%d)", base, i)
		}
	}

	_, err = s.exec(ctx, `UPDATE nodes SET parent_id=?, context=?, name=? WHERE id=?`,
		trashID, trash.Context, testName, id)
	if err != nil {
		return "", err
	}
	return testName, nil
}

// splitName divides a file name into base and extension ("report.pdf" ->
// "report", "pdf"). Names without a dot have an empty extension.
func splitName(name string) (base, ext string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// DeleteNode removes the node row itself. Dependent rows must already be
// gone; purge order is versions, notes, bookmarks, collections, grants,
// then the node.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `DELETE FROM nodes WHERE id=?`, id)
	return err
}

// DeleteDependents removes every dependent record of a node except its
// versions: notes, bookmarks, keywords, categories, subscriptors,
// properties and permission rows. Category references held by OTHER
// documents pointing at this node are left alone on purpose; they are weak
// and tolerate dangling ids.
func (s *Store) DeleteDependents(ctx context.Context, id string) error {
	for _, q := range []string{
		`DELETE FROM notes WHERE node_id=?`,
		`DELETE FROM bookmarks WHERE node_id=?`,
		`DELETE FROM keywords WHERE node_id=?`,
		`DELETE FROM categories WHERE node_id=?`,
		`DELETE FROM subscriptors WHERE node_id=?`,
		`DELETE FROM node_properties WHERE node_id=?`,
		`DELETE FROM permissions WHERE node_id=?`,
	} {
		if _, err := s.exec(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

// NodePath renders the node's absolute path by walking up to the root.
func (s *Store) NodePath(ctx context.Context, id string) (string, error) {
	var parts []string
	cur := id

	for cur != "" {
		var name string
		var parent sql.NullString
		err := s.db.QueryRowContext(ctx, s.q(`SELECT name, parent_id FROM nodes WHERE id=?`), cur).
			Scan(&name, &parent)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", common.ErrPathNotFound, cur)
		}
		if err != nil {
			return "", wrapDB(err)
		}
		if !parent.Valid {
			break // root is not part of the rendered path
		}
		parts = append([]string{name}, parts...)
		cur = parent.String
	}

	return "/" + strings.Join(parts, "/"), nil
}

// ResolvePath resolves an absolute path ("/personal/alice/a.txt") to a
// node id.
func (s *Store) ResolvePath(ctx context.Context, path string) (string, error) {
	root, err := s.FindRoot(ctx)
	if err != nil {
		return "", err
	}

	cur := root.ID
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		var id string
		err := s.db.QueryRowContext(ctx,
			s.q(`SELECT id FROM nodes WHERE parent_id=? AND name=?`), cur, part).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", common.ErrPathNotFound, path)
		}
		if err != nil {
			return "", wrapDB(err)
		}
		cur = id
	}
	return cur, nil
}

// FindByCategory lists the documents referencing the given category folder.
func (s *Store) FindByCategory(ctx context.Context, categoryID string) ([]*models.Node, error) {
	return s.findByJoin(ctx,
		`SELECT `+prefixedNodeColumns+` FROM nodes n
		 JOIN categories c ON c.node_id = n.id WHERE c.category_id=? ORDER BY n.name`, categoryID)
}

// FindByKeyword lists the documents tagged with the given keyword.
func (s *Store) FindByKeyword(ctx context.Context, keyword string) ([]*models.Node, error) {
	return s.findByJoin(ctx,
		`SELECT `+prefixedNodeColumns+` FROM nodes n
		 JOIN keywords k ON k.node_id = n.id WHERE k.keyword=? ORDER BY n.name`, keyword)
}

// FindByPropertyValue lists the documents holding a property value.
func (s *Store) FindByPropertyValue(ctx context.Context, group, name, value string) ([]*models.Node, error) {
	return s.findByJoin(ctx,
		`SELECT `+prefixedNodeColumns+` FROM nodes n
		 JOIN node_properties p ON p.node_id = n.id
		 WHERE p.grp=? AND p.name=? AND p.value=? ORDER BY n.name`, group, name, value)
}

var prefixedNodeColumns = func() string {
	cols := strings.Split(nodeColumns, ",")
	for i, c := range cols {
		cols[i] = "n." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}()

func (s *Store) findByJoin(ctx context.Context, query string, args ...any) ([]*models.Node, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, wrapDB(err)
	}
	defer rows.Close()

	var out []*models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, wrapDB(err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB(err)
	}

	for _, n := range out {
		if err := s.hydrate(ctx, n); err != nil {
			return nil, err
		}
	}
	return out, nil
}
