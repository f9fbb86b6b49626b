package handlers

import (
	"context"
	"database/sql"
	"time"
)

// Entry kinds
const (
	KindFile   = "file"
	KindFolder = "folder"
)

// maxBreadcrumbDepth bounds the ancestor walk. The API never creates cycles,
// but a corrupted parent pointer must not hang the request.
const maxBreadcrumbDepth = 100

// FileEntry represents a file or folder record in the metadata store.
type FileEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Size         int64     `json:"size"`
	MimeType     *string   `json:"mimeType,omitempty"`
	BlobKey      *string   `json:"blobKey,omitempty"`
	BlobLocation *string   `json:"blobLocation,omitempty"`
	ParentID     *string   `json:"parentId,omitempty"`
	OwnerID      string    `json:"ownerId"`
	IsDeleted    bool      `json:"isDeleted"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PathSegment is one breadcrumb element.
type PathSegment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const fileEntryColumns = `id, name, kind, size, mime_type, blob_key, blob_location, parent_id, owner_id, is_deleted, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFileEntry(row rowScanner) (*FileEntry, error) {
	var e FileEntry
	var mimeType, blobKey, blobLocation, parentID sql.NullString

	err := row.Scan(
		&e.ID, &e.Name, &e.Kind, &e.Size,
		&mimeType, &blobKey, &blobLocation, &parentID,
		&e.OwnerID, &e.IsDeleted, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if mimeType.Valid {
		e.MimeType = &mimeType.String
	}
	if blobKey.Valid {
		e.BlobKey = &blobKey.String
	}
	if blobLocation.Valid {
		e.BlobLocation = &blobLocation.String
	}
	if parentID.Valid {
		e.ParentID = &parentID.String
	}

	return &e, nil
}

// findEntry looks up a live (not soft-deleted) entry by id and owner.
// Returns nil without error when no such entry exists.
func (h *Handler) findEntry(id, ownerID string) (*FileEntry, error) {
	row := h.db.QueryRow(`
		SELECT `+fileEntryColumns+`
		FROM file_entries
		WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE
	`, id, ownerID)

	entry, err := scanFileEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// listChildren returns the live direct children of parentID (nil = root)
// for an owner, folders before files, then by name. Postgres compares
// names with the database collation, so ordering is case-sensitive for C
// collation and locale-dependent otherwise.
func (h *Handler) listChildren(ownerID string, parentID *string) ([]FileEntry, error) {
	rows, err := h.db.Query(`
		SELECT `+fileEntryColumns+`
		FROM file_entries
		WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND is_deleted = FALSE
		ORDER BY kind DESC, name ASC
	`, ownerID, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []FileEntry{}
	for rows.Next() {
		entry, err := scanFileEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// insertEntry persists a new entry. Timestamps are assigned here so the
// created record can be returned without a second query.
func (h *Handler) insertEntry(e *FileEntry) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := h.db.Exec(`
		INSERT INTO file_entries (id, name, kind, size, mime_type, blob_key, blob_location, parent_id, owner_id, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11)
	`, e.ID, e.Name, e.Kind, e.Size, e.MimeType, e.BlobKey, e.BlobLocation, e.ParentID, e.OwnerID, e.CreatedAt, e.UpdatedAt)
	return err
}

// markEntryDeleted flips the soft-delete flag. Entries are never
// physically removed.
func (h *Handler) markEntryDeleted(id string) error {
	_, err := h.db.Exec(`
		UPDATE file_entries SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1
	`, id)
	return err
}

// renameEntry updates the name of a live owned entry. Returns false when
// the entry does not exist, is deleted, or belongs to someone else.
func (h *Handler) renameEntry(id, ownerID, name string) (bool, error) {
	res, err := h.db.Exec(`
		UPDATE file_entries SET name = $1, updated_at = NOW()
		WHERE id = $2 AND owner_id = $3 AND is_deleted = FALSE
	`, name, id, ownerID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// folderNameExists reports whether a live folder with the given name
// already exists among the siblings under parentID.
func (h *Handler) folderNameExists(ownerID string, parentID *string, name string) (bool, error) {
	var exists bool
	err := h.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM file_entries
			WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
			  AND name = $3 AND kind = 'folder' AND is_deleted = FALSE
		)
	`, ownerID, parentID, name).Scan(&exists)
	return exists, err
}

// deleteSubtree soft-deletes every live descendant of folderID, depth-first.
// Child folders have their own subtree processed before the child itself is
// flipped, so the deepest entries are marked first and the walk ends just
// below the root, which the caller flips separately. File blobs are removed
// best-effort: a blob store failure is logged and the metadata deletion
// proceeds. A metadata write failure aborts the remaining walk. Re-invoking
// on the same root is idempotent because already-deleted children are
// excluded from the children query.
func (h *Handler) deleteSubtree(ctx context.Context, folderID, ownerID string) error {
	children, err := h.listChildren(ownerID, &folderID)
	if err != nil {
		return err
	}

	for i := range children {
		child := &children[i]

		if child.Kind == KindFolder {
			if err := h.deleteSubtree(ctx, child.ID, ownerID); err != nil {
				return err
			}
		} else if child.BlobKey != nil {
			if err := h.blob.Delete(ctx, *child.BlobKey); err != nil {
				LogError("blob delete failed during subtree removal", err,
					"entry_id", child.ID, "blob_key", *child.BlobKey)
			}
		}

		if err := h.markEntryDeleted(child.ID); err != nil {
			return err
		}
	}

	return nil
}

// buildBreadcrumb walks parent pointers from the given folder up to the
// root and returns the ancestor chain root-first. The walk stops at a
// missing or deleted ancestor, and is depth-bounded in case a corrupted
// pointer ever forms a cycle.
func (h *Handler) buildBreadcrumb(folderID, ownerID string) ([]PathSegment, error) {
	path := []PathSegment{}

	current := &folderID
	for depth := 0; current != nil && depth < maxBreadcrumbDepth; depth++ {
		var id, name string
		var parentID sql.NullString

		err := h.db.QueryRow(`
			SELECT id, name, parent_id FROM file_entries
			WHERE id = $1 AND owner_id = $2 AND is_deleted = FALSE
		`, *current, ownerID).Scan(&id, &name, &parentID)
		if err == sql.ErrNoRows {
			break
		}
		if err != nil {
			return nil, err
		}

		path = append([]PathSegment{{ID: id, Name: name}}, path...)

		if parentID.Valid {
			next := parentID.String
			current = &next
		} else {
			current = nil
		}
	}

	return path, nil
}
