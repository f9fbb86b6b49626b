package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

const (
	// maxUploadSize caps multipart uploads, which are buffered in memory
	// before being forwarded to the blob store.
	maxUploadSize = 100 << 20 // 100MB

	// downloadURLTTL is the validity window of presigned download URLs.
	downloadURLTTL = time.Hour
)

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// RenameRequest represents a rename request
type RenameRequest struct {
	Name string `json:"name"`
}

// optionalParent normalizes a parent id parameter: empty means root.
func optionalParent(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// ListFiles returns the live direct children of a folder (or the root)
// together with the breadcrumb path to that folder.
func (h *Handler) ListFiles(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	parentID := optionalParent(c.QueryParam("parentId"))

	entries, err := h.listChildren(claims.UserID, parentID)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to list files"))
	}

	path := []PathSegment{}
	if parentID != nil {
		path, err = h.buildBreadcrumb(*parentID, claims.UserID)
		if err != nil {
			return RespondError(c, ErrInternal("Failed to resolve path"))
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   entries,
		"path":    path,
	})
}

// CreateFolder creates a folder entry. Sibling folders of the same owner
// and parent must have distinct names.
func (h *Handler) CreateFolder(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	var req CreateFolderRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return RespondError(c, ErrBadRequest("Folder name is required"))
	}

	exists, err := h.folderNameExists(claims.UserID, req.ParentID, name)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to check folder name"))
	}
	if exists {
		return RespondError(c, ErrBadRequest("A folder with this name already exists"))
	}

	folder := &FileEntry{
		ID:       uuid.NewString(),
		Name:     name,
		Kind:     KindFolder,
		ParentID: req.ParentID,
		OwnerID:  claims.UserID,
	}

	if err := h.insertEntry(folder); err != nil {
		return RespondError(c, ErrInternal("Failed to create folder"))
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Folder created successfully",
		"data":    folder,
	})
}

// UploadFile accepts a single multipart file, stores the blob and inserts
// the metadata record.
func (h *Handler) UploadFile(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return RespondError(c, ErrBadRequest("No file uploaded"))
	}

	if fileHeader.Size > maxUploadSize {
		return RespondError(c, ErrFileTooLarge(maxUploadSize))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return RespondError(c, ErrInternal("Failed to read uploaded file"))
	}
	defer src.Close()

	// The declared size is client-provided; re-check while buffering.
	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return RespondError(c, ErrInternal("Failed to read uploaded file"))
	}
	if int64(len(data)) > maxUploadSize {
		return RespondError(c, ErrFileTooLarge(maxUploadSize))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := claims.UserID + "/" + uuid.NewString() + filepath.Ext(fileHeader.Filename)

	location, err := h.blob.Put(c.Request().Context(), key, data, contentType)
	if err != nil {
		LogError("blob upload failed", err, "key", key, "owner_id", claims.UserID)
		return RespondError(c, ErrInternal("Failed to store file"))
	}

	entry := &FileEntry{
		ID:           uuid.NewString(),
		Name:         fileHeader.Filename,
		Kind:         KindFile,
		Size:         int64(len(data)),
		MimeType:     lo.ToPtr(contentType),
		BlobKey:      lo.ToPtr(key),
		BlobLocation: lo.ToPtr(location),
		ParentID:     optionalParent(c.FormValue("parentId")),
		OwnerID:      claims.UserID,
	}

	if err := h.insertEntry(entry); err != nil {
		return RespondError(c, ErrInternal("Failed to save file record"))
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "File uploaded successfully",
		"file":    entry,
	})
}

// DownloadFile issues a presigned GET URL for a live owned file.
func (h *Handler) DownloadFile(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	entry, err := h.findEntry(c.Param("id"), claims.UserID)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to look up file"))
	}
	if entry == nil || entry.Kind != KindFile || entry.BlobKey == nil {
		return RespondError(c, ErrNotFound("File"))
	}

	url, err := h.blob.PresignedGetURL(c.Request().Context(), *entry.BlobKey, downloadURLTTL)
	if err != nil {
		LogError("presign failed", err, "entry_id", entry.ID, "blob_key", *entry.BlobKey)
		return RespondError(c, ErrInternal("Failed to generate download URL"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"url":     url,
	})
}

// RenameEntry renames a file or folder in place. Siblings are not checked
// for name collisions here; only folder creation enforces uniqueness.
func (h *Handler) RenameEntry(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	var req RenameRequest
	if err := c.Bind(&req); err != nil {
		return RespondError(c, ErrBadRequest("Invalid request"))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return RespondError(c, ErrBadRequest("Name is required"))
	}

	id := c.Param("id")
	ok, err := h.renameEntry(id, claims.UserID, name)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to rename"))
	}
	if !ok {
		return RespondError(c, ErrNotFound("File or folder"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Renamed successfully",
		"data":    map[string]string{"id": id, "name": name},
	})
}

// DeleteEntry soft-deletes a file or a whole folder subtree. File blobs are
// removed from the blob store best-effort; the metadata flip is what makes
// an entry deleted.
func (h *Handler) DeleteEntry(c echo.Context) error {
	claims, err := RequireClaims(c)
	if err != nil {
		return err
	}

	entry, err := h.findEntry(c.Param("id"), claims.UserID)
	if err != nil {
		return RespondError(c, ErrInternal("Failed to look up entry"))
	}
	if entry == nil {
		return RespondError(c, ErrNotFound("File or folder"))
	}

	ctx := c.Request().Context()

	if entry.Kind == KindFile && entry.BlobKey != nil {
		if err := h.blob.Delete(ctx, *entry.BlobKey); err != nil {
			LogError("blob delete failed", err, "entry_id", entry.ID, "blob_key", *entry.BlobKey)
		}
	}

	if entry.Kind == KindFolder {
		if err := h.deleteSubtree(ctx, entry.ID, claims.UserID); err != nil {
			return RespondError(c, ErrInternal("Failed to delete folder contents"))
		}
	}

	if err := h.markEntryDeleted(entry.ID); err != nil {
		return RespondError(c, ErrInternal("Failed to delete entry"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Deleted successfully",
	})
}
