package api

import (
	"net/http"

	"secure-vault/internal/service"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	vault *service.VaultService
}

func NewFileHandler(vault *service.VaultService) *FileHandler {
	return &FileHandler{vault: vault}
}

// GET /api/files?path=/
func (h *FileHandler) List(c *gin.Context) {
	path := c.DefaultQuery("path", "/")

	entries, err := h.vault.ListDirectory(identityFrom(c), path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": entries})
}

// GET /api/files/download?path=...
func (h *FileHandler) Download(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	physical, file, err := h.vault.Download(identityFrom(c), path)
	if err != nil {
		writeError(c, err)
		return
	}
	if file.IsFolder {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot download a folder"})
		return
	}
	c.FileAttachment(physical, file.Filename)
}

// POST /api/files/upload?parent_path=/
func (h *FileHandler) Upload(c *gin.Context) {
	parentPath := c.DefaultQuery("parent_path", "/")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer src.Close()

	created, err := h.vault.Upload(identityFrom(c), parentPath, fileHeader.Filename, src, fileHeader.Size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// POST /api/files/folder?path=...
func (h *FileHandler) CreateFolder(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	created, err := h.vault.CreateFolder(identityFrom(c), path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// PUT /api/files/rename?old_path=...&new_name=...
func (h *FileHandler) Rename(c *gin.Context) {
	oldPath := c.Query("old_path")
	newName := c.Query("new_name")
	if oldPath == "" || newName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old_path and new_name are required"})
		return
	}

	renamed, err := h.vault.Rename(identityFrom(c), oldPath, newName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, renamed)
}

// PUT /api/files/move?source_path=...&dest_parent=...
func (h *FileHandler) Move(c *gin.Context) {
	srcPath := c.Query("source_path")
	destParent := c.Query("dest_parent")
	if srcPath == "" || destParent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_path and dest_parent are required"})
		return
	}

	moved, err := h.vault.Move(identityFrom(c), srcPath, destParent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, moved)
}

// PUT /api/files/copy?source_path=...&dest_parent=...
func (h *FileHandler) Copy(c *gin.Context) {
	srcPath := c.Query("source_path")
	destParent := c.Query("dest_parent")
	if srcPath == "" || destParent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_path and dest_parent are required"})
		return
	}

	copied, err := h.vault.Copy(identityFrom(c), srcPath, destParent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, copied)
}

// DELETE /api/files?path=...
func (h *FileHandler) Delete(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	if err := h.vault.Delete(identityFrom(c), path); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
