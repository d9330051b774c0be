package api

import (
	"net/http"
	"strconv"

	"secure-vault/internal/service"

	"github.com/gin-gonic/gin"
)

type ShareHandler struct {
	shareService *service.ShareService
}

func NewShareHandler(shareService *service.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type shareRequest struct {
	FilePath       string `json:"file_path" binding:"required"`
	TargetUsername string `json:"target_username"`
	TargetGroup    string `json:"target_group"`
	Permission     string `json:"permission"`
}

// POST /api/shares
func (h *ShareHandler) Create(c *gin.Context) {
	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Permission == "" {
		req.Permission = "read"
	}

	grant, err := h.shareService.Share(identityFrom(c), req.FilePath, req.TargetUsername, req.TargetGroup, req.Permission)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": grant.ID, "status": "shared"})
}

// DELETE /api/shares/:id
func (h *ShareHandler) Delete(c *gin.Context) {
	grantID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grant id"})
		return
	}

	if err := h.shareService.Unshare(identityFrom(c), uint(grantID)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unshared"})
}

// GET /api/shares/file?file_path=...
func (h *ShareHandler) ListForFile(c *gin.Context) {
	filePath := c.Query("file_path")
	if filePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_path is required"})
		return
	}

	grants, err := h.shareService.ListGrants(identityFrom(c), filePath)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": grants})
}

// GET /api/shares/with-me
func (h *ShareHandler) SharedWithMe(c *gin.Context) {
	files, err := h.shareService.SharedWithMe(identityFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shared_files": files})
}
