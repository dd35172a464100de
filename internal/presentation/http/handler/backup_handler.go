package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pharmacy-invoice/internal/application/service"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/dto/response"
	"github.com/sangkips/pharmacy-invoice/pkg/apperror"
)

// BackupHandler triggers on-demand catalog backups
type BackupHandler struct {
	backupService *service.BackupService
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(backupService *service.BackupService) *BackupHandler {
	return &BackupHandler{backupService: backupService}
}

// Create writes a backup now
func (h *BackupHandler) Create(c *gin.Context) {
	result, err := h.backupService.Run(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.NewInternalError("Backup failed", err))
		return
	}
	response.Created(c, "Backup written", result)
}
