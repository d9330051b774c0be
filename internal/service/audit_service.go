package service

import (
	"secure-vault/internal/model"
	"secure-vault/internal/repository"
	"secure-vault/pkg/logger"

	"go.uber.org/zap"
)

// AuditService 记录安全相关动作。写入是fire-and-forget：
// 审计落库失败只上报运维日志，绝不让主操作失败，也不无声丢弃。
type AuditService struct {
	auditRepo *repository.AuditRepository
}

func NewAuditService(auditRepo *repository.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Record 追加一条审计记录。userID为nil表示系统动作或未认证的尝试。
func (s *AuditService) Record(userID *uint, action, resource, ip, details string) {
	entry := &model.AuditLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IPAddress: ip,
		Details:   details,
	}
	if err := s.auditRepo.Create(entry); err != nil {
		logger.L.Error("audit log write failed",
			zap.String("action", action),
			zap.String("resource", resource),
			zap.Error(err))
	}
}

// RecordDenied 记录一次权限拒绝
func (s *AuditService) RecordDenied(userID uint, action, resource, ip string) {
	s.Record(&userID, model.ActionDenied, resource, ip, "attempted action: "+action)
}

// ListRecent 返回最近的审计条目(管理员接口)
func (s *AuditService) ListRecent(limit int) ([]model.AuditLog, error) {
	return s.auditRepo.ListRecent(limit)
}
