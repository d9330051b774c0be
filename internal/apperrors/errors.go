// Package apperrors 定义核心引擎对外的错误种类。
// 处理层用 errors.Is 匹配并映射为HTTP状态码。
package apperrors

import "errors"

var (
	// 任何所有者名下都没有该路径的文件
	ErrNotFound = errors.New("file not found")

	// 文件存在但有效权限级别不足
	ErrPermissionDenied = errors.New("permission denied")

	// 分享请求的目标不是恰好一个(用户或组)
	ErrInvalidShareTarget = errors.New("exactly one of target user or target group must be set")

	// 权限级别不在 {read, write, full} 中
	ErrInvalidLevel = errors.New("invalid permission level")

	// 路径解析将逃出所有者的存储根目录
	ErrTraversalRejected = errors.New("path escapes storage root")

	// 上传超过配置的大小上限
	ErrFileTooLarge = errors.New("file too large")

	// 目标位置已存在同名节点
	ErrAlreadyExists = errors.New("file already exists")
)
