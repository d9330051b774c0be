// Package storage 负责物理存储：逻辑路径到所有者物理目录的解析与磁盘读写。
//
// 所有文件只物理存放在所有者的目录树 <root>/<owner-username>/ 下。
// 分享不会把字节复制进接收者的目录；接收者的读写都解析到所有者的物理路径。
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"secure-vault/internal/apperrors"
)

type Storage struct {
	root        string
	maxFileSize int64
}

func New(root string, maxFileSize int64) (*Storage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Storage{root: root, maxFileSize: maxFileSize}, nil
}

func (s *Storage) MaxFileSize() int64 {
	return s.maxFileSize
}

// 规范化逻辑路径：保证以"/"开头，消去"."与多余分隔符。
// 含有".."的路径一律拒绝，这个检查与权限检查无关，无条件执行。
func NormalizeLogicalPath(p string) (string, error) {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", apperrors.ErrTraversalRejected
		}
	}
	cleaned := path.Clean(p)
	if !strings.HasPrefix(cleaned, "/") {
		return "", apperrors.ErrTraversalRejected
	}
	return cleaned, nil
}

// ParentOf 返回逻辑路径的父路径，顶层节点的父路径为"/"
func ParentOf(logicalPath string) string {
	parent := path.Dir(logicalPath)
	if parent == "." || parent == "" {
		return "/"
	}
	return parent
}

// JoinLogical 把文件名拼到父路径下
func JoinLogical(parentPath, name string) string {
	return path.Join(parentPath, name)
}

// BaseName 返回逻辑路径的最后一段
func BaseName(logicalPath string) string {
	return path.Base(logicalPath)
}

// ValidateName 校验客户端提供的名字是单个路径段。
// 权限检查针对的是父文件夹，名字里带分隔符或".."会把
// 最终路径拼到检查范围之外，一律拒绝。
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsRune(name, '/') || strings.ContainsRune(name, '\\') {
		return apperrors.ErrTraversalRejected
	}
	return nil
}

// 确保所有者的存储根存在并返回它
func (s *Storage) UserRoot(username string) (string, error) {
	root := filepath.Join(s.root, username)
	if err := os.MkdirAll(root, 0750); err != nil {
		return "", fmt.Errorf("failed to create user storage directory: %w", err)
	}
	return root, nil
}

// PhysicalPath 把逻辑路径解析为所有者目录树下的物理路径。
// 解析只取决于所有者身份，与请求者无关。解析结果必须仍在
// 所有者的根目录内，否则返回 ErrTraversalRejected。
func (s *Storage) PhysicalPath(ownerUsername, logicalPath string) (string, error) {
	normalized, err := NormalizeLogicalPath(logicalPath)
	if err != nil {
		return "", err
	}

	userRoot, err := s.UserRoot(ownerUsername)
	if err != nil {
		return "", err
	}

	abs := filepath.Join(userRoot, filepath.FromSlash(strings.TrimPrefix(normalized, "/")))

	// 独立的包含性检查，不信任上面的字符串处理
	rel, err := filepath.Rel(userRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.ErrTraversalRejected
	}
	return abs, nil
}

// Save 把内容写入所有者目录树下的物理位置，返回写入的字节数
func (s *Storage) Save(ownerUsername, logicalPath string, src io.Reader) (int64, error) {
	abs, err := s.PhysicalPath(ownerUsername, logicalPath)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0750); err != nil {
		return 0, fmt.Errorf("failed to create parent directory: %w", err)
	}

	dst, err := os.Create(abs)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		return 0, fmt.Errorf("failed to save file: %w", err)
	}
	return written, nil
}

// Mkdir 在所有者目录树下创建文件夹
func (s *Storage) Mkdir(ownerUsername, logicalPath string) error {
	abs, err := s.PhysicalPath(ownerUsername, logicalPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err == nil {
		return apperrors.ErrAlreadyExists
	}
	if err := os.MkdirAll(abs, 0750); err != nil {
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// Exists 检查物理位置是否存在
func (s *Storage) Exists(ownerUsername, logicalPath string) bool {
	abs, err := s.PhysicalPath(ownerUsername, logicalPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Move 在同一所有者目录树内移动或重命名
func (s *Storage) Move(ownerUsername, oldPath, newPath string) error {
	absOld, err := s.PhysicalPath(ownerUsername, oldPath)
	if err != nil {
		return err
	}
	absNew, err := s.PhysicalPath(ownerUsername, newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}

// Remove 删除物理文件或文件夹(递归)
func (s *Storage) Remove(ownerUsername, logicalPath string) error {
	abs, err := s.PhysicalPath(ownerUsername, logicalPath)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Copy 把源所有者树下的文件或文件夹复制到目标所有者树下，
// 返回复制的字节数(文件夹为0)。复制是显式操作，产生新的物理副本。
func (s *Storage) Copy(srcOwner, srcPath, dstOwner, dstPath string) (int64, error) {
	absSrc, err := s.PhysicalPath(srcOwner, srcPath)
	if err != nil {
		return 0, err
	}
	absDst, err := s.PhysicalPath(dstOwner, dstPath)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(absSrc)
	if err != nil {
		return 0, fmt.Errorf("source not found on disk: %w", err)
	}

	if info.IsDir() {
		return 0, copyTree(absSrc, absDst)
	}
	return copyFile(absSrc, absDst)
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer out.Close()

	return io.Copy(out, in)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		_, err = copyFile(p, target)
		return err
	})
}

// 根据扩展名确定MIME类型
func DetectMimeType(filename string) string {
	mimeType := "application/octet-stream" // 默认类型
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		mimeType = "image/jpeg"
	case ".png":
		mimeType = "image/png"
	case ".gif":
		mimeType = "image/gif"
	case ".pdf":
		mimeType = "application/pdf"
	case ".doc", ".docx":
		mimeType = "application/msword"
	case ".xls", ".xlsx":
		mimeType = "application/vnd.ms-excel"
	case ".txt":
		mimeType = "text/plain"
	case ".mp3":
		mimeType = "audio/mpeg"
	case ".mp4":
		mimeType = "video/mp4"
	}
	return mimeType
}
