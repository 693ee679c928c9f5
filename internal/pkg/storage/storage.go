package storage

import (
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/3Eeeecho/go-pan/internal/config"
)

var (
	ErrTooLarge      = errors.New("content exceeds size limit")
	ErrNameExhausted = errors.New("no free name available")
	ErrOutsideRoot   = errors.New("path escapes storage root")
)

// StorageService 定义了本地目录树上的文件存储操作
type StorageService interface {
	// Root 返回存储根目录的绝对路径
	Root() string
	// EnsureDir 创建目录，已存在不视为错误
	EnsureDir(dir string) error
	// MakeDir 同 EnsureDir，返回 true 表示目录由本次调用创建
	MakeDir(dir string) (bool, error)
	// Stage 将数据流写入暂存区，超过 limit 字节返回 ErrTooLarge 且不留下任何文件
	Stage(r io.Reader, limit int64) (*StagedFile, error)
	// Digest 按固定大小分块流式计算文件摘要，返回小写十六进制
	Digest(path string) (string, error)
	// Commit 把暂存文件移动到 dir 下一个空闲的名字，taken 用于额外检查元数据中的同名条目
	Commit(staged *StagedFile, dir, name string, taken func(candidate string) (bool, error)) (finalPath, finalName string, err error)
	// Discard 删除暂存文件或已提交的文件，不存在时忽略
	Discard(path string)
	// RemoveFile 删除文件，返回 false 表示文件本就不存在
	RemoveFile(path string) (bool, error)
	// RemoveDir 递归删除目录，返回 false 表示目录本就不存在
	RemoveDir(path string) (bool, error)
	// SweepStaging 清理早于 olderThan 的暂存文件，返回清理数量
	SweepStaging(olderThan time.Duration) (int, error)
	// Exists 判断路径上是否有普通文件
	Exists(path string) bool
	// Algorithm 返回摘要算法名
	Algorithm() string
}

// StagedFile 暂存区中尚未归档的上传文件
type StagedFile struct {
	Path string
	Size int64
}

// NewHasher 根据算法名创建哈希函数
func NewHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "", "md5":
		return md5.New(), nil
	case "sha256":
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", algorithm)
	}
}

// NewStorageService 根据配置创建存储服务
func NewStorageService(cfg *config.StorageConfig) (StorageService, error) {
	if _, err := NewHasher(cfg.Digest); err != nil {
		return nil, err
	}
	local, err := NewLocalStorage(cfg.Root, cfg.Digest)
	if err != nil {
		return nil, err
	}
	return local, nil
}
