package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/3Eeeecho/go-pan/internal/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	StagingDirName = ".staging"

	digestChunkSize = 32 * 1024
	maxNameBytes    = 255
	maxNameSuffix   = 10000
)

type LocalStorage struct {
	root      string
	staging   string
	algorithm string
}

// NewLocalStorage 创建本地存储，root 必须是绝对路径
func NewLocalStorage(root, algorithm string) (*LocalStorage, error) {
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("storage root must be absolute: %q", root)
	}
	if algorithm == "" {
		algorithm = "md5"
	}
	root = filepath.Clean(root)
	s := &LocalStorage{
		root:      root,
		staging:   filepath.Join(root, StagingDirName),
		algorithm: algorithm,
	}
	if err := os.MkdirAll(s.staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	logger.Info("Local storage ready", zap.String("root", root), zap.String("digest", algorithm))
	return s, nil
}

func (s *LocalStorage) Root() string      { return s.root }
func (s *LocalStorage) Algorithm() string { return s.algorithm }

// SanitizeName 只保留名字的最后一段，去掉路径穿越、控制字符和 Windows 保留字符
// 返回空串表示名字不可用
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f || r == utf8.RuneError || strings.ContainsRune(`/\:*?"<>|`, r) {
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimSpace(b.String())
	out = strings.TrimLeft(out, ". ")
	out = strings.TrimRight(out, " ")

	for len(out) > maxNameBytes {
		_, size := utf8.DecodeLastRuneInString(out)
		out = out[:len(out)-size]
	}
	return out
}

// within 判断 p 是否位于存储根目录之下
func (s *LocalStorage) within(p string) bool {
	rel, err := filepath.Rel(s.root, filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *LocalStorage) EnsureDir(dir string) error {
	_, err := s.MakeDir(dir)
	return err
}

func (s *LocalStorage) MakeDir(dir string) (bool, error) {
	if !s.within(dir) {
		return false, ErrOutsideRoot
	}
	if info, err := os.Lstat(dir); err == nil && info.IsDir() {
		return false, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	return true, nil
}

func (s *LocalStorage) Stage(r io.Reader, limit int64) (*StagedFile, error) {
	if err := os.MkdirAll(s.staging, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	p := filepath.Join(s.staging, "upload-"+uuid.NewString()+".part")
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		s.Discard(p)
		return nil, fmt.Errorf("failed to write staging file: %w", copyErr)
	case closeErr != nil:
		s.Discard(p)
		return nil, fmt.Errorf("failed to close staging file: %w", closeErr)
	case limit > 0 && n > limit:
		s.Discard(p)
		return nil, ErrTooLarge
	}
	return &StagedFile{Path: p, Size: n}, nil
}

func (s *LocalStorage) Digest(p string) (string, error) {
	h, err := NewHasher(s.algorithm)
	if err != nil {
		return "", err
	}
	f, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open file for digest: %w", err)
	}
	defer f.Close()

	buf := make([]byte, digestChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read file for digest: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// splitName 拆分主文件名与扩展名，扩展名带点
func splitName(name string) (string, string) {
	ext := filepath.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

func (s *LocalStorage) Commit(staged *StagedFile, dir, name string, taken func(string) (bool, error)) (string, string, error) {
	if !s.within(dir) {
		return "", "", ErrOutsideRoot
	}
	base, ext := splitName(name)
	candidate := name
	for i := 1; ; i++ {
		target := filepath.Join(dir, candidate)
		busy, err := s.occupied(target, candidate, taken)
		if err != nil {
			return "", "", err
		}
		if !busy {
			if err := os.Rename(staged.Path, target); err != nil {
				return "", "", fmt.Errorf("failed to move staged file into place: %w", err)
			}
			return target, candidate, nil
		}
		if i > maxNameSuffix {
			return "", "", ErrNameExhausted
		}
		candidate = suffixedName(base, ext, i)
	}
}

// suffixedName 生成 base_N.ext，超过文件名字节上限时按字符截短 base
func suffixedName(base, ext string, n int) string {
	suffix := fmt.Sprintf("_%d", n)
	for len(base)+len(suffix)+len(ext) > maxNameBytes && base != "" {
		_, size := utf8.DecodeLastRuneInString(base)
		base = base[:len(base)-size]
	}
	for len(base)+len(suffix)+len(ext) > maxNameBytes && ext != "" {
		_, size := utf8.DecodeLastRuneInString(ext)
		ext = ext[:len(ext)-size]
	}
	return base + suffix + ext
}

func (s *LocalStorage) occupied(target, candidate string, taken func(string) (bool, error)) (bool, error) {
	if _, err := os.Lstat(target); err == nil {
		return true, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat %s: %w", candidate, err)
	}
	if taken == nil {
		return false, nil
	}
	return taken(candidate)
}

func (s *LocalStorage) Exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (s *LocalStorage) Discard(p string) {
	if p == "" {
		return
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Discard: failed to remove file", zap.String("path", p), zap.Error(err))
	}
}

func (s *LocalStorage) RemoveFile(p string) (bool, error) {
	if !s.within(p) {
		return false, ErrOutsideRoot
	}
	err := os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove file: %w", err)
	}
	return true, nil
}

func (s *LocalStorage) RemoveDir(p string) (bool, error) {
	if !s.within(p) || filepath.Clean(p) == s.root {
		return false, ErrOutsideRoot
	}
	if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err := os.RemoveAll(p); err != nil {
		return false, fmt.Errorf("failed to remove directory: %w", err)
	}
	return true, nil
}

func (s *LocalStorage) SweepStaging(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(s.staging)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read staging dir: %w", err)
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.staging, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("SweepStaging: failed to remove stale file", zap.String("name", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
