package share

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
)

const (
	keyLength     = 8
	keyAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxKeyRetries = 10

	ExpiryNever = "never"
)

var expiryDurations = map[string]time.Duration{
	"1h":  time.Hour,
	"3h":  3 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

// RandomKey 从 crypto/rand 生成 8 位字母数字分享码
func RandomKey() (string, error) {
	n62 := big.NewInt(int64(len(keyAlphabet)))
	var b strings.Builder
	b.Grow(keyLength)
	for i := 0; i < keyLength; i++ {
		n, err := rand.Int(rand.Reader, n62)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		b.WriteByte(keyAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ExpiresAt 把 expires_in 枚举换算为绝对过期时间，never 或空串返回 nil
func ExpiresAt(expiresIn string, now time.Time) (*time.Time, error) {
	v := strings.ToLower(strings.TrimSpace(expiresIn))
	if v == "" || v == ExpiryNever {
		return nil, nil
	}
	d, ok := expiryDurations[v]
	if !ok {
		return nil, fmt.Errorf("expires_in %q: %w", expiresIn, xerr.ErrInvalidExpiry)
	}
	at := now.Add(d).UTC()
	return &at, nil
}

// SplitPath 把 "a/b/" 形式的路径拆为非空片段
func SplitPath(p string) []string {
	parts := strings.Split(p, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}
