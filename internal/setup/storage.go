package setup

import (
	"fmt"

	"github.com/3Eeeecho/go-pan/internal/config"
	"github.com/3Eeeecho/go-pan/internal/pkg/storage"
)

// InitStorage 初始化本地存储，确保根目录与暂存目录存在
func InitStorage(cfg *config.StorageConfig) (storage.StorageService, error) {
	svc, err := storage.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return svc, nil
}
