package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CacheManager is a file-based JSON cache with a fixed TTL.
type CacheManager struct {
	cacheDir     string
	ttl          time.Duration
	cacheEnabled bool
	now          func() time.Time
}

func NewCacheManager(cacheDir string, ttl time.Duration, cacheEnabled bool) *CacheManager {
	return &CacheManager{
		cacheDir:     cacheDir,
		ttl:          ttl,
		cacheEnabled: cacheEnabled,
		now:          time.Now,
	}
}

// getCacheKey derives a file name from the source, method and request parameters.
func (cm *CacheManager) getCacheKey(source, method string, params any) string {
	data, _ := json.Marshal(params)
	hash := md5.Sum(data)
	return fmt.Sprintf("%s_%s_%x.json", source, method, hash)
}

// Get decodes a cached entry into result. It reports false on a miss, an expired entry
// or an unreadable file.
func (cm *CacheManager) Get(source, method string, params any, result any) bool {
	if !cm.cacheEnabled {
		return false
	}

	filePath := filepath.Join(cm.cacheDir, cm.getCacheKey(source, method, params))
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	if cm.now().Sub(info.ModTime()) > cm.ttl {
		_ = os.Remove(filePath)
		return false
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, result) == nil
}

func (cm *CacheManager) Set(source, method string, params any, data any) error {
	if !cm.cacheEnabled {
		return nil
	}
	if err := os.MkdirAll(cm.cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	filePath := filepath.Join(cm.cacheDir, cm.getCacheKey(source, method, params))
	return os.WriteFile(filePath, jsonData, 0o644)
}
