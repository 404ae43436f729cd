package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store on the filesystem. Each entry is a .data
// file plus a .meta sidecar named by the hashed key, so the cache
// survives restarts.
type FileStore struct {
	directory   string
	maxSize     int64
	defaultTTL  time.Duration
	cleanupFreq time.Duration
	mu          sync.RWMutex
	hits        int64
	misses      int64
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// NewFileStore creates a file-backed cache store rooted at directory
func NewFileStore(
	directory string,
	maxSizeMB int,
	defaultTTL, cleanupFreq time.Duration,
) (*FileStore, error) {
	if strings.HasPrefix(directory, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}

		directory = filepath.Join(home, directory[2:])
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	store := &FileStore{
		directory:   directory,
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		defaultTTL:  defaultTTL,
		cleanupFreq: cleanupFreq,
		stopCleanup: make(chan struct{}),
	}

	go store.backgroundCleanup()

	return store, nil
}

// Get retrieves data for a key, treating expired entries as misses
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	dataPath := s.dataPath(key)
	metaPath := s.metaPath(key)

	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		s.misses++
		return nil, ErrMiss
	}

	var entry Entry
	if err := json.Unmarshal(metaBytes, &entry); err != nil {
		s.misses++
		return nil, fmt.Errorf("failed to parse cache metadata: %w", err)
	}

	if time.Now().After(entry.ExpiresAt) {
		os.Remove(dataPath)
		os.Remove(metaPath)

		s.misses++

		return nil, ErrMiss
	}

	data, err := os.ReadFile(dataPath)
	if err != nil {
		s.misses++
		return nil, ErrMiss
	}

	s.hits++

	return data, nil
}

// Set stores data under a key with the given TTL
func (s *FileStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ttl == 0 {
		ttl = s.defaultTTL
	}

	entry := Entry{
		Key:       key,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
		Size:      int64(len(data)),
	}

	if err := s.evictForSpace(entry.Size); err != nil {
		return fmt.Errorf("failed to enforce cache size: %w", err)
	}

	dataPath := s.dataPath(key)
	metaPath := s.metaPath(key)

	if err := os.WriteFile(dataPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write cache data: %w", err)
	}

	metaBytes, err := json.Marshal(entry)
	if err != nil {
		os.Remove(dataPath)
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, metaBytes, 0600); err != nil {
		os.Remove(dataPath)
		return fmt.Errorf("failed to write cache metadata: %w", err)
	}

	return nil
}

// Delete removes a key
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	os.Remove(s.dataPath(key))
	os.Remove(s.metaPath(key))

	return nil
}

// Clear removes all entries and resets stats
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(s.directory, entry.Name()))
		}
	}

	s.hits = 0
	s.misses = 0

	return nil
}

// Stats returns cache statistics
func (s *FileStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	stats := &Stats{Hits: s.hits, Misses: s.misses}

	entries, err := os.ReadDir(s.directory)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".data") {
				stats.TotalEntries++
			}
		}
	}

	stats.TotalSize, _ = s.totalSize()
	stats.finalize()

	return stats, nil
}

// Cleanup removes expired entries
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta") {
			continue
		}

		metaPath := filepath.Join(s.directory, entry.Name())

		metaBytes, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var cacheEntry Entry
		if err := json.Unmarshal(metaBytes, &cacheEntry); err != nil {
			continue
		}

		if now.After(cacheEntry.ExpiresAt) {
			base := strings.TrimSuffix(entry.Name(), ".meta")

			os.Remove(filepath.Join(s.directory, base+".data"))
			os.Remove(metaPath)
		}
	}

	return nil
}

// Close stops the background cleanup goroutine
func (s *FileStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})

	return nil
}

func (s *FileStore) dataPath(key string) string {
	return filepath.Join(s.directory, hashKey(key)+".data")
}

func (s *FileStore) metaPath(key string) string {
	return filepath.Join(s.directory, hashKey(key)+".meta")
}

// hashKey creates a safe filename from a cache key
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// evictForSpace removes oldest entries until the new entry fits
func (s *FileStore) evictForSpace(newEntrySize int64) error {
	currentSize, err := s.totalSize()
	if err != nil {
		return err
	}

	if currentSize+newEntrySize <= s.maxSize {
		return nil
	}

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	type entryInfo struct {
		name    string
		modTime time.Time
		size    int64
	}

	var infos []entryInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		base := strings.TrimSuffix(entry.Name(), ".meta")

		if dataInfo, err := os.Stat(filepath.Join(s.directory, base+".data")); err == nil {
			infos = append(infos, entryInfo{
				name:    base,
				modTime: info.ModTime(),
				size:    dataInfo.Size(),
			})
		}
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].modTime.Before(infos[j].modTime)
	})

	spaceNeeded := (currentSize + newEntrySize) - s.maxSize

	var spaceFreed int64

	for _, info := range infos {
		if spaceFreed >= spaceNeeded {
			break
		}

		os.Remove(filepath.Join(s.directory, info.name+".data"))
		os.Remove(filepath.Join(s.directory, info.name+".meta"))

		spaceFreed += info.size
	}

	return nil
}

func (s *FileStore) totalSize() (int64, error) {
	var totalSize int64

	err := filepath.WalkDir(s.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(path, ".data") {
			info, err := d.Info()
			if err != nil {
				return err
			}

			totalSize += info.Size()
		}

		return nil
	})

	return totalSize, err
}

func (s *FileStore) backgroundCleanup() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.Cleanup(context.Background())
		case <-s.stopCleanup:
			return
		}
	}
}
