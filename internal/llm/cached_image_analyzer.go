package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"nutrilens/internal/shared"
)

// CachedImageAnalyzer wraps an ImageAnalyzer and remembers the model's answer
// per (prompt, image) so re-uploading the same photo does not call the model
// again. Only answers that succeeded and pass the validator are cached.
type CachedImageAnalyzer struct {
	realAnalyzer  ImageAnalyzer
	validate      func(content string) error
	cache         map[string]string
	cacheFilePath string
	mu            sync.Mutex
}

// NewCachedImageAnalyzer creates a new CachedImageAnalyzer.
// It attempts to load the cache from the specified file path.
func NewCachedImageAnalyzer(realAnalyzer ImageAnalyzer, cacheFilePath string) (*CachedImageAnalyzer, error) {
	c := &CachedImageAnalyzer{
		realAnalyzer:  realAnalyzer,
		cache:         make(map[string]string),
		cacheFilePath: cacheFilePath,
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Analysis cache not found, starting empty: %s", cacheFilePath)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	log.Printf("Loaded %d analyses from cache: %s", len(c.cache), cacheFilePath)
	return c, nil
}

// WithValidator sets the check an answer must pass before it is cached.
// Cached answers that fail it, e.g. ones loaded from an older cache file,
// are dropped and fetched again.
func (c *CachedImageAnalyzer) WithValidator(validate func(content string) error) *CachedImageAnalyzer {
	c.validate = validate
	return c
}

// AnalyzeImage returns the cached answer when present. A cache hit reports
// zero token usage.
func (c *CachedImageAnalyzer) AnalyzeImage(ctx context.Context, prompt string, image []byte, mimeType string) (ContentResponse, error) {
	key := cacheKey(prompt, image, mimeType)

	c.mu.Lock()
	content, ok := c.cache[key]
	if ok && !c.valid(content) {
		delete(c.cache, key)
		ok = false
	}
	c.mu.Unlock()
	if ok {
		return ContentResponse{Content: content, Usage: shared.TokenUsage{Model: "cache"}}, nil
	}

	resp, err := c.realAnalyzer.AnalyzeImage(ctx, prompt, image, mimeType)
	if err != nil {
		return ContentResponse{}, err
	}
	if !c.valid(resp.Content) {
		log.Printf("Not caching unusable analysis (%d chars)", len(resp.Content))
		return resp, nil
	}

	c.mu.Lock()
	c.cache[key] = resp.Content
	c.mu.Unlock()
	return resp, nil
}

func (c *CachedImageAnalyzer) valid(content string) bool {
	return c.validate == nil || c.validate(content) == nil
}

// Len reports how many answers are cached.
func (c *CachedImageAnalyzer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedImageAnalyzer) SaveCache() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	log.Printf("Saved %d analyses to cache: %s", len(c.cache), c.cacheFilePath)
	return nil
}

func cacheKey(prompt string, image []byte, mimeType string) string {
	h := sha256.New()
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(mimeType))
	h.Write([]byte{0})
	h.Write(image)
	return hex.EncodeToString(h.Sum(nil))
}
