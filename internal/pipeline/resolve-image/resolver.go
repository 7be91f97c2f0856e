// internal/pipeline/resolve-image/resolver.go
package resolveimage

import (
	"strings"
	"sync"

	"pricelens/internal/common/textfold"
)

var defaultConfig = LoadConfig()

// Accept returns the trimmed candidate when it is a usable image URL.
func (c *Config) Accept(candidate string) (string, bool) {
	url := strings.TrimSpace(candidate)
	if len(url) < c.MinLength {
		return "", false
	}
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", false
	}
	for _, bad := range c.Disallowed {
		if strings.Contains(lower, bad) {
			return "", false
		}
	}
	return url, true
}

// Placeholder returns the category placeholder, or the global one when the
// category has none. Category matching ignores case and separators.
func (c *Config) Placeholder(category string) string {
	if category != "" {
		if url, ok := c.CategoryPlaceholders[textfold.Fold(category)]; ok {
			return url
		}
		for _, word := range textfold.Words(category) {
			if url, ok := c.CategoryPlaceholders[word]; ok {
				return url
			}
		}
	}
	return c.DefaultPlaceholder
}

// Resolve picks the image to display and returns the updated last known
// good URL. A rejected candidate never clears lastKnownGood.
func (c *Config) Resolve(candidate, lastKnownGood, category string) (url, nextLastKnownGood string) {
	if accepted, ok := c.Accept(candidate); ok {
		return accepted, accepted
	}
	if lastKnownGood != "" {
		return lastKnownGood, lastKnownGood
	}
	return c.Placeholder(category), ""
}

func Accept(candidate string) (string, bool) { return defaultConfig.Accept(candidate) }

func Placeholder(category string) string { return defaultConfig.Placeholder(category) }

func Resolve(candidate, lastKnownGood, category string) (string, string) {
	return defaultConfig.Resolve(candidate, lastKnownGood, category)
}

// Resolver holds the last known good image for one product.
type Resolver struct {
	config        *Config
	category      string
	lastKnownGood string
}

func NewResolver(config *Config, category string) *Resolver {
	if config == nil {
		config = defaultConfig
	}
	return &Resolver{config: config, category: category}
}

func (r *Resolver) Resolve(candidate string) string {
	url, next := r.config.Resolve(candidate, r.lastKnownGood, r.category)
	r.lastKnownGood = next
	return url
}

func (r *Resolver) LastKnownGood() string {
	return r.lastKnownGood
}

// Memory keeps one Resolver per product for the lifetime of a session.
// It is safe for concurrent use.
type Memory struct {
	config    *Config
	mu        sync.Mutex
	resolvers map[string]*Resolver
}

func NewMemory(config *Config) *Memory {
	if config == nil {
		config = defaultConfig
	}
	return &Memory{config: config, resolvers: make(map[string]*Resolver)}
}

// Resolve resolves candidate for the product identified by key.
func (m *Memory) Resolve(key, candidate, category string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resolvers[key]
	if !ok {
		r = NewResolver(m.config, category)
		m.resolvers[key] = r
	}
	return r.Resolve(candidate)
}

// Reset forgets every product, used when the session is torn down.
func (m *Memory) Reset() {
	m.mu.Lock()
	m.resolvers = make(map[string]*Resolver)
	m.mu.Unlock()
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resolvers)
}
