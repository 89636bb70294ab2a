package replace

import (
	"fmt"
	"regexp"
	"sync"
)

// Pattern is a search expression. When Regex is false Expr is matched
// literally.
type Pattern struct {
	Expr       string
	Regex      bool
	IgnoreCase bool
}

func (p Pattern) source() string {
	expr := p.Expr
	if !p.Regex {
		expr = regexp.QuoteMeta(expr)
	}
	if p.IgnoreCase {
		expr = "(?i)" + expr
	}
	// Multi-line so that ^ and $ anchor at line boundaries inside a file.
	return "(?m)" + expr
}

// Cache holds compiled patterns for one run. It is safe for concurrent use;
// the lock covers only the map lookup and insert.
type Cache struct {
	mu       sync.Mutex
	compiled map[Pattern]*regexp.Regexp
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{compiled: make(map[Pattern]*regexp.Regexp)}
}

// Compile returns the compiled form of p.
func (c *Cache) Compile(p Pattern) (*regexp.Regexp, error) {
	c.mu.Lock()
	re, ok := c.compiled[p]
	c.mu.Unlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(p.source())
	if err != nil {
		return nil, fmt.Errorf("compiling search pattern %q: %w", p.Expr, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.compiled[p]; ok {
		return prev, nil
	}
	c.compiled[p] = re
	return re, nil
}

// Len is the number of compiled patterns held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.compiled)
}
