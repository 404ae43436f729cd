package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// sqlKeywords are uppercased during normalization; every other bare word
// is lowercased
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "by": true,
	"order": true, "having": true, "limit": true, "offset": true,
	"join": true, "inner": true, "left": true, "right": true, "full": true,
	"outer": true, "cross": true, "on": true, "as": true, "and": true,
	"or": true, "not": true, "in": true, "is": true, "null": true,
	"like": true, "ilike": true, "between": true, "union": true, "all": true,
	"distinct": true, "with": true, "case": true, "when": true, "then": true,
	"else": true, "end": true, "count": true, "sum": true, "avg": true,
	"min": true, "max": true, "asc": true, "desc": true, "exists": true,
	"using": true, "over": true, "partition": true, "recursive": true,
}

// NormalizeSQL canonicalizes a statement so trivially different spellings
// share one cache key: whitespace runs collapse to single spaces, trailing
// semicolons are stripped, keywords are uppercased and identifiers
// lowercased. String literals are preserved byte for byte.
func NormalizeSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimRight(sql, "; \t\n\r")

	var b strings.Builder

	b.Grow(len(sql))

	var word strings.Builder

	inString := false
	lastSpace := false

	flushWord := func() {
		if word.Len() == 0 {
			return
		}

		w := word.String()
		if sqlKeywords[strings.ToLower(w)] {
			b.WriteString(strings.ToUpper(w))
		} else {
			b.WriteString(strings.ToLower(w))
		}

		word.Reset()
	}

	for _, r := range sql {
		if inString {
			b.WriteRune(r)

			if r == '\'' {
				inString = false
			}

			continue
		}

		switch {
		case r == '\'':
			flushWord()
			b.WriteRune(r)

			inString = true
			lastSpace = false
		case unicode.IsSpace(r):
			flushWord()

			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)

			lastSpace = false
		default:
			flushWord()
			b.WriteRune(r)

			lastSpace = false
		}
	}

	flushWord()

	return strings.TrimSpace(b.String())
}

// Key returns the cache key for a statement: the SHA-256 hex digest of
// its normalized form
func Key(sql string) string {
	sum := sha256.Sum256([]byte(NormalizeSQL(sql)))
	return hex.EncodeToString(sum[:])
}

// SQLCache is the exact-match result cache keyed by normalized SQL
type SQLCache struct {
	store Store
	ttl   time.Duration
}

// NewSQLCache wraps a backend store with normalized-SQL keying
func NewSQLCache(store Store, ttl time.Duration) *SQLCache {
	return &SQLCache{store: store, ttl: ttl}
}

// Get returns the cached payload for a statement, or ErrMiss
func (c *SQLCache) Get(ctx context.Context, sql string) ([]byte, error) {
	return c.store.Get(ctx, Key(sql))
}

// Set stores a payload under the statement's normalized key
func (c *SQLCache) Set(ctx context.Context, sql string, payload []byte) error {
	return c.store.Set(ctx, Key(sql), payload, c.ttl)
}

// Delete removes a statement's cached payload
func (c *SQLCache) Delete(ctx context.Context, sql string) error {
	return c.store.Delete(ctx, Key(sql))
}

// Clear empties the cache
func (c *SQLCache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Stats reports backend statistics
func (c *SQLCache) Stats(ctx context.Context) (*Stats, error) {
	return c.store.Stats(ctx)
}
