package ingest

import "strings"

// maxInternPoolSize bounds the pool for files with unusually many distinct
// values; past it strings are returned as-is.
const maxInternPoolSize = 4096

// stringPool deduplicates the repetitive fields of a log file, the status
// flags and dates. Pooled strings are clones and do not keep the scanned
// line alive.
type stringPool struct {
	pool map[string]string
}

func newStringPool() *stringPool {
	return &stringPool{pool: make(map[string]string, 64)}
}

// intern returns the canonical copy of s.
func (p *stringPool) intern(s string) string {
	if pooled, ok := p.pool[s]; ok {
		return pooled
	}
	if len(p.pool) >= maxInternPoolSize {
		return s
	}
	s = strings.Clone(s)
	p.pool[s] = s
	return s
}

func (p *stringPool) len() int {
	return len(p.pool)
}
