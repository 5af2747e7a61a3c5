package hookengine

import (
	"regexp"
	"strings"
	"sync"
)

// regexShapeChars are the metacharacters that signal a matcher string is
// already regex-shaped rather than a literal tool name. This heuristic is
// carried over verbatim from the original implementation's hook_matcher.py
// (see DESIGN.md) rather than invented fresh: it is what keeps a literal
// matcher like "FileWrite" from ever being interpreted as a partial regex.
var regexShapeChars = []string{"|", ".*", "^", "$"}

func looksLikeRegex(pattern string) bool {
	for _, c := range regexShapeChars {
		if strings.Contains(pattern, c) {
			return true
		}
	}
	return false
}

// compileResult caches either a working regexp or the decision that the
// pattern permanently falls back to exact-string equality.
type compileResult struct {
	re *regexp.Regexp // nil if this pattern falls back to exact match
}

// Matcher maps a tool name against a matcher pattern, caching compiled
// regular expressions by pattern string.
type Matcher struct {
	mu    sync.RWMutex
	cache map[string]compileResult
}

// NewMatcher returns a ready-to-use pattern matcher with an empty cache.
func NewMatcher() *Matcher {
	return &Matcher{cache: make(map[string]compileResult)}
}

// Matches reports whether pattern matches tool, compiling and caching the
// pattern as a regular expression as needed.
func (m *Matcher) Matches(pattern, tool string) bool {
	if pattern == "" || tool == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	if pattern == tool {
		return true
	}

	re := m.compiled(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(tool)
}

// compiled returns the cached compiled regexp for pattern, compiling it (and
// caching the outcome, including a permanent "falls back to exact match"
// result) on first use.
func (m *Matcher) compiled(pattern string) *regexp.Regexp {
	m.mu.RLock()
	if res, ok := m.cache[pattern]; ok {
		m.mu.RUnlock()
		return res.re
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.cache[pattern]; ok {
		return res.re
	}

	var source string
	if looksLikeRegex(pattern) {
		source = pattern
	} else {
		source = "^" + regexp.QuoteMeta(pattern) + "$"
	}

	re, err := regexp.Compile(source)
	if err != nil {
		// Compilation failure means a permanent fallback to exact-string
		// equality for this pattern; since Matches already checked
		// pattern == tool before reaching here, a nil cache entry is enough.
		m.cache[pattern] = compileResult{re: nil}
		return nil
	}

	m.cache[pattern] = compileResult{re: re}
	return re
}

// CacheSize reports the number of distinct patterns compiled so far.
func (m *Matcher) CacheSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

// ClearCache drops every cached compiled pattern.
func (m *Matcher) ClearCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]compileResult)
}
