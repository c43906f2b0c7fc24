package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key layout is "{domain}:{userCode}:{...}" so one user's entries can be
// invalidated with a prefix pattern. The remote store is shared with other
// dashboard processes, so the layout must not change without coordination.

// BonusKey builds the cache key for a bonus query window. A zero year or
// month falls back to the "current"/"all" markers the dashboard always used.
func BonusKey(userCode string, year, month int) string {
	y := "current"
	if year > 0 {
		y = fmt.Sprintf("%d", year)
	}
	m := "all"
	if month > 0 {
		m = fmt.Sprintf("%d", month)
	}
	return fmt.Sprintf("bonuses:%s:%s:%s", userCode, y, m)
}

// UserKey builds a per-user key for arbitrary data types, with optional
// parameters appended in sorted order so equal queries map to equal keys.
func UserKey(userCode, dataType string, params map[string]string) string {
	base := fmt.Sprintf("user:%s:%s", userCode, dataType)
	if len(params) == 0 {
		return base
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+":"+params[k])
	}
	return base + ":" + strings.Join(parts, "|")
}

// userPatterns is the fixed prefix set cleared when a user's underlying data
// changes or an administrator forces them out.
func userPatterns(userCode string) []string {
	return []string{
		"user:" + userCode + ":",
		"bonuses:" + userCode + ":",
		"kilometers:" + userCode + ":",
		"stats:" + userCode + ":",
		"faults:" + userCode + ":",
	}
}

// globFor turns a substring pattern into the glob the remote store expects.
// Patterns that already carry glob metacharacters pass through untouched.
func globFor(pattern string) string {
	if strings.ContainsAny(pattern, "*?[") {
		return pattern
	}
	return "*" + pattern + "*"
}
