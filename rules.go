// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pak

package pak

import (
	"fmt"

	"github.com/woozymasta/pathrules"
)

// pathMatcher holds compiled include/exclude rules over archive paths.
type pathMatcher struct {
	matcher *pathrules.Matcher
}

// newPathMatcher compiles rules; it returns nil when no usable rule remains.
// Compile failures are wrapped with kind.
func newPathMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions, kind error) (*pathMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kind, err)
	}

	return &pathMatcher{matcher: matcher}, nil
}

// normalizeRules normalizes rule patterns and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := slashPath(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether path is included by the rules. A nil matcher includes nothing.
func (m *pathMatcher) Match(path string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// defaultMatcherOptions fills unset matcher options with case-insensitive exclude-by-default.
func defaultMatcherOptions(opts pathrules.MatcherOptions) pathrules.MatcherOptions {
	if opts == (pathrules.MatcherOptions{}) {
		return pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.DefaultAction == pathrules.ActionUnknown {
		opts.DefaultAction = pathrules.ActionExclude
	}

	return opts
}
