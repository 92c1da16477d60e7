// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from post titles and
// category names. CJK ideographs are kept as-is since they have no ASCII
// transliteration.
package slug

import (
	"regexp"
	"strings"
)

// separators matches every run of characters that may not appear in a
// slug: anything outside ASCII lowercase letters, digits and the CJK
// Unified Ideographs block U+4E00–U+9FA5.
var separators = regexp.MustCompile(`[^a-z0-9\x{4e00}-\x{9fa5}]+`)

// Generate creates a URL-friendly slug from the given string.
// Example: "Hello, World! 2026" → "hello-world-2026", "Go 语言入门" → "go-语言入门".
func Generate(s string) string {
	result := strings.ToLower(s)
	result = separators.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Valid reports whether s is already in normalized slug form.
func Valid(s string) bool {
	return s != "" && Generate(s) == s
}
