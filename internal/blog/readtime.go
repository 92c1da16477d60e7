// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import "math"

// wordsPerMinute is the assumed reading speed.
const wordsPerMinute = 200

// ReadTime estimates the minutes needed to read Markdown content. Every
// two characters count as one word, except CJK ideographs which count as
// a word each since CJK text has no spaces between words. Empty content
// reads in zero minutes; anything else takes at least one.
func ReadTime(content string) int {
	weighted := 0
	for _, r := range content {
		if r >= 0x4e00 && r <= 0x9fa5 {
			weighted += 2
		} else {
			weighted++
		}
	}
	words := float64(weighted) / 2
	return int(math.Ceil(words / wordsPerMinute))
}
