package content

import "strings"

// qualitySuffix is appended to every optimized prompt, unconditionally.
// Optimizing an already-optimized prompt therefore stacks the suffix; callers
// apply Optimize exactly once, immediately before synthesis.
const qualitySuffix = ", high quality, clean design, vibrant colors, modern style"

// Optimize rewrites a description into an icon-generation prompt. The "3D
// rendered" prefix and "as a professional icon" clause are only added when the
// text does not already mention 3d or icon (case-insensitive substring match,
// so "iconic" counts as a mention).
func Optimize(text string) string {
	optimized := text
	lower := strings.ToLower(optimized)
	if !strings.Contains(lower, "3d") {
		optimized = "3D rendered " + optimized
	}
	if !strings.Contains(lower, "icon") {
		optimized += " as a professional icon"
	}
	return optimized + qualitySuffix
}
