package markdown

import (
	"regexp"
	"strings"
)

// listLine matches the start of a bullet or numbered list line.
var listLine = regexp.MustCompile(`^(?:-(?:[^\d$€£¥]|$)|\d{1,2}\.(?:\s|$))`)

// rewrite replaces every match of re in s with the result of fn. fn gets the whole input
// and the submatch index pairs so it can look at the text around the match.
func rewrite(re *regexp.Regexp, s string, fn func(s string, m []int) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		b.WriteString(s[last:m[0]])
		b.WriteString(fn(s, m))
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func group(s string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return s[m[2*n]:m[2*n+1]]
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "#")
}

// onHeadingLine reports whether byte offset i sits on a heading line.
func onHeadingLine(s string, i int) bool {
	start := strings.LastIndexByte(s[:i], '\n') + 1
	return isHeading(s[start:])
}

func startsListItem(s string) bool {
	return listLine.MatchString(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func trimLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Trim(line, " \t")
	}
	return strings.Join(lines, "\n")
}
