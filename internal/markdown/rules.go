package markdown

import (
	"regexp"
	"strings"
)

var characterReplacer = strings.NewReplacer(
	"\u00a0", " ",
	"\u2010", "-",
	"\u2013", "-",
	"\u2014", "-",
)

// normalizeCharacters maps non-breaking spaces to spaces and dash variants to a hyphen.
func normalizeCharacters(s string) string {
	return characterReplacer.Replace(s)
}

var (
	brokenRange    = regexp.MustCompile(`(\d)([ \t]*)-[ \t]*\n[ \t]*([$€£¥]?)[ \t]*(\d)`)
	danglingDash   = regexp.MustCompile(`(\d)[ \t]*\n[ \t]*-[ \t]*\n[ \t]*(\d)`)
	brokenCurrency = regexp.MustCompile(`([$€£¥])[ \t]*\n[ \t]*(\d)`)
	brokenNumber   = regexp.MustCompile(`(\d)[ \t]*\n[ \t]*(\d)`)
)

// joinSplitRanges rejoins price ranges and amounts broken by a single line break,
// before any word-wrap handling sees them. A blank line is a paragraph break and is
// never joined across.
func joinSplitRanges(s string) string {
	s = rewrite(brokenRange, s, func(s string, m []int) string {
		if onHeadingLine(s, m[0]) || startsListItem(s[m[6]:]) {
			return s[m[0]:m[1]]
		}
		return group(s, m, 1) + group(s, m, 2) + "-" + group(s, m, 3) + group(s, m, 4)
	})
	s = joinOffHeadings(danglingDash, s, "-")
	s = joinOffHeadings(brokenCurrency, s, "")
	return joinDigits(brokenNumber, s)
}

// joinOffHeadings joins the two groups of every match with sep. A heading keeps the
// line break that ends it.
func joinOffHeadings(re *regexp.Regexp, s, sep string) string {
	return rewrite(re, s, func(s string, m []int) string {
		if onHeadingLine(s, m[0]) {
			return s[m[0]:m[1]]
		}
		return group(s, m, 1) + sep + group(s, m, 2)
	})
}

// joinDigits joins two digits separated by a line break unless the second starts a
// numbered list item or the first sits on a heading.
func joinDigits(re *regexp.Regexp, s string) string {
	return rewrite(re, s, func(s string, m []int) string {
		if onHeadingLine(s, m[0]) || startsListItem(s[m[4]:]) {
			return s[m[0]:m[1]]
		}
		return group(s, m, 1) + group(s, m, 2)
	})
}

var spacedCurrency = regexp.MustCompile(`([$€£¥])[ \t]+(\d)`)

func glueCurrency(s string) string {
	return spacedCurrency.ReplaceAllString(s, "${1}${2}")
}

var (
	hyphenatedBreak = regexp.MustCompile(`(\w)-\n(\w)`)
	bareBreak       = regexp.MustCompile(`([a-z])\n([a-z])`)
)

// joinSplitWords rejoins words broken across a line by a hyphen or a bare newline.
// Headings keep their line break.
func joinSplitWords(s string) string {
	s = joinOffHeadings(hyphenatedBreak, s, "")
	return rewrite(bareBreak, s, func(s string, m []int) string {
		if onHeadingLine(s, m[0]) {
			return s[m[0]:m[1]]
		}
		return group(s, m, 1) + group(s, m, 2)
	})
}

var (
	spacedRange      = regexp.MustCompile(`(\d)(?:[ \t]+-[ \t]*|-[ \t]+)([$€£¥]?\d)`)
	spacedDash       = regexp.MustCompile(`[ \t]+-[ \t]+`)
	spaceBeforeComma = regexp.MustCompile(`[ \t]+,`)
	commaNoSpace     = regexp.MustCompile(`,([^\s\d])`)
	spaceBeforeStop  = regexp.MustCompile(`[ \t]+\.`)
	leadingDigit     = regexp.MustCompile(`^[ \t]*\d`)
	stopNoSpace      = regexp.MustCompile(`([a-z0-9)\]])\.([A-Z])`)
	openParenSpace   = regexp.MustCompile(`\([ \t]+`)
	closeParenSpace  = regexp.MustCompile(`[ \t]+\)`)
	afterCloseParen  = regexp.MustCompile(`\)([^\s.,;:)\]])`)
	beforeOpenParen  = regexp.MustCompile(`([^\s(\[])\(`)
)

// normalizeSpacing merges soft-wrapped lines, then settles spacing around hyphens,
// commas, periods and parentheses.
func normalizeSpacing(s string) string {
	s = mergeSoftWraps(s)
	s = spacedRange.ReplaceAllString(s, "${1} -${2}")
	s = spacedDash.ReplaceAllString(s, " - ")
	s = spaceBeforeComma.ReplaceAllString(s, ",")
	s = commaNoSpace.ReplaceAllString(s, ", ${1}")
	s = rewrite(spaceBeforeStop, s, func(s string, m []int) string {
		if m[0] == 0 || s[m[0]-1] == '\n' || leadingDigit.MatchString(s[m[1]:]) {
			return s[m[0]:m[1]]
		}
		return "."
	})
	s = stopNoSpace.ReplaceAllString(s, "${1}. ${2}")
	s = openParenSpace.ReplaceAllString(s, "(")
	s = closeParenSpace.ReplaceAllString(s, ")")
	s = afterCloseParen.ReplaceAllString(s, ") ${1}")
	return beforeOpenParen.ReplaceAllString(s, "${1} (")
}

// mergeSoftWraps joins consecutive non-blank lines with a single space. Blank lines,
// headings and list items keep their breaks.
func mergeSoftWraps(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := len(out); n > 0 && softWrapped(out[n-1], line) {
			out[n-1] = strings.TrimRight(out[n-1], " \t") + " " + strings.TrimLeft(line, " \t")
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func softWrapped(prev, next string) bool {
	p, n := strings.TrimSpace(prev), strings.TrimSpace(next)
	if p == "" || n == "" {
		return false
	}
	return !isHeading(p) && !isHeading(n) && !startsListItem(n)
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	extraBlankLines = regexp.MustCompile(`\n{3,}`)
)

func collapseWhitespace(s string) string {
	s = horizontalSpace.ReplaceAllString(s, " ")
	s = trimLines(s)
	return extraBlankLines.ReplaceAllString(s, "\n\n")
}

var spacedDecimal = regexp.MustCompile(`(\d)([ \t]*)\.([ \t]*)(\d)`)

// fixNumbers repairs decimals and currency amounts split by spaces or a single line
// break. "12. 5" is left alone since it reads as a list marker followed by a number.
func fixNumbers(s string) string {
	s = rewrite(spacedDecimal, s, func(s string, m []int) string {
		if group(s, m, 2) == "" && group(s, m, 3) != "" {
			return s[m[0]:m[1]]
		}
		return group(s, m, 1) + "." + group(s, m, 4)
	})
	s = spacedCurrency.ReplaceAllString(s, "${1}${2}")
	s = joinOffHeadings(brokenCurrency, s, "")
	return joinDigits(brokenNumber, s)
}

type sectionLabel struct {
	pattern *regexp.Regexp
	heading string
}

// Specific labels come before the generic "analysis:" and "strategies:" ones.
var sectionLabels = []sectionLabel{
	{regexp.MustCompile(`(?i)\btrend[ \t]+analysis[ \t]*:`), "Trend Analysis"},
	{regexp.MustCompile(`(?i)\btrading[ \t]+strategies[ \t]*:`), "Trading Strategies"},
	{regexp.MustCompile(`(?i)\blow[ \t]*-[ \t]*risk[ \t]+strateg(?:y|ies)[ \t]*:`), "Low-Risk Strategy to Collect Premiums"},
	{regexp.MustCompile(`(?i)\bhigh[ \t]*-[ \t]*risk[ \t]+strateg(?:y|ies)[ \t]*:`), "High-Risk Strategy for a Potential Rapid Move"},
	{regexp.MustCompile(`(?i)\banalysis[ \t]*:`), "Analysis"},
	{regexp.MustCompile(`(?i)\bstrategies[ \t]*:`), "Strategies"},
}

// sectionHeadings rewrites section labels into level-3 headings on their own line.
// Existing heading lines are left as written.
func sectionHeadings(s string) string {
	for _, label := range sectionLabels {
		heading := "\n\n### " + label.heading + "\n"
		s = rewrite(label.pattern, s, func(s string, m []int) string {
			if onHeadingLine(s, m[0]) {
				return s[m[0]:m[1]]
			}
			return heading
		})
	}
	return s
}

var (
	numberedItem = regexp.MustCompile(`(^|\n+|[ \t]+|[.):])(\d{1,2})\.[ \t]+([^\d\s])`)
	bulletItem   = regexp.MustCompile(`(^|\n+|[.)][ \t]+)-[ \t]+(\S)`)
)

// listMarkers starts every numbered or bulleted item on a fresh paragraph. Markers
// inside a heading stay on the heading line.
func listMarkers(s string) string {
	s = rewrite(numberedItem, s, func(s string, m []int) string {
		if onHeadingLine(s, m[4]) {
			return s[m[0]:m[1]]
		}
		prefix := group(s, m, 1)
		punct := len(prefix) == 1 && strings.Contains(".):", prefix)
		if punct && m[0] > 0 && isDigit(s[m[0]-1]) {
			// "1.5. Next" is a number, not a list.
			return s[m[0]:m[1]]
		}
		keep := ""
		if punct {
			keep = prefix
		}
		return keep + "\n\n" + group(s, m, 2) + ". " + group(s, m, 3)
	})
	return rewrite(bulletItem, s, func(s string, m []int) string {
		if onHeadingLine(s, m[3]) {
			return s[m[0]:m[1]]
		}
		prefix := group(s, m, 1)
		keep := ""
		if prefix != "" && (prefix[0] == '.' || prefix[0] == ')') {
			keep = prefix[:1]
		}
		return keep + "\n\n- " + group(s, m, 2)
	})
}

var (
	headingGap       = regexp.MustCompile(`(?m)^(#[^\n]*)\n{2,}`)
	spaceBeforeFinal = regexp.MustCompile(`([^\s])[ \t]+([.,])(\n|$)`)
)

// finalize settles paragraph breaks, keeps headings tight against their content and
// trims the document.
func finalize(s string) string {
	s = trimLines(s)
	s = separateParagraphs(s)
	s = extraBlankLines.ReplaceAllString(s, "\n\n")
	s = headingGap.ReplaceAllString(s, "${1}\n")
	s = spaceBeforeFinal.ReplaceAllString(s, "${1}${2}${3}")
	return strings.TrimSpace(s)
}

// separateParagraphs turns a remaining single line break into a blank line, except
// directly under a heading.
func separateParagraphs(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i > 0 && line != "" && lines[i-1] != "" && !isHeading(lines[i-1]) {
			out = append(out, "")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
