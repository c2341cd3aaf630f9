// Package markdown reflows OCR and model output into structured markdown.
//
// Cleaning is an ordered pipeline of named rules. Later rules assume earlier ones have
// already normalized whitespace and punctuation, so the order is fixed. Running Clean on
// its own output returns it unchanged.
package markdown

import "slices"

// Rule is one named rewrite step. Every rule is total: text matching none of its
// patterns passes through unchanged.
type Rule struct {
	Name  string
	Apply func(string) string
}

var pipeline = []Rule{
	{Name: "normalize-characters", Apply: normalizeCharacters},
	{Name: "join-split-ranges", Apply: joinSplitRanges},
	{Name: "glue-currency", Apply: glueCurrency},
	{Name: "join-split-words", Apply: joinSplitWords},
	{Name: "normalize-spacing", Apply: normalizeSpacing},
	{Name: "collapse-whitespace", Apply: collapseWhitespace},
	{Name: "fix-numbers", Apply: fixNumbers},
	{Name: "section-headings", Apply: sectionHeadings},
	{Name: "list-markers", Apply: listMarkers},
	{Name: "finalize", Apply: finalize},
}

// Rules returns the cleaning pipeline in application order.
func Rules() []Rule {
	return slices.Clone(pipeline)
}

// Clean runs the full pipeline over text.
func Clean(text string) string {
	return Apply(text, pipeline...)
}

// Apply runs rules over text in the order given.
func Apply(text string, rules ...Rule) string {
	for _, r := range rules {
		text = r.Apply(text)
	}
	return text
}
