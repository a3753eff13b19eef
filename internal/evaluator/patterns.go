package evaluator

import (
	"regexp"
	"strings"
)

// Heuristic text matchers used by the checkers. They operate on plain strings
// and deliberately stop short of real HTML/CSS parsing. Go's RE2 engine runs
// in linear time, so none of these patterns can backtrack catastrophically.

var (
	tagStripPattern   = regexp.MustCompile(`<[^>]*>`)
	openingTagPattern = regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9-]*(?:\s[^>]*)?/?>`)
	cssBlockPattern   = regexp.MustCompile(`\{[^}]*\}`)
	doctypePattern    = regexp.MustCompile(`(?i)<!doctype`)
)

// tagName reduces a selector to the bare tag name the element checks look
// for. Leading '#' and '.' characters are stripped, so "#title" and ".title"
// both look for a <title> tag.
func tagName(selector string) string {
	return strings.TrimLeft(strings.TrimSpace(selector), "#.")
}

// hasOpeningTag reports whether html contains an opening tag named tag.
func hasOpeningTag(html, tag string) bool {
	if tag == "" {
		return false
	}
	pattern, err := regexp.Compile(`(?i)<` + regexp.QuoteMeta(tag) + `(?:\s[^>]*)?/?>`)
	if err != nil {
		return false
	}
	return pattern.MatchString(html)
}

// firstElementText returns the text inside the first <tag>...</tag> pair with
// nested markup removed and whitespace collapsed. The match is non-greedy, so
// a nested element of the same name ends the capture early.
func firstElementText(html, tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	quoted := regexp.QuoteMeta(tag)
	pattern, err := regexp.Compile(`(?is)<` + quoted + `(?:\s[^>]*)?>(.*?)</` + quoted + `\s*>`)
	if err != nil {
		return "", false
	}
	match := pattern.FindStringSubmatch(html)
	if match == nil {
		return "", false
	}
	return collapseWhitespace(tagStripPattern.ReplaceAllString(match[1], "")), true
}

// cssDeclaration looks for a "selector { ... }" block and, inside it, a
// declaration of property. It returns the trimmed value of the first matching
// declaration across all blocks for the selector, whether a block was found,
// and whether the property was declared.
func cssDeclaration(css, selector, property string) (value string, blockFound bool, declared bool) {
	selector = strings.TrimSpace(selector)
	property = strings.TrimSpace(property)
	if selector == "" || property == "" {
		return "", false, false
	}

	blockPattern, err := regexp.Compile(`(?i)(?:^|[\s,}>+~])` + regexp.QuoteMeta(selector) + `\s*\{([^}]*)\}`)
	if err != nil {
		return "", false, false
	}
	declPattern, err := regexp.Compile(`(?i)(?:^|[;\s])` + regexp.QuoteMeta(property) + `\s*:\s*([^;]*)`)
	if err != nil {
		return "", false, false
	}

	for _, block := range blockPattern.FindAllStringSubmatch(css, -1) {
		blockFound = true
		if decl := declPattern.FindStringSubmatch(block[1]); decl != nil {
			return strings.TrimSpace(decl[1]), true, true
		}
	}
	return "", blockFound, false
}

// declaresFunction reports whether js defines name in one of the recognised
// literal forms.
func declaresFunction(js, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	for _, form := range functionForms(name) {
		if strings.Contains(js, form) {
			return form, true
		}
	}
	return "", false
}

func functionForms(name string) []string {
	return []string{
		"function " + name,
		name + " = function",
		"const " + name,
		"let " + name,
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func countOpeningTags(html string) int {
	return len(openingTagPattern.FindAllStringIndex(html, -1))
}

func countCSSBlocks(css string) int {
	return len(cssBlockPattern.FindAllStringIndex(css, -1))
}

func hasDoctype(html string) bool {
	return doctypePattern.MatchString(html)
}
