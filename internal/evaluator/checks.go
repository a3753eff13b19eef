package evaluator

import (
	"fmt"
	"strings"
)

type outcome struct {
	passed  bool
	message string
	details map[string]interface{}
}

type checker func(rule Rule, submission Submission, reference *Submission) outcome

var checkers = map[RuleKind]checker{
	KindElementExists:       checkElementExists,
	KindElementText:         checkElementText,
	KindElementTextContains: checkElementTextContains,
	KindCSSProperty:         checkCSSProperty,
	KindJavaScriptFunction:  checkJavaScriptFunction,
	KindCodeContains:        checkCodeContains,
	KindSimilarityCheck:     checkSimilarity,
}

func checkElementExists(rule Rule, submission Submission, _ *Submission) outcome {
	tag := tagName(rule.Selector)
	details := map[string]interface{}{"selector": rule.Selector, "tag": tag}
	if tag == "" {
		return outcome{message: "No selector specified for element check", details: details}
	}

	found := hasOpeningTag(submission.HTML, tag)
	details["found"] = found
	if !found {
		return outcome{message: fmt.Sprintf("Expected a <%s> element but none was found", tag), details: details}
	}
	return outcome{passed: true, message: fmt.Sprintf("Found <%s> element", tag), details: details}
}

func checkElementText(rule Rule, submission Submission, _ *Submission) outcome {
	tag, text, expected, result, ok := elementTextLookup(rule, submission)
	if !ok {
		return result
	}

	if strings.EqualFold(text, expected) {
		result.passed = true
		result.message = fmt.Sprintf("<%s> text matches %q", tag, expected)
		return result
	}
	result.message = fmt.Sprintf("Expected <%s> text to be %q but found %q", tag, expected, text)
	return result
}

func checkElementTextContains(rule Rule, submission Submission, _ *Submission) outcome {
	tag, text, expected, result, ok := elementTextLookup(rule, submission)
	if !ok {
		return result
	}

	if containsFold(text, expected) {
		result.passed = true
		result.message = fmt.Sprintf("<%s> text contains %q", tag, expected)
		return result
	}
	result.message = fmt.Sprintf("Expected <%s> text to contain %q but found %q", tag, expected, text)
	return result
}

// elementTextLookup resolves the element shared by both text checks. When ok
// is false the returned outcome is already a final failure.
func elementTextLookup(rule Rule, submission Submission) (tag, text, expected string, result outcome, ok bool) {
	tag = tagName(rule.Selector)
	expected = collapseWhitespace(rule.Expected)
	result.details = map[string]interface{}{"selector": rule.Selector, "tag": tag, "expected": expected}
	if tag == "" {
		result.message = "No selector specified for element check"
		return tag, "", expected, result, false
	}

	text, found := firstElementText(submission.HTML, tag)
	result.details["found"] = found
	if !found {
		result.message = fmt.Sprintf("No <%s> element found", tag)
		return tag, "", expected, result, false
	}
	result.details["actual"] = text
	return tag, text, expected, result, true
}

func checkCSSProperty(rule Rule, submission Submission, _ *Submission) outcome {
	expected := strings.TrimSpace(rule.Expected)
	details := map[string]interface{}{
		"selector": rule.Selector,
		"property": rule.Property,
		"expected": expected,
	}
	if strings.TrimSpace(rule.Selector) == "" || strings.TrimSpace(rule.Property) == "" {
		return outcome{message: "CSS check requires both a selector and a property", details: details}
	}

	value, blockFound, declared := cssDeclaration(submission.CSS, rule.Selector, rule.Property)
	details["blockFound"] = blockFound
	switch {
	case !blockFound:
		return outcome{message: fmt.Sprintf("No CSS rule found for selector %q", rule.Selector), details: details}
	case !declared:
		return outcome{message: fmt.Sprintf("CSS rule %q does not set %s", rule.Selector, rule.Property), details: details}
	}

	details["actual"] = value
	if !strings.EqualFold(value, expected) {
		return outcome{
			message: fmt.Sprintf("Expected %s of %q to be %q but found %q", rule.Property, rule.Selector, expected, value),
			details: details,
		}
	}
	return outcome{
		passed:  true,
		message: fmt.Sprintf("%q sets %s to %q", rule.Selector, rule.Property, value),
		details: details,
	}
}

func checkJavaScriptFunction(rule Rule, submission Submission, _ *Submission) outcome {
	name := strings.TrimSpace(rule.Function)
	details := map[string]interface{}{"function": name}
	if name == "" {
		return outcome{message: "No function name specified", details: details}
	}

	form, found := declaresFunction(submission.JS, name)
	details["found"] = found
	if !found {
		return outcome{message: fmt.Sprintf("Function %q was not found", name), details: details}
	}
	details["match"] = form
	return outcome{passed: true, message: fmt.Sprintf("Function %q is defined", name), details: details}
}

func checkCodeContains(rule Rule, submission Submission, _ *Submission) outcome {
	codeType := rule.TargetCodeType()
	details := map[string]interface{}{"codeType": codeType, "pattern": rule.Pattern}

	code, ok := submission.Field(codeType)
	if !ok {
		return outcome{message: fmt.Sprintf("Unknown code type: %s", rule.CodeType), details: details}
	}

	label := codeLabel(codeType)
	if !containsFold(code, rule.Pattern) {
		return outcome{message: fmt.Sprintf("Expected %s code to contain %q", label, rule.Pattern), details: details}
	}
	return outcome{passed: true, message: fmt.Sprintf("Found %q in %s code", rule.Pattern, label), details: details}
}

func checkSimilarity(rule Rule, submission Submission, reference *Submission) outcome {
	codeType := rule.TargetCodeType()
	threshold := rule.SimilarityThreshold()
	details := map[string]interface{}{"codeType": codeType, "threshold": threshold}

	if reference == nil {
		return outcome{message: "No reference solution available for similarity check", details: details}
	}

	code, ok := submission.Field(codeType)
	if !ok {
		return outcome{message: fmt.Sprintf("Unknown code type: %s", rule.CodeType), details: details}
	}
	solution, _ := reference.Field(codeType)

	label := codeLabel(codeType)
	a := []rune(NormalizeForSimilarity(code))
	b := []rune(NormalizeForSimilarity(solution))
	if len(a) > MaxSimilarityRunes || len(b) > MaxSimilarityRunes {
		return outcome{
			message: fmt.Sprintf("%s code is too long to compare (limit %d characters)", label, MaxSimilarityRunes),
			details: details,
		}
	}

	similarity := similarityOfNormalized(a, b)
	details["similarity"] = similarity
	if similarity < threshold {
		return outcome{
			message: fmt.Sprintf("%s code is only %d%% similar to the solution (required %d%%)", label, similarity, threshold),
			details: details,
		}
	}
	return outcome{
		passed:  true,
		message: fmt.Sprintf("%s code is %d%% similar to the solution (required %d%%)", label, similarity, threshold),
		details: details,
	}
}

func codeLabel(codeType string) string {
	switch codeType {
	case CodeTypeCSS:
		return "CSS"
	case CodeTypeJS:
		return "JavaScript"
	default:
		return "HTML"
	}
}
