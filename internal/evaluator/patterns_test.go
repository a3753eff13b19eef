package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagNameStripsSelectorPrefixes(t *testing.T) {
	require.Equal(t, "title", tagName("#title"))
	require.Equal(t, "title", tagName(".title"))
	require.Equal(t, "nav", tagName("  nav "))
	require.Equal(t, "", tagName("#."))
}

func TestHasOpeningTag(t *testing.T) {
	require.True(t, hasOpeningTag(`<section id="x">`, "section"))
	require.True(t, hasOpeningTag(`<BR/>`, "br"))
	require.True(t, hasOpeningTag("<img\nsrc=\"a.png\" />", "img"))
	require.False(t, hasOpeningTag("<header></header>", "head"))
	require.False(t, hasOpeningTag("</p>", "p"))
	require.False(t, hasOpeningTag("<p>", ""))
}

func TestElementExistsTreatsIDAndClassAsTag(t *testing.T) {
	rule := Rule{Kind: KindElementExists, Selector: "#title"}

	require.True(t, checkElementExists(rule, Submission{HTML: "<title>Page</title>"}, nil).passed)
	require.False(t, checkElementExists(rule, Submission{HTML: `<h1 id="title">Page</h1>`}, nil).passed)
}

func TestFirstElementTextStripsMarkupAndWhitespace(t *testing.T) {
	text, ok := firstElementText("<P class=\"lead\">  Hello \n  <strong>World</strong> </P>", "p")

	require.True(t, ok)
	require.Equal(t, "Hello World", text)
}

func TestFirstElementTextStopsAtFirstClosingTag(t *testing.T) {
	text, ok := firstElementText("<div>outer <div>inner</div> tail</div>", "div")

	require.True(t, ok)
	require.Equal(t, "outer inner", text)
}

func TestFirstElementTextMissing(t *testing.T) {
	_, ok := firstElementText("<p>unclosed", "p")
	require.False(t, ok)
}

func TestElementTextEqualityIsCaseInsensitive(t *testing.T) {
	rule := Rule{Kind: KindElementText, Selector: "h2", Expected: "  my   SKILLS "}

	out := checkElementText(rule, Submission{HTML: "<h2>My Skills</h2>"}, nil)
	require.True(t, out.passed)

	out = checkElementText(rule, Submission{HTML: "<h2>My Skills and more</h2>"}, nil)
	require.False(t, out.passed)
	require.Equal(t, `Expected <h2> text to be "my SKILLS" but found "My Skills and more"`, out.message)
}

func TestElementTextMissingElement(t *testing.T) {
	out := checkElementText(Rule{Selector: "h2", Expected: "x"}, Submission{HTML: "<h1>x</h1>"}, nil)

	require.False(t, out.passed)
	require.Equal(t, "No <h2> element found", out.message)
	require.Equal(t, false, out.details["found"])
}

func TestCSSDeclaration(t *testing.T) {
	css := "body { margin: 0 }\n.box{background-color: red}\n.card, .box { COLOR : Blue ; }"

	value, block, declared := cssDeclaration(css, ".box", "color")
	require.True(t, block)
	require.True(t, declared)
	require.Equal(t, "Blue", value)

	_, block, declared = cssDeclaration(css, ".missing", "color")
	require.False(t, block)
	require.False(t, declared)

	_, block, declared = cssDeclaration("body { margin: 0 }", "body", "padding")
	require.True(t, block)
	require.False(t, declared)
}

func TestCSSPropertyMessages(t *testing.T) {
	rule := Rule{Kind: KindCSSProperty, Selector: ".box", Property: "color", Expected: "red"}

	out := checkCSSProperty(rule, Submission{CSS: ".box { color: RED; }"}, nil)
	require.True(t, out.passed)

	out = checkCSSProperty(rule, Submission{CSS: ".box{color:blue}"}, nil)
	require.False(t, out.passed)
	require.Equal(t, `Expected color of ".box" to be "red" but found "blue"`, out.message)

	out = checkCSSProperty(rule, Submission{CSS: ".box { background-color: red; }"}, nil)
	require.False(t, out.passed)
	require.Equal(t, `CSS rule ".box" does not set color`, out.message)

	out = checkCSSProperty(rule, Submission{CSS: "p { color: red; }"}, nil)
	require.False(t, out.passed)
	require.Equal(t, `No CSS rule found for selector ".box"`, out.message)

	out = checkCSSProperty(Rule{Kind: KindCSSProperty, Selector: ".box"}, Submission{CSS: ".box{}"}, nil)
	require.False(t, out.passed)
}

func TestDeclaresFunctionForms(t *testing.T) {
	forms := map[string]bool{
		"function greet() {}":         true,
		"greet = function () {}":      true,
		"const greet = () => {}":      true,
		"let greet = () => {}":        true,
		"var greet = () => {}":        false,
		"greet=function(){}":          false,
		"function greeting() {}":      true,
		"console.log('greet people')": false,
	}
	for js, expected := range forms {
		_, ok := declaresFunction(js, "greet")
		require.Equal(t, expected, ok, js)
	}

	_, ok := declaresFunction("function x() {}", " ")
	require.False(t, ok)
}

func TestCodeContainsUsesCodeType(t *testing.T) {
	submission := Submission{HTML: "<div></div>", CSS: "DISPLAY: FLEX", JS: "addEventListener('click')"}

	require.True(t, checkCodeContains(Rule{CodeType: "css", Pattern: "display: flex"}, submission, nil).passed)
	require.True(t, checkCodeContains(Rule{CodeType: "JavaScript", Pattern: "addeventlistener"}, submission, nil).passed)
	require.True(t, checkCodeContains(Rule{Pattern: "<div>"}, submission, nil).passed)
	require.False(t, checkCodeContains(Rule{CodeType: "css", Pattern: "grid"}, submission, nil).passed)

	out := checkCodeContains(Rule{CodeType: "python", Pattern: "x"}, submission, nil)
	require.False(t, out.passed)
	require.Equal(t, "Unknown code type: python", out.message)
}

func TestSimilarityCheckAgainstReference(t *testing.T) {
	reference := &Submission{CSS: "h1 { color: red; }"}
	threshold := 80

	out := checkSimilarity(Rule{CodeType: "css", Threshold: &threshold}, Submission{CSS: "H1{COLOR:RED;}"}, reference)
	require.True(t, out.passed)
	require.Equal(t, 100, out.details["similarity"])

	out = checkSimilarity(Rule{CodeType: "css", Threshold: &threshold}, Submission{CSS: "p{}"}, reference)
	require.False(t, out.passed)
	require.Contains(t, out.message, "required 80%")

	out = checkSimilarity(Rule{CodeType: "css"}, Submission{}, &Submission{})
	require.True(t, out.passed)
}

func TestRunRuleRecoversFromCheckerPanic(t *testing.T) {
	const kind RuleKind = "exploding"
	checkers[kind] = func(Rule, Submission, *Submission) outcome {
		panic("regex engine exploded")
	}
	t.Cleanup(func() { delete(checkers, kind) })

	result := Evaluate(Submission{}, []Rule{
		{Kind: kind, Points: 5},
		{Kind: KindCodeContains, Pattern: "", Points: 5},
	}, nil)

	require.False(t, result.TestResults[0].Passed)
	require.Equal(t, "Test error: regex engine exploded", result.TestResults[0].Message)
	require.True(t, result.TestResults[1].Passed)
	require.Equal(t, 10, result.TotalPoints)
	require.Equal(t, 50, result.Score)
}
