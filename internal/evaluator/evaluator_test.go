package evaluator_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codequest-api/internal/evaluator"
)

func intPtr(v int) *int {
	return &v
}

func TestEvaluateElementExistsFullScore(t *testing.T) {
	rules := []evaluator.Rule{{Kind: evaluator.KindElementExists, Selector: "h1", Points: 50}}

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<h1>Hi</h1>"}, rules, nil)

	require.Len(t, result.TestResults, 1)
	require.True(t, result.TestResults[0].Passed)
	require.Equal(t, 100, result.Score)
	require.Equal(t, 50, result.TotalPoints)
	require.Equal(t, 50, result.EarnedPoints)
	require.Equal(t, []string{evaluator.FeedbackExcellent}, result.Feedback)
}

func TestEvaluatePartialCreditListsFailures(t *testing.T) {
	rules := []evaluator.Rule{
		{Kind: evaluator.KindElementExists, Selector: "h1", Points: 50},
		{Kind: evaluator.KindElementTextContains, Selector: "h1", Expected: "Hello", Points: 50},
	}

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<h1>Hi</h1>"}, rules, nil)

	require.True(t, result.TestResults[0].Passed)
	require.False(t, result.TestResults[1].Passed)
	require.Equal(t, 50, result.Score)
	require.Equal(t, []string{
		evaluator.FeedbackOnTrack,
		evaluator.FeedbackIssues,
		`- Expected <h1> text to contain "Hello" but found "Hi"`,
	}, result.Feedback)
}

func TestEvaluateCSSProperty(t *testing.T) {
	rules := []evaluator.Rule{{Kind: evaluator.KindCSSProperty, Selector: ".box", Property: "color", Expected: "red", Points: 100}}

	result := evaluator.Evaluate(evaluator.Submission{CSS: ".box { color: red; }"}, rules, nil)

	require.True(t, result.TestResults[0].Passed)
	require.Equal(t, 100, result.Score)
	require.Equal(t, "red", result.TestResults[0].Details["actual"])
}

func TestEvaluateSimilarityWithoutReferenceFails(t *testing.T) {
	rules := []evaluator.Rule{{Kind: evaluator.KindSimilarityCheck, CodeType: "html", Threshold: intPtr(80), Points: 100}}

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<p>hi</p>"}, rules, nil)

	require.False(t, result.TestResults[0].Passed)
	require.Contains(t, result.TestResults[0].Message, "No reference solution")
	require.Equal(t, 0, result.Score)
}

func TestEvaluateEmptyRuleSet(t *testing.T) {
	result := evaluator.Evaluate(evaluator.Submission{HTML: "<p>hi</p>"}, []evaluator.Rule{}, nil)

	require.Equal(t, 0, result.Score)
	require.Equal(t, 0, result.TotalPoints)
	require.Equal(t, 0, result.EarnedPoints)
	require.NotNil(t, result.TestResults)
	require.Empty(t, result.TestResults)
	require.Equal(t, []string{evaluator.FeedbackKeepGoing}, result.Feedback)

	payload, err := json.Marshal(result)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"testResults":[]`)
}

func TestEvaluateJavaScriptFunctionExpression(t *testing.T) {
	rules := []evaluator.Rule{{Kind: evaluator.KindJavaScriptFunction, Function: "greet", Points: 10}}

	result := evaluator.Evaluate(evaluator.Submission{JS: "const greet = function() {}"}, rules, nil)

	require.True(t, result.TestResults[0].Passed)
	require.Equal(t, 100, result.Score)
}

func TestEvaluateUnknownKindStillCountsPoints(t *testing.T) {
	rules := []evaluator.Rule{
		{Kind: "bogus", Description: "mystery", Points: 10},
		{Kind: evaluator.KindCodeContains, Pattern: "<p>", Points: 10},
	}

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<p>hi</p>"}, rules, nil)

	require.False(t, result.TestResults[0].Passed)
	require.Equal(t, "Unknown test type: bogus", result.TestResults[0].Message)
	require.Equal(t, evaluator.RuleKind("bogus"), result.TestResults[0].Kind)
	require.Equal(t, 20, result.TotalPoints)
	require.Equal(t, 10, result.EarnedPoints)
	require.Equal(t, 50, result.Score)
}

func TestEvaluateZeroWeightRulesNeverScore(t *testing.T) {
	rules := []evaluator.Rule{
		{Kind: evaluator.KindElementExists, Selector: "p"},
		{Kind: evaluator.KindCodeContains, Pattern: "hi", Points: 0},
	}

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<p>hi</p>"}, rules, nil)

	require.True(t, result.TestResults[0].Passed)
	require.True(t, result.TestResults[1].Passed)
	require.Equal(t, 0, result.TotalPoints)
	require.Equal(t, 0, result.Score)
}

func TestEvaluateNegativePointsAreClamped(t *testing.T) {
	rules := []evaluator.Rule{
		{Kind: evaluator.KindElementExists, Selector: "p", Points: -20},
		{Kind: evaluator.KindElementExists, Selector: "span", Points: 10},
	}

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<p>hi</p>"}, rules, nil)

	require.Equal(t, 0, result.TestResults[0].Points)
	require.Equal(t, 10, result.TotalPoints)
	require.Equal(t, 0, result.EarnedPoints)
	require.Equal(t, 0, result.Score)
}

func TestEvaluateHugePointsConserveWeight(t *testing.T) {
	rules, err := evaluator.DecodeRules([]byte(`[
		{"kind": "element_exists", "selector": "h1", "points": 1e19},
		{"kind": "code_contains", "pattern": "x", "points": 1e19}
	]`))
	require.NoError(t, err)

	result := evaluator.Evaluate(evaluator.Submission{HTML: "<h1>x</h1>"}, rules, nil)
	require.Equal(t, 2*evaluator.MaxPoints, result.TotalPoints)
	require.Equal(t, result.TotalPoints, result.EarnedPoints)
	require.Equal(t, 100, result.Score)

	maxed := []evaluator.Rule{
		{Kind: evaluator.KindElementExists, Selector: "h1", Points: math.MaxInt},
		{Kind: evaluator.KindElementExists, Selector: "span", Points: math.MaxInt},
	}
	result = evaluator.Evaluate(evaluator.Submission{HTML: "<h1>x</h1>"}, maxed, nil)

	sum := 0
	for _, test := range result.TestResults {
		sum += test.Points
	}
	require.Equal(t, sum, result.TotalPoints)
	require.Equal(t, 2*evaluator.MaxPoints, result.TotalPoints)
	require.Equal(t, evaluator.MaxPoints, result.EarnedPoints)
	require.Equal(t, 50, result.Score)
}

func TestEvaluatePropertiesHoldForMixedRuleSet(t *testing.T) {
	submission := evaluator.Submission{
		HTML: "<!DOCTYPE html><html><body><h1 class=\"title\">Welcome Home</h1><p>Intro</p></body></html>",
		CSS:  "h1 { color: navy; }\n.card { padding: 8px; }",
		JS:   "function init() { console.log('ready') }",
	}
	reference := &evaluator.Submission{
		HTML: "<!DOCTYPE html><html><body><h1 class=\"title\">Welcome Home</h1><p>Intro</p></body></html>",
	}
	rules := []evaluator.Rule{
		{Kind: evaluator.KindElementExists, Description: "has heading", Selector: "h1", Points: 10},
		{Kind: evaluator.KindElementText, Description: "heading text", Selector: "h1", Expected: "welcome home", Points: 15},
		{Kind: evaluator.KindCSSProperty, Description: "card padding", Selector: ".card", Property: "padding", Expected: "16px", Points: 20},
		{Kind: evaluator.KindJavaScriptFunction, Description: "init", Function: "init", Points: 5},
		{Kind: evaluator.KindCodeContains, Description: "logs", CodeType: "js", Pattern: "CONSOLE.LOG", Points: 5},
		{Kind: evaluator.KindSimilarityCheck, Description: "close to solution", Points: 25},
		{Kind: "nope", Description: "unknown", Points: 20},
	}

	first := evaluator.Evaluate(submission, rules, reference)
	second := evaluator.Evaluate(submission, rules, reference)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(firstJSON), string(secondJSON))

	total, earned := 0, 0
	for i, result := range first.TestResults {
		require.Equal(t, rules[i].Label(), result.Description)
		total += rules[i].Points
		if result.Passed {
			earned += result.Points
		}
	}
	require.Equal(t, total, first.TotalPoints)
	require.Equal(t, earned, first.EarnedPoints)
	require.Equal(t, 60, earned)
	require.Equal(t, 60, first.Score)
	require.GreaterOrEqual(t, first.Score, 0)
	require.LessOrEqual(t, first.Score, 100)
}

func TestEvaluateDefaultsDescription(t *testing.T) {
	result := evaluator.Evaluate(evaluator.Submission{}, []evaluator.Rule{{Kind: evaluator.KindElementExists, Selector: "p", Points: 1}}, nil)

	require.Equal(t, evaluator.DefaultDescription, result.TestResults[0].Description)
	require.False(t, result.TestResults[0].Passed)
}

func TestEvaluatorValueIsUsable(t *testing.T) {
	var e evaluator.Evaluator
	result := e.Evaluate(evaluator.Submission{HTML: "<main></main>"}, []evaluator.Rule{{Kind: evaluator.KindElementExists, Selector: "main", Points: 3}}, nil)

	require.Equal(t, 100, result.Score)
}

func TestFeedbackTierBoundaries(t *testing.T) {
	cases := map[int]string{
		100: evaluator.FeedbackExcellent,
		90:  evaluator.FeedbackExcellent,
		89:  evaluator.FeedbackGood,
		70:  evaluator.FeedbackGood,
		69:  evaluator.FeedbackOnTrack,
		50:  evaluator.FeedbackOnTrack,
		49:  evaluator.FeedbackKeepGoing,
		0:   evaluator.FeedbackKeepGoing,
	}
	for score, expected := range cases {
		require.Equal(t, expected, evaluator.FeedbackTier(score), "score %d", score)
	}
}

func TestScorePercentRounds(t *testing.T) {
	require.Equal(t, 0, evaluator.ScorePercent(5, 0))
	require.Equal(t, 33, evaluator.ScorePercent(1, 3))
	require.Equal(t, 67, evaluator.ScorePercent(2, 3))
	require.Equal(t, 50, evaluator.ScorePercent(1, 2))
	require.Equal(t, 100, evaluator.ScorePercent(7, 7))
}

func TestAnalyzeReportsObservations(t *testing.T) {
	analysis := evaluator.Analyze(evaluator.Submission{
		HTML: "<!DOCTYPE html><html><body><p>x</p></body></html>",
		CSS:  "a { color: red; } b { margin: 0; }",
		JS:   "const x = 1",
	})

	require.Equal(t, []string{"Includes a DOCTYPE declaration"}, analysis.Strengths)
	require.Equal(t, []string{"Uses 3 HTML elements", "Defines 2 CSS rules"}, analysis.CodeQuality)
	require.Equal(t, []string{"Consider grouping your logic into functions"}, analysis.Suggestions)
}

func TestAnalyzeEmptySubmission(t *testing.T) {
	analysis := evaluator.Analyze(evaluator.Submission{})

	require.NotNil(t, analysis.CodeQuality)
	require.NotNil(t, analysis.Suggestions)
	require.NotNil(t, analysis.Strengths)
	require.Empty(t, analysis.CodeQuality)
	require.Empty(t, analysis.Suggestions)
	require.Empty(t, analysis.Strengths)
}
