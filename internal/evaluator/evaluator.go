// Package evaluator scores learner HTML/CSS/JS submissions against weighted,
// rule-based checks and derives feedback from the outcome.
//
// The checks are text heuristics (regular expressions and substring tests),
// not a DOM or CSS parser. Challenge content is authored against exactly these
// heuristics, so their quirks are part of the contract.
package evaluator

import (
	"fmt"
	"math"
	"strings"
)

// Feedback tier messages, selected by score.
const (
	FeedbackExcellent = "Excellent work! Your code meets nearly all of the requirements."
	FeedbackGood      = "Good job! Your solution passes most of the checks."
	FeedbackOnTrack   = "You're on the right track. Review the failing checks below."
	FeedbackKeepGoing = "Keep trying! Re-read the requirements and give it another go."
	FeedbackIssues    = "Issues to fix:"
)

// Evaluator runs rule sets against submissions. It holds no state; the zero
// value is ready to use and safe for concurrent use.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores submission against rules. reference is only consulted by
// similarity checks and may be nil.
func (e *Evaluator) Evaluate(submission Submission, rules []Rule, reference *Submission) Result {
	return Evaluate(submission, rules, reference)
}

// Evaluate scores submission against rules in order. It never panics: a fault
// inside a single checker fails that rule only.
func Evaluate(submission Submission, rules []Rule, reference *Submission) Result {
	result := Result{
		TestResults: make([]TestResult, 0, len(rules)),
	}

	for _, rule := range rules {
		weight := rule.Weight()
		test := runRule(rule, submission, reference)

		result.TotalPoints += weight
		if test.Passed {
			result.EarnedPoints += weight
		}
		result.TestResults = append(result.TestResults, test)
	}

	result.Score = ScorePercent(result.EarnedPoints, result.TotalPoints)
	result.Feedback = BuildFeedback(result.Score, result.TestResults)
	result.CodeAnalysis = Analyze(submission)

	return result
}

// ScorePercent converts earned and total points into a 0-100 score.
func ScorePercent(earned, total int) int {
	if total <= 0 {
		return 0
	}
	score := int(math.Round(float64(earned) / float64(total) * 100))
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

func runRule(rule Rule, submission Submission, reference *Submission) (test TestResult) {
	test = TestResult{
		Description: rule.Label(),
		Kind:        rule.Kind,
		Points:      rule.Weight(),
		Details:     map[string]interface{}{},
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			test.Passed = false
			test.Message = fmt.Sprintf("Test error: %v", recovered)
			test.Details = map[string]interface{}{}
		}
	}()

	if reason := rule.DecodeError(); reason != "" {
		test.Message = "Test error: " + reason
		return test
	}

	check, ok := checkers[rule.Kind]
	if !ok {
		test.Message = fmt.Sprintf("Unknown test type: %s", rule.Kind)
		return test
	}

	out := check(rule, submission, reference)
	test.Passed = out.passed
	test.Message = out.message
	if out.details != nil {
		test.Details = out.details
	}
	return test
}

// FeedbackTier returns the tier message for a score.
func FeedbackTier(score int) string {
	switch {
	case score >= 90:
		return FeedbackExcellent
	case score >= 70:
		return FeedbackGood
	case score >= 50:
		return FeedbackOnTrack
	default:
		return FeedbackKeepGoing
	}
}

// BuildFeedback returns the tier message followed, when any rule failed, by a
// header and one bullet per failing rule in rule order.
func BuildFeedback(score int, results []TestResult) []string {
	feedback := []string{FeedbackTier(score)}

	var failures []string
	for _, result := range results {
		if !result.Passed {
			failures = append(failures, "- "+result.Message)
		}
	}
	if len(failures) > 0 {
		feedback = append(feedback, FeedbackIssues)
		feedback = append(feedback, failures...)
	}

	return feedback
}

// Analyze produces advisory observations about a submission.
func Analyze(submission Submission) CodeAnalysis {
	analysis := CodeAnalysis{
		CodeQuality: []string{},
		Suggestions: []string{},
		Strengths:   []string{},
	}

	if strings.TrimSpace(submission.HTML) != "" {
		if hasDoctype(submission.HTML) {
			analysis.Strengths = append(analysis.Strengths, "Includes a DOCTYPE declaration")
		} else {
			analysis.Suggestions = append(analysis.Suggestions, "Add <!DOCTYPE html> at the top of your document")
		}
		analysis.CodeQuality = append(analysis.CodeQuality, fmt.Sprintf("Uses %d HTML elements", countOpeningTags(submission.HTML)))
	}

	if strings.TrimSpace(submission.CSS) != "" {
		if blocks := countCSSBlocks(submission.CSS); blocks > 0 {
			analysis.CodeQuality = append(analysis.CodeQuality, fmt.Sprintf("Defines %d CSS rules", blocks))
		}
	}

	if strings.TrimSpace(submission.JS) != "" {
		if strings.Contains(submission.JS, "function") {
			analysis.Strengths = append(analysis.Strengths, "Organizes logic into functions")
		} else {
			analysis.Suggestions = append(analysis.Suggestions, "Consider grouping your logic into functions")
		}
	}

	return analysis
}
