package observability

import (
	"strconv"

	"github.com/noah-isme/codequest-api/internal/evaluator"
)

// Evaluation targets.
const (
	TargetChallenge = "challenge"
	TargetLesson    = "lesson"
)

// RecordEvaluation tracks the score, completion and per-rule outcomes of one evaluation.
func RecordEvaluation(target string, result evaluator.Result, completed bool) {
	outcome := "incomplete"
	if completed {
		outcome = "completed"
	}

	Evaluations().WithLabelValues(target, outcome).Inc()
	EvaluationScore().WithLabelValues(target).Observe(float64(result.Score))
	for _, test := range result.TestResults {
		RuleOutcomes().WithLabelValues(kindLabel(test.Kind), strconv.FormatBool(test.Passed)).Inc()
	}
}

func kindLabel(kind evaluator.RuleKind) string {
	for _, known := range evaluator.Kinds() {
		if kind == known {
			return string(kind)
		}
	}
	return "unknown"
}
