package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codequest-api/internal/evaluator"
)

func TestRecordEvaluationCountsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(Evaluations().WithLabelValues(TargetChallenge, "completed"))
	unknownBefore := testutil.ToFloat64(RuleOutcomes().WithLabelValues("unknown", "false"))

	RecordEvaluation(TargetChallenge, evaluator.Result{
		Score: 80,
		TestResults: []evaluator.TestResult{
			{Kind: evaluator.KindElementExists, Passed: true},
			{Kind: "made_up", Passed: false},
		},
	}, true)

	require.Equal(t, before+1, testutil.ToFloat64(Evaluations().WithLabelValues(TargetChallenge, "completed")))
	require.Equal(t, unknownBefore+1, testutil.ToFloat64(RuleOutcomes().WithLabelValues("unknown", "false")))
}

func TestKindLabelCollapsesUnknownKinds(t *testing.T) {
	require.Equal(t, "css_property", kindLabel(evaluator.KindCSSProperty))
	require.Equal(t, "unknown", kindLabel("anything"))
}
