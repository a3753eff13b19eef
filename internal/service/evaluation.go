package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/codequest-api/internal/evaluator"
)

const (
	defaultCompletionThreshold = 70
	defaultMaxCodeBytes        = 100000
)

// ErrSubmissionTooLarge is returned when the submitted code exceeds the configured size.
var ErrSubmissionTooLarge = errors.New("submitted code exceeds the size limit")

// EvaluationSettings tunes how submissions are graded.
type EvaluationSettings struct {
	CompletionThreshold int
	MaxCodeBytes        int
}

func (s EvaluationSettings) normalized() EvaluationSettings {
	if s.CompletionThreshold <= 0 || s.CompletionThreshold > 100 {
		s.CompletionThreshold = defaultCompletionThreshold
	}
	if s.MaxCodeBytes <= 0 {
		s.MaxCodeBytes = defaultMaxCodeBytes
	}
	return s
}

func checkCodeSize(submission evaluator.Submission, maxBytes int) error {
	if len(submission.HTML)+len(submission.CSS)+len(submission.JS) > maxBytes {
		return ErrSubmissionTooLarge
	}
	return nil
}

type verdict struct {
	result    evaluator.Result
	completed bool
}

func grade(submission evaluator.Submission, rules []evaluator.Rule, reference *evaluator.Submission, threshold int) verdict {
	result := evaluator.Evaluate(submission, rules, reference)
	return verdict{
		result:    result,
		completed: result.Score >= threshold,
	}
}

func submissionMessage(noun string, authenticated bool, v verdict, xpEarned int, alreadyCompleted bool, threshold int) string {
	switch {
	case !authenticated && v.completed:
		return fmt.Sprintf("You passed this %s! Sign in to save your progress and earn XP.", noun)
	case !authenticated:
		return fmt.Sprintf("Score %d%%. Sign in to save your progress and earn XP.", v.result.Score)
	case v.completed && xpEarned > 0:
		return fmt.Sprintf("%s completed! You earned %d XP.", capitalize(noun), xpEarned)
	case v.completed && alreadyCompleted:
		return fmt.Sprintf("%s completed again. XP is only awarded for the first completion.", capitalize(noun))
	case v.completed:
		return fmt.Sprintf("%s completed!", capitalize(noun))
	default:
		return fmt.Sprintf("Score %d%%. Reach %d%% to complete this %s.", v.result.Score, threshold, noun)
	}
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
