package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RuleKind identifies which checker handles a rule.
type RuleKind string

// Supported rule kinds.
const (
	KindElementExists       RuleKind = "element_exists"
	KindElementText         RuleKind = "element_text"
	KindElementTextContains RuleKind = "element_text_contains"
	KindCSSProperty         RuleKind = "css_property"
	KindJavaScriptFunction  RuleKind = "javascript_function"
	KindCodeContains        RuleKind = "code_contains"
	KindSimilarityCheck     RuleKind = "similarity_check"
)

// Kinds lists every supported rule kind in a stable order.
func Kinds() []RuleKind {
	return []RuleKind{
		KindElementExists,
		KindElementText,
		KindElementTextContains,
		KindCSSProperty,
		KindJavaScriptFunction,
		KindCodeContains,
		KindSimilarityCheck,
	}
}

// Code types select which submission field a rule inspects.
const (
	CodeTypeHTML = "html"
	CodeTypeCSS  = "css"
	CodeTypeJS   = "js"
)

const (
	// DefaultDescription labels rules authored without a description.
	DefaultDescription = "Unnamed test"
	// DefaultThreshold is the similarity percentage required when a rule omits one.
	DefaultThreshold = 70
	// MaxPoints caps the weight of a single rule.
	MaxPoints = 1000000
)

// Submission is the code a learner wrote for one attempt.
type Submission struct {
	HTML string `json:"html" yaml:"html"`
	CSS  string `json:"css" yaml:"css"`
	JS   string `json:"js" yaml:"js"`
}

// Field returns the submission source for the given code type. The boolean is
// false when the code type is not recognised.
func (s Submission) Field(codeType string) (string, bool) {
	switch normalizeCodeType(codeType) {
	case CodeTypeHTML:
		return s.HTML, true
	case CodeTypeCSS:
		return s.CSS, true
	case CodeTypeJS:
		return s.JS, true
	default:
		return "", false
	}
}

// IsEmpty reports whether every field is blank.
func (s Submission) IsEmpty() bool {
	return strings.TrimSpace(s.HTML) == "" && strings.TrimSpace(s.CSS) == "" && strings.TrimSpace(s.JS) == ""
}

// Rule is one weighted, typed check against a submission.
type Rule struct {
	Kind        RuleKind `json:"kind"`
	Description string   `json:"description,omitempty"`
	Points      int      `json:"points"`
	Selector    string   `json:"selector,omitempty"`
	Expected    string   `json:"expected,omitempty"`
	Property    string   `json:"property,omitempty"`
	Function    string   `json:"function,omitempty"`
	CodeType    string   `json:"codeType,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Threshold   *int     `json:"threshold,omitempty"`

	invalid string
}

// Label returns the description, or the generic placeholder when blank.
func (r Rule) Label() string {
	if strings.TrimSpace(r.Description) == "" {
		return DefaultDescription
	}
	return r.Description
}

// Weight returns the point value of the rule clamped to [0, MaxPoints].
func (r Rule) Weight() int {
	switch {
	case r.Points < 0:
		return 0
	case r.Points > MaxPoints:
		return MaxPoints
	default:
		return r.Points
	}
}

// DecodeError reports why a stored rule could not be decoded. Such rules
// always fail when evaluated.
func (r Rule) DecodeError() string {
	return r.invalid
}

// SimilarityThreshold returns the configured threshold or DefaultThreshold.
func (r Rule) SimilarityThreshold() int {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// TargetCodeType returns the normalised code type, html when unset.
func (r Rule) TargetCodeType() string {
	return normalizeCodeType(r.CodeType)
}

// rawRule mirrors the authored JSON shape, where numbers sometimes arrive as
// strings and the kind is sometimes keyed as "type".
type rawRule struct {
	Kind        string          `json:"kind"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Points      json.RawMessage `json:"points"`
	Selector    json.RawMessage `json:"selector"`
	Expected    json.RawMessage `json:"expected"`
	Property    json.RawMessage `json:"property"`
	Function    json.RawMessage `json:"function"`
	CodeType    string          `json:"codeType"`
	Pattern     json.RawMessage `json:"pattern"`
	Threshold   json.RawMessage `json:"threshold"`
}

// UnmarshalJSON decodes a rule leniently: numeric fields accept numbers or
// numeric strings, string parameters accept scalars of any type.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind := raw.Kind
	if kind == "" {
		kind = raw.Type
	}

	points, err := flexInt(raw.Points)
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}

	*r = Rule{
		Kind:        RuleKind(strings.TrimSpace(kind)),
		Description: raw.Description,
		Selector:    flexString(raw.Selector),
		Expected:    flexString(raw.Expected),
		Property:    flexString(raw.Property),
		Function:    flexString(raw.Function),
		CodeType:    raw.CodeType,
		Pattern:     flexString(raw.Pattern),
	}
	if points != nil {
		r.Points = *points
	}

	threshold, err := flexInt(raw.Threshold)
	if err != nil {
		return fmt.Errorf("threshold: %w", err)
	}
	r.Threshold = threshold

	return nil
}

// DecodeRules parses a JSON rule list. Empty input yields an empty list.
// Only a document that is not an array is an error; an entry that cannot be
// decoded keeps its position as a rule that fails with the decode error.
func DecodeRules(data []byte) ([]Rule, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return []Rule{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}

	rules := make([]Rule, 0, len(entries))
	for _, entry := range entries {
		var rule Rule
		if err := json.Unmarshal(entry, &rule); err != nil {
			rule = undecodableRule(entry, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// undecodableRule salvages whatever is readable from a broken entry.
func undecodableRule(entry json.RawMessage, cause error) Rule {
	rule := Rule{invalid: cause.Error()}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(entry, &fields); err != nil {
		return rule
	}

	kind := flexString(fields["kind"])
	if kind == "" {
		kind = flexString(fields["type"])
	}
	rule.Kind = RuleKind(strings.TrimSpace(kind))
	rule.Description = flexString(fields["description"])
	if points, err := flexInt(fields["points"]); err == nil && points != nil {
		rule.Points = *points
	}
	return rule
}

// DecodeSubmission parses a JSON submission. Empty input yields nil.
func DecodeSubmission(data []byte) (*Submission, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return nil, nil
	}

	var submission Submission
	if err := json.Unmarshal(data, &submission); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	return &submission, nil
}

func flexInt(raw json.RawMessage) (*int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		value := saturate(number)
		return &value, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("expected number, got %s", trimmed)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(parsed) {
		return nil, fmt.Errorf("expected number, got %q", text)
	}
	value := saturate(parsed)
	return &value, nil
}

// saturate truncates number to an int within [-MaxPoints, MaxPoints].
func saturate(number float64) int {
	switch {
	case number >= MaxPoints:
		return MaxPoints
	case number <= -MaxPoints:
		return -MaxPoints
	default:
		return int(number)
	}
}

func flexString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return trimmed
}

func normalizeCodeType(codeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(codeType))
	switch normalized {
	case "":
		return CodeTypeHTML
	case "javascript":
		return CodeTypeJS
	default:
		return normalized
	}
}

// TestResult is the outcome of one rule.
type TestResult struct {
	Description string                 `json:"description"`
	Kind        RuleKind               `json:"kind"`
	Passed      bool                   `json:"passed"`
	Message     string                 `json:"message"`
	Points      int                    `json:"points"`
	Details     map[string]interface{} `json:"details"`
}

// CodeAnalysis carries advisory observations that never affect the score.
type CodeAnalysis struct {
	CodeQuality []string `json:"codeQuality"`
	Suggestions []string `json:"suggestions"`
	Strengths   []string `json:"strengths"`
}

// Result is the verdict of one evaluation call.
type Result struct {
	Score        int          `json:"score"`
	TotalPoints  int          `json:"totalPoints"`
	EarnedPoints int          `json:"earnedPoints"`
	TestResults  []TestResult `json:"testResults"`
	Feedback     []string     `json:"feedback"`
	CodeAnalysis CodeAnalysis `json:"codeAnalysis"`
}

// PassedCount returns the number of passing rules.
func (r Result) PassedCount() int {
	count := 0
	for _, result := range r.TestResults {
		if result.Passed {
			count++
		}
	}
	return count
}
