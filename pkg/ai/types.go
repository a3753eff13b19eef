package ai

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

var (
	assistantDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codequest",
		Subsystem: "ai",
		Name:      "assistant_duration_seconds",
		Help:      "Duration of AI assistant requests",
	}, []string{"provider", "model"})

	assistantFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codequest",
		Subsystem: "ai",
		Name:      "assistant_failures_total",
		Help:      "Number of AI assistant failures",
	}, []string{"provider", "model"})
)

// AssistantRequest carries the learner question and optional exercise context.
type AssistantRequest struct {
	Question             string
	ChallengeTitle       string
	ChallengeDescription string
	HTML                 string
	CSS                  string
	JS                   string
}

// AssistantReply is the answer produced by a provider.
type AssistantReply struct {
	Answer   string `json:"answer"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Assistant describes an AI model able to answer learner questions.
type Assistant interface {
	Ask(ctx context.Context, request AssistantRequest) (AssistantReply, error)
}

func assistantSystemPrompt() string {
	return "You are a patient web development tutor helping beginners with HTML, CSS and JavaScript exercises. " +
		"Give hints and short explanations. Do not hand over a complete solution; point at the next step instead."
}

func buildAssistantPrompt(request AssistantRequest) string {
	builder := strings.Builder{}
	if request.ChallengeTitle != "" {
		builder.WriteString("# Exercise\n")
		builder.WriteString(request.ChallengeTitle)
		builder.WriteString("\n\n")
	}
	if request.ChallengeDescription != "" {
		builder.WriteString("## Instructions\n")
		builder.WriteString(request.ChallengeDescription)
		builder.WriteString("\n\n")
	}
	writeCode(&builder, "HTML", request.HTML)
	writeCode(&builder, "CSS", request.CSS)
	writeCode(&builder, "JavaScript", request.JS)
	builder.WriteString("## Question\n")
	builder.WriteString(request.Question)
	return builder.String()
}

func writeCode(builder *strings.Builder, label, code string) {
	if strings.TrimSpace(code) == "" {
		return
	}
	builder.WriteString("## My ")
	builder.WriteString(label)
	builder.WriteString("\n```\n")
	builder.WriteString(code)
	builder.WriteString("\n```\n\n")
}
