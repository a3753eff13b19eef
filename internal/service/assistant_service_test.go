package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/evaluator"
	"github.com/noah-isme/codequest-api/internal/repository"
	"github.com/noah-isme/codequest-api/internal/service"
	"github.com/noah-isme/codequest-api/pkg/ai"
)

type stubAssistant struct {
	reply   ai.AssistantReply
	err     error
	request ai.AssistantRequest
}

func (s *stubAssistant) Ask(_ context.Context, request ai.AssistantRequest) (ai.AssistantReply, error) {
	s.request = request
	return s.reply, s.err
}

func TestAssistantServiceAskSanitisesReply(t *testing.T) {
	env := setupEnv(t)
	env.createChallenge(t, "say-hello", 100)

	stub := &stubAssistant{reply: ai.AssistantReply{
		Answer:   "Try an <code>h1</code> element.<script>steal()</script>",
		Provider: ai.ProviderAnthropic,
		Model:    "claude-test",
	}}
	svc := service.NewAssistantService(stub, repository.NewChallengeRepository(env.db), env.validate, 2000, env.logger)

	resp, err := svc.Ask(context.Background(), 1, dto.AssistantAskRequest{
		Question:      "Why does my heading not show?",
		ChallengeSlug: "say-hello",
		Code:          &evaluator.Submission{HTML: "<h2>Hello</h2>"},
	})
	require.NoError(t, err)
	require.Equal(t, "Try an <code>h1</code> element.", resp.Answer)
	require.Equal(t, ai.ProviderAnthropic, resp.Provider)
	require.Equal(t, "claude-test", resp.Model)

	require.Equal(t, "Say hello", stub.request.ChallengeTitle)
	require.Equal(t, "<h2>Hello</h2>", stub.request.HTML)
	require.Equal(t, "Why does my heading not show?", stub.request.Question)
}

func TestAssistantServiceErrors(t *testing.T) {
	env := setupEnv(t)
	challenges := repository.NewChallengeRepository(env.db)
	ctx := context.Background()

	unavailable := service.NewAssistantService(nil, challenges, env.validate, 2000, env.logger)
	_, err := unavailable.Ask(ctx, 1, dto.AssistantAskRequest{Question: "help me"})
	require.ErrorIs(t, err, service.ErrAssistantUnavailable)

	failing := service.NewAssistantService(&stubAssistant{err: errors.New("upstream 500")}, challenges, env.validate, 2000, env.logger)
	_, err = failing.Ask(ctx, 1, dto.AssistantAskRequest{Question: "help me"})
	require.ErrorIs(t, err, service.ErrAssistantFailed)

	ok := service.NewAssistantService(&stubAssistant{}, challenges, env.validate, 2000, env.logger)
	_, err = ok.Ask(ctx, 1, dto.AssistantAskRequest{Question: "?"})
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))

	_, err = ok.Ask(ctx, 1, dto.AssistantAskRequest{Question: "what now?", ChallengeSlug: "missing"})
	require.ErrorIs(t, err, service.ErrChallengeNotFound)
}
