package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/codequest-api/internal/dto"
	"github.com/noah-isme/codequest-api/internal/models"
	"github.com/noah-isme/codequest-api/internal/service"
)

func TestProgressServiceAward(t *testing.T) {
	env := setupEnv(t)
	user := env.createUser(t, "kim", 450)
	ctx := context.Background()

	outcome, err := env.progress.Award(ctx, user.ID, 100, models.XPSourceChallenge, 1, "first")
	require.NoError(t, err)
	require.Equal(t, service.XPOutcome{Awarded: 100, TotalXP: 550, Level: 2}, outcome)

	outcome, err = env.progress.Award(ctx, user.ID, 100, models.XPSourceChallenge, 1, "again")
	require.NoError(t, err)
	require.Equal(t, service.XPOutcome{Awarded: 0, TotalXP: 550, Level: 2}, outcome)

	outcome, err = env.progress.Award(ctx, user.ID, 0, models.XPSourceLesson, 2, "nothing")
	require.NoError(t, err)
	require.Zero(t, outcome.Awarded)
	require.Equal(t, 550, outcome.TotalXP)

	_, err = env.progress.Award(ctx, 999, 10, models.XPSourceLesson, 2, "ghost")
	require.ErrorIs(t, err, service.ErrUserNotFound)
	_, err = env.progress.Award(ctx, 999, 0, models.XPSourceLesson, 2, "ghost")
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestProgressServiceProfile(t *testing.T) {
	env := setupEnv(t)
	env.createChallenge(t, "say-hello", 120)
	env.createLesson(t, "basics", "headings", 1, 30)
	env.createUser(t, "leader", 5000)
	user := env.createUser(t, "sam", 0)
	ctx := context.Background()

	_, err := env.challenges.Submit(ctx, user.ID, dto.ChallengeSubmitRequest{ChallengeSlug: "say-hello", Code: passingCode})
	require.NoError(t, err)
	_, err = env.lessons.Submit(ctx, user.ID, "headings", dto.LessonSubmitRequest{Code: passingCode})
	require.NoError(t, err)

	profile, err := env.progress.Profile(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "sam", profile.Username)
	require.Equal(t, "sam", profile.DisplayName)
	require.Equal(t, 150, profile.TotalXP)
	require.Equal(t, 1, profile.Level)
	require.Equal(t, 350, profile.XPToNextLevel)
	require.Equal(t, int64(2), profile.Rank)
	require.Equal(t, int64(1), profile.CompletedChallenges)
	require.Equal(t, int64(1), profile.CompletedLessons)
	require.Len(t, profile.RecentXP, 2)

	_, err = env.progress.Profile(ctx, 999)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}
