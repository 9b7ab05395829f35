package giveaway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var reqErr *RequirementError
	require.True(t, errors.As(err, &reqErr), "expected requirement error, got %v", err)
	return reqErr.Reason
}

func TestCheckRequirementsOrder(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	req := Requirements{
		MinAccountAgeDays: 7,
		MustBeInGuild:     "partner",
		RequiredRoleIDs:   []string{"vip"},
	}

	young := Entrant{UserID: "u1", AccountCreatedAt: now.Add(-24 * time.Hour)}
	assert.Equal(t, ReasonAccountAge, reasonOf(t, CheckRequirements(young, req, now)))

	old := Entrant{UserID: "u1", AccountCreatedAt: now.AddDate(0, 0, -30)}
	assert.Equal(t, ReasonGuildMembership, reasonOf(t, CheckRequirements(old, req, now)))

	old.IsMember = func(guildID string) bool { return guildID == "partner" }
	assert.Equal(t, ReasonMissingRole, reasonOf(t, CheckRequirements(old, req, now)))

	old.RoleIDs = []string{"other", "vip"}
	assert.NoError(t, CheckRequirements(old, req, now))
}

func TestCheckRequirementsAccountAgeBoundary(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	req := Requirements{MinAccountAgeDays: 3}

	exact := Entrant{UserID: "u1", AccountCreatedAt: now.AddDate(0, 0, -3)}
	assert.NoError(t, CheckRequirements(exact, req, now))

	justShort := Entrant{UserID: "u1", AccountCreatedAt: now.AddDate(0, 0, -3).Add(time.Second)}
	assert.ErrorIs(t, CheckRequirements(justShort, req, now), ErrRequirementNotMet)
}

func TestCheckRequirementsEmpty(t *testing.T) {
	assert.True(t, Requirements{}.Empty())
	assert.NoError(t, CheckRequirements(Entrant{UserID: "u1"}, Requirements{}, time.Now()))
}
