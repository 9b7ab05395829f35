package giveaway

import (
	"context"
	"fmt"
	"time"
)

type Reason string

const (
	ReasonAccountAge      Reason = "account_age"
	ReasonGuildMembership Reason = "guild_membership"
	ReasonMissingRole     Reason = "missing_role"
)

// Requirements gate entry for every giveaway posted to one destination.
type Requirements struct {
	MinAccountAgeDays int
	MustBeInGuild     string
	RequiredRoleIDs   []string
}

func (r Requirements) Empty() bool {
	return r.MinAccountAgeDays <= 0 && r.MustBeInGuild == "" && len(r.RequiredRoleIDs) == 0
}

type RequirementsStore interface {
	GetRequirements(ctx context.Context, destination string) (Requirements, error)
}

// Entrant is the live state of a member at the moment they press enter.
type Entrant struct {
	UserID           string
	AccountCreatedAt time.Time
	RoleIDs          []string
	// IsMember reports guild membership; nil means membership cannot be confirmed.
	IsMember func(guildID string) bool
}

type RequirementError struct {
	Reason Reason
	Detail string
}

func (e *RequirementError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("requirement not met: %s", e.Reason)
	}
	return fmt.Sprintf("requirement not met: %s (%s)", e.Reason, e.Detail)
}

func (e *RequirementError) Is(target error) bool { return target == ErrRequirementNotMet }

// CheckRequirements evaluates account age, then guild membership, then roles. The first
// failing check is returned.
func CheckRequirements(entrant Entrant, req Requirements, now time.Time) error {
	if req.MinAccountAgeDays > 0 {
		minAge := time.Duration(req.MinAccountAgeDays) * 24 * time.Hour
		if entrant.AccountCreatedAt.IsZero() || now.Sub(entrant.AccountCreatedAt) < minAge {
			return &RequirementError{
				Reason: ReasonAccountAge,
				Detail: fmt.Sprintf("account must be at least %d days old", req.MinAccountAgeDays),
			}
		}
	}

	if req.MustBeInGuild != "" {
		if entrant.IsMember == nil || !entrant.IsMember(req.MustBeInGuild) {
			return &RequirementError{Reason: ReasonGuildMembership, Detail: req.MustBeInGuild}
		}
	}

	if len(req.RequiredRoleIDs) > 0 {
		held := make(map[string]struct{}, len(entrant.RoleIDs))
		for _, roleID := range entrant.RoleIDs {
			held[roleID] = struct{}{}
		}
		for _, roleID := range req.RequiredRoleIDs {
			if _, ok := held[roleID]; !ok {
				return &RequirementError{Reason: ReasonMissingRole, Detail: roleID}
			}
		}
	}
	return nil
}
