// Package access centralizes the role and ownership rules applied to every
// mutating operation.
//
// Authorization rules:
//   - Admins can edit any team member, the schedule, roles, and the pause
//     flag.
//   - Managers can edit, remove, and add members only under themselves, and
//     set out-of-office only for themselves or their direct reports.
//   - Everyone on the team can manage their own out-of-office.
//
// Every predicate consumes current storage state through RoleSource; nothing
// is cached between calls.
package access

import (
	"fmt"

	"PulseBot/db"
)

// RoleSource answers role-membership questions from current state.
type RoleSource interface {
	IsAdmin(slackID string) bool
	IsManager(slackID string) bool
	AdminCount() int64
}

// DBRoles sources role membership from the roles table.
type DBRoles struct{}

func (DBRoles) IsAdmin(slackID string) bool   { return db.IsAdmin(slackID) }
func (DBRoles) IsManager(slackID string) bool { return db.IsManager(slackID) }
func (DBRoles) AdminCount() int64             { return db.AdminCount() }

// DeniedError carries the user-facing reason an operation was declined.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return e.Reason }

func deny(format string, args ...any) error {
	return &DeniedError{Reason: fmt.Sprintf(format, args...)}
}

type Policy struct {
	Roles RoleSource
}

func (p *Policy) HasAnyRole(actor string) bool {
	return p.Roles.IsAdmin(actor) || p.Roles.IsManager(actor)
}

// CanViewTeam gates the read-only team and status views.
func (p *Policy) CanViewTeam(actor string) error {
	if !p.HasAnyRole(actor) {
		return deny("only admins and managers can use this")
	}
	return nil
}

// CanAddMember allows any privileged actor to add; EffectiveManager pins the
// new member under a non-admin actor.
func (p *Policy) CanAddMember(actor string) error {
	if !p.HasAnyRole(actor) {
		return deny("only admins and managers can manage the team")
	}
	return nil
}

// CanManageMember allows admins to mutate anyone and managers to mutate only
// members whose manager reference is the actor.
func (p *Policy) CanManageMember(actor string, member *db.TeamMember) error {
	if p.Roles.IsAdmin(actor) {
		return nil
	}
	if p.Roles.IsManager(actor) && member.ManagerSlackID == actor {
		return nil
	}
	return deny("you can only edit your own direct reports")
}

// EffectiveManager returns the manager reference to store: admins keep the
// requested value, managers are forced back to themselves.
func (p *Policy) EffectiveManager(actor, requested string) string {
	if p.Roles.IsAdmin(actor) {
		return requested
	}
	return actor
}

func (p *Policy) CanEditSchedule(actor string) error {
	if !p.Roles.IsAdmin(actor) {
		return deny("only admins can change the schedule")
	}
	return nil
}

// CanAdministerBot gates role management and the pause toggle.
func (p *Policy) CanAdministerBot(actor string) error {
	if !p.Roles.IsAdmin(actor) {
		return deny("only admins can do that")
	}
	return nil
}

func (p *Policy) CanGrantRole(actor, target, role string) error {
	if err := p.CanAdministerBot(actor); err != nil {
		return err
	}
	switch role {
	case db.RoleAdmin:
		if p.Roles.IsAdmin(target) {
			return deny("this user is already an admin")
		}
	case db.RoleManager:
		if p.Roles.IsManager(target) {
			return deny("this user is already a manager")
		}
	default:
		return deny("unknown role %q", role)
	}
	return nil
}

// CanRevokeRole enforces the last-admin invariant: the admin set can never
// be emptied, and an admin cannot demote themselves.
func (p *Policy) CanRevokeRole(actor, target, role string) error {
	if err := p.CanAdministerBot(actor); err != nil {
		return err
	}
	switch role {
	case db.RoleAdmin:
		if target == actor {
			return deny("you cannot remove yourself as admin")
		}
		if !p.Roles.IsAdmin(target) {
			return deny("this user is not an admin")
		}
		if p.Roles.AdminCount() <= 1 {
			return deny("cannot remove the last admin")
		}
	case db.RoleManager:
		if !p.Roles.IsManager(target) {
			return deny("this user is not a manager")
		}
	default:
		return deny("unknown role %q", role)
	}
	return nil
}

// CanSetAbsence allows self-service for anyone, admins for everyone, and
// managers for their direct reports.
func (p *Policy) CanSetAbsence(actor, target string, cfg *db.AppConfig) error {
	if actor == target {
		return nil
	}
	if p.Roles.IsAdmin(actor) {
		return nil
	}
	member := cfg.MemberByID(target)
	if member == nil {
		return deny("that user is not on the team")
	}
	if p.Roles.IsManager(actor) && member.ManagerSlackID == actor {
		return nil
	}
	return deny("you can only set out-of-office for yourself or your direct reports")
}
