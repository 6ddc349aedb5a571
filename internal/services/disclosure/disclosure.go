// Package disclosure decides what each player is allowed to learn about
// the hidden roles at the table.
package disclosure

import (
	"fmt"
	"strings"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

// hitlerKnowsTeamMax is the largest table at which hitler sees the fascists
const hitlerKnowsTeamMax = 6

// NotAssignedMessage is shown to a player without a role
const NotAssignedMessage = "Roles are not assigned yet."

// RosterEntry is one seat at the table
type RosterEntry struct {
	Name string
	Role model.Role
}

// PartyView is the result of an investigation. It never carries the role.
type PartyView struct {
	Name  string
	Party model.Party
}

// RevealRole returns the private message shown to viewerName
func RevealRole(viewerName string, roster []RosterEntry) string {
	viewer, ok := find(viewerName, roster)
	if !ok || viewer.Role == model.RoleUnassigned {
		return NotAssignedMessage
	}

	base := fmt.Sprintf("Your role is %s.", viewer.Role)
	hitlerKnowsTeam := len(roster) <= hitlerKnowsTeamMax
	if viewer.Role == model.RoleLiberal || (viewer.Role == model.RoleHitler && !hitlerKnowsTeam) {
		return base
	}

	var teammates []string
	for _, entry := range roster {
		if entry.Name == viewer.Name || !entry.Role.IsFascistTeam() {
			continue
		}
		teammates = append(teammates, fmt.Sprintf("(%s is %s)", entry.Name, entry.Role))
	}
	if len(teammates) == 0 {
		return base + " Fascists are: (none)"
	}
	return base + " Fascists are: " + strings.Join(teammates, " ")
}

// Investigate returns the party of target
func Investigate(target RosterEntry) (*PartyView, error) {
	if target.Role == model.RoleUnassigned {
		return nil, model.ErrRolesNotAssigned
	}
	return &PartyView{Name: target.Name, Party: target.Role.Party()}, nil
}

func find(name string, roster []RosterEntry) (RosterEntry, bool) {
	for _, entry := range roster {
		if entry.Name == name {
			return entry, true
		}
	}
	return RosterEntry{}, false
}
