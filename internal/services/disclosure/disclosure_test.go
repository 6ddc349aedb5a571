package disclosure

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/model"
)

type DisclosureSuite struct {
	suite.Suite
}

func TestDisclosureSuite(t *testing.T) {
	suite.Run(t, new(DisclosureSuite))
}

func fivePlayers() []RosterEntry {
	return []RosterEntry{
		{Name: "Alice", Role: model.RoleLiberal},
		{Name: "Bob", Role: model.RoleFascist},
		{Name: "Charlie", Role: model.RoleLiberal},
		{Name: "Diana", Role: model.RoleHitler},
		{Name: "Eve", Role: model.RoleLiberal},
	}
}

func sevenPlayers() []RosterEntry {
	return []RosterEntry{
		{Name: "Alice", Role: model.RoleLiberal},
		{Name: "Bob", Role: model.RoleFascist},
		{Name: "Charlie", Role: model.RoleLiberal},
		{Name: "Diana", Role: model.RoleHitler},
		{Name: "Eve", Role: model.RoleLiberal},
		{Name: "Frank", Role: model.RoleFascist},
		{Name: "Grace", Role: model.RoleLiberal},
	}
}

// RevealRole tests

func (s *DisclosureSuite) TestLiberalSeesOnlyOwnRole() {
	s.Equal("Your role is liberal.", RevealRole("Alice", fivePlayers()))
}

func (s *DisclosureSuite) TestFascistSeesTeamInRosterOrder() {
	s.Equal("Your role is fascist. Fascists are: (Diana is hitler) (Frank is fascist)",
		RevealRole("Bob", sevenPlayers()))
}

func (s *DisclosureSuite) TestSmallTableHitlerSeesFascist() {
	s.Equal("Your role is hitler. Fascists are: (Bob is fascist)", RevealRole("Diana", fivePlayers()))
}

func (s *DisclosureSuite) TestSixPlayerHitlerSeesFascist() {
	roster := append(fivePlayers(), RosterEntry{Name: "Frank", Role: model.RoleLiberal})
	s.Equal("Your role is hitler. Fascists are: (Bob is fascist)", RevealRole("Diana", roster))
}

func (s *DisclosureSuite) TestLargeTableHitlerSeesNothing() {
	s.Equal("Your role is hitler.", RevealRole("Diana", sevenPlayers()))
}

func (s *DisclosureSuite) TestFascistWithNoTeammates() {
	roster := []RosterEntry{
		{Name: "Bob", Role: model.RoleFascist},
		{Name: "Alice", Role: model.RoleLiberal},
	}
	s.Equal("Your role is fascist. Fascists are: (none)", RevealRole("Bob", roster))
}

func (s *DisclosureSuite) TestUnassignedTeammatesAreSkipped() {
	roster := fivePlayers()
	roster[3].Role = model.RoleUnassigned
	s.Equal("Your role is fascist. Fascists are: (none)", RevealRole("Bob", roster))
}

func (s *DisclosureSuite) TestViewerWithoutRole() {
	roster := fivePlayers()
	roster[0].Role = model.RoleUnassigned
	s.Equal(NotAssignedMessage, RevealRole("Alice", roster))
}

func (s *DisclosureSuite) TestViewerNotInRoster() {
	s.Equal(NotAssignedMessage, RevealRole("Zed", fivePlayers()))
}

func (s *DisclosureSuite) TestRevealIsDeterministic() {
	roster := sevenPlayers()
	s.Equal(RevealRole("Frank", roster), RevealRole("Frank", roster))
}

// Investigate tests

func (s *DisclosureSuite) TestInvestigateParties() {
	tests := []struct {
		role model.Role
		want model.Party
	}{
		{model.RoleLiberal, model.PartyLiberal},
		{model.RoleFascist, model.PartyFascist},
		{model.RoleHitler, model.PartyFascist},
	}
	for _, tt := range tests {
		view, err := Investigate(RosterEntry{Name: "Bob", Role: tt.role})
		s.Require().NoError(err)
		s.Equal("Bob", view.Name)
		s.Equal(tt.want, view.Party)
	}
}

func (s *DisclosureSuite) TestInvestigateUnassigned() {
	_, err := Investigate(RosterEntry{Name: "Bob"})
	s.ErrorIs(err, model.ErrRolesNotAssigned)
}
