package model

// Role is the hidden affiliation dealt to a player each round
type Role string

const (
	RoleUnassigned Role = ""
	RoleLiberal    Role = "liberal"
	RoleFascist    Role = "fascist"
	RoleHitler     Role = "hitler"
)

// Party is the coarse two-way grouping derived from a role
type Party string

const (
	PartyLiberal Party = "liberal"
	PartyFascist Party = "fascist"
)

// Party returns the party a role belongs to. Hitler is a fascist.
func (r Role) Party() Party {
	if r == RoleLiberal {
		return PartyLiberal
	}
	return PartyFascist
}

// IsFascistTeam returns true for assigned roles on the fascist side
func (r Role) IsFascistTeam() bool {
	return r != RoleUnassigned && r != RoleLiberal
}
