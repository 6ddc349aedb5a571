package response

import (
	"time"

	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/devtools"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/disclosure"
	"github.com/leeschmalz/secret-hitler-role-assigner/internal/services/session"
)

// Status is the health check body
type Status struct {
	Status string `json:"status"`
}

// CreatedSession is the response for session creation
type CreatedSession struct {
	ID string `json:"id"`
}

// Event is one line of a session's public log
type Event struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the public view of a session
type Session struct {
	ID          string   `json:"id"`
	State       string   `json:"state"`
	Round       int      `json:"round"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count"`
	Events      []Event  `json:"events"`
}

// SessionFromView converts a session.SessionView
func SessionFromView(v *session.SessionView) Session {
	events := make([]Event, len(v.Events))
	for i, e := range v.Events {
		events[i] = Event{ID: string(e.ID), Message: e.Message, CreatedAt: e.CreatedAt}
	}
	return Session{
		ID:          string(v.ID),
		State:       string(v.State),
		Round:       v.Round,
		Players:     v.Players,
		PlayerCount: v.PlayerCount,
		Events:      events,
	}
}

// Joined carries a freshly issued player token
type Joined struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// JoinedFromResult converts a session.JoinResult
func JoinedFromResult(r *session.JoinResult) Joined {
	return Joined{Name: r.Name, Token: r.Token}
}

// Started is the response for starting a session
type Started struct {
	State string `json:"state"`
}

// Assigned is the response for a role assignment
type Assigned struct {
	Round int `json:"round"`
}

// Revealed carries a player's private role message
type Revealed struct {
	Message string `json:"message"`
}

// Party is the result of an investigation
type Party struct {
	Name  string `json:"name"`
	Party string `json:"party"`
}

// PartyFromView converts a disclosure.PartyView
func PartyFromView(v *disclosure.PartyView) Party {
	return Party{Name: v.Name, Party: string(v.Party)}
}

// Ended is the response for ending a session
type Ended struct {
	Deleted bool `json:"deleted"`
}

// DevStatus reports whether dev mode is on
type DevStatus struct {
	DevMode bool `json:"dev_mode"`
}

// AddedPlayers lists players created by the dev tools
type AddedPlayers struct {
	Added []Joined `json:"added"`
}

// PlayerRole is one row of the dev roster
type PlayerRole struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Roster is the unrestricted dev view of a session
type Roster struct {
	ID      string       `json:"id"`
	State   string       `json:"state"`
	Round   int          `json:"round"`
	Players []PlayerRole `json:"players"`
}

// RosterFromDevtools converts a devtools.Roster
func RosterFromDevtools(r *devtools.Roster) Roster {
	players := make([]PlayerRole, len(r.Players))
	for i, p := range r.Players {
		players[i] = PlayerRole{Name: p.Name, Role: p.Role}
	}
	return Roster{
		ID:      string(r.ID),
		State:   string(r.State),
		Round:   r.Round,
		Players: players,
	}
}
