package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case CreatedSession:
		fmt.Fprintf(o.w, "Session: %s\n", v.ID)
	case Session:
		o.printSession(v)
	case Joined:
		fmt.Fprintf(o.w, "Joined as %s\n", v.Name)
		fmt.Fprintf(o.w, "Token: %s\n", v.Token)
	case Started:
		fmt.Fprintf(o.w, "State: %s\n", v.State)
	case Assigned:
		fmt.Fprintf(o.w, "Round %d: roles assigned\n", v.Round)
	case Revealed:
		fmt.Fprintln(o.w, v.Message)
	case Party:
		fmt.Fprintf(o.w, "%s is %s\n", v.Name, v.Party)
	case Ended:
		fmt.Fprintln(o.w, "Session ended")
	case DevStatus:
		fmt.Fprintf(o.w, "Dev mode: %t\n", v.DevMode)
	case AddedPlayers:
		o.printAddedPlayers(v)
	case Roster:
		o.printRoster(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// CreatedSession response type
type CreatedSession struct {
	ID string `json:"id"`
}

// Event response type
type Event struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Session response type (matches API)
type Session struct {
	ID          string   `json:"id"`
	State       string   `json:"state"`
	Round       int      `json:"round"`
	Players     []string `json:"players"`
	PlayerCount int      `json:"player_count"`
	Events      []Event  `json:"events"`
}

// Joined response type
type Joined struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// Started response type
type Started struct {
	State string `json:"state"`
}

// Assigned response type
type Assigned struct {
	Round int `json:"round"`
}

// Revealed response type
type Revealed struct {
	Message string `json:"message"`
}

// Party response type
type Party struct {
	Name  string `json:"name"`
	Party string `json:"party"`
}

// Ended response type
type Ended struct {
	Deleted bool `json:"deleted"`
}

// DevStatus response type
type DevStatus struct {
	DevMode bool `json:"dev_mode"`
}

// AddedPlayers response type
type AddedPlayers struct {
	Added []Joined `json:"added"`
}

// PlayerRole response type
type PlayerRole struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Roster response type
type Roster struct {
	ID      string       `json:"id"`
	State   string       `json:"state"`
	Round   int          `json:"round"`
	Players []PlayerRole `json:"players"`
}

func (o *Output) printSession(s Session) {
	fmt.Fprintf(o.w, "Session: %s\n", s.ID)
	fmt.Fprintf(o.w, "State: %s\n", s.State)
	fmt.Fprintf(o.w, "Round: %d\n", s.Round)
	fmt.Fprintf(o.w, "Players (%d): %s\n", s.PlayerCount, strings.Join(s.Players, ", "))
	if len(s.Events) > 0 {
		fmt.Fprintln(o.w, "Recent events:")
		for _, e := range s.Events {
			fmt.Fprintf(o.w, "  - %s (%s)\n", e.Message, e.CreatedAt.Local().Format(time.Kitchen))
		}
	}
}

func (o *Output) printAddedPlayers(a AddedPlayers) {
	fmt.Fprintf(o.w, "Added %d players:\n", len(a.Added))
	for _, p := range a.Added {
		fmt.Fprintf(o.w, "  - %s (%s)\n", p.Name, p.Token)
	}
}

func (o *Output) printRoster(r Roster) {
	fmt.Fprintf(o.w, "Session: %s\n", r.ID)
	fmt.Fprintf(o.w, "State: %s\n", r.State)
	fmt.Fprintf(o.w, "Round: %d\n", r.Round)
	for _, p := range r.Players {
		fmt.Fprintf(o.w, "  - %s: %s\n", p.Name, p.Role)
	}
}
