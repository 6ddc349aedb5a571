package model

import (
	"fmt"
	"time"
)

// EventID uniquely identifies an event
type EventID string

// EventType identifies the type of event
type EventType string

const (
	EventRolesAssigned EventType = "roles_assigned"
	EventPartyViewed   EventType = "party_viewed"
)

// Event is an entry in a session's public log
type Event struct {
	ID        EventID
	SessionID SessionID
	Type      EventType
	Message   string
	CreatedAt time.Time
}

// RolesAssignedMessage is the log line written after a round is dealt
func RolesAssignedMessage(round int) string {
	return fmt.Sprintf("Round %d: roles assigned.", round)
}

// PartyViewedMessage is the log line written when a player is investigated
func PartyViewedMessage(targetName string) string {
	return fmt.Sprintf("%s's party membership was viewed.", targetName)
}
