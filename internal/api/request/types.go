package request

// JoinRequest is the request body for joining a session
type JoinRequest struct {
	Name string `json:"name"`
}

// ViewPartyRequest is the request body for investigating another player.
// The viewer's token may also travel in the body as "token".
type ViewPartyRequest struct {
	TargetName string `json:"target_name"`
}

// AddPlayersRequest is the request body for the dev add-players endpoint
type AddPlayersRequest struct {
	Count int `json:"count"`
}
