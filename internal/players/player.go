package players

// Player is one live connection's participation in a room.
type Player struct {
	ID       string
	Name     string
	Score    int
	Answered bool
}

// View is the public projection of a player sent to clients.
type View struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	IsHost bool   `json:"isHost"`
}
