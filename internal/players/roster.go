package players

import "slices"

// Roster keeps the players of one room in join order. It is not safe for
// concurrent use; the owning room serializes access.
type Roster struct {
	order   []string
	players map[string]*Player
}

func NewRoster() *Roster {
	return &Roster{
		players: make(map[string]*Player),
	}
}

// Add registers a player. Re-adding an existing id returns the existing player
// and keeps its join position.
func (r *Roster) Add(id string, name string) *Player {
	if p, ok := r.players[id]; ok {
		return p
	}
	p := &Player{ID: id, Name: name}
	r.players[id] = p
	r.order = append(r.order, id)
	return p
}

func (r *Roster) Get(id string) *Player {
	return r.players[id]
}

func (r *Roster) Remove(id string) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return true
}

func (r *Roster) Len() int {
	return len(r.order)
}

// List returns players in join order.
func (r *Roster) List() []*Player {
	list := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.players[id])
	}
	return list
}

// First returns the earliest-joined player, or nil when empty.
func (r *Roster) First() *Player {
	if len(r.order) == 0 {
		return nil
	}
	return r.players[r.order[0]]
}

// Award adds points to a player's score. Negative awards are ignored so that
// scores never decrease.
func (r *Roster) Award(id string, points int) *Player {
	p, ok := r.players[id]
	if !ok {
		return nil
	}
	if points > 0 {
		p.Score += points
	}
	return p
}

func (r *Roster) ResetAnswered() {
	for _, p := range r.players {
		p.Answered = false
	}
}

// Views projects the roster in join order, flagging the host.
func (r *Roster) Views(hostID string) []View {
	list := r.List()
	views := make([]View, 0, len(list))
	for _, p := range list {
		views = append(views, View{ID: p.ID, Name: p.Name, Score: p.Score, IsHost: p.ID == hostID})
	}
	return views
}
