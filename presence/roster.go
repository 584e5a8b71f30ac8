package presence

import (
	"fmt"

	"github.com/tcriess/lightspeed-code/types"
)

// Roster is the membership list of one room, keyed by connection id and kept in join order.
// On the relay it is mutated by Join/Leave, on a client it is only ever replaced wholesale.
//
// Roster is not safe for concurrent use.
type Roster struct {
	members map[string]types.Member
	order   []string
}

func NewRoster() *Roster {
	return &Roster{members: make(map[string]types.Member)}
}

// Join adds or replaces the member of a connection and returns the full roster.
func (r *Roster) Join(m types.Member) []types.Member {
	if m.Color == "" {
		m.Color = ColorFor(m.Username)
	}
	if _, ok := r.members[m.ConnectionId]; !ok {
		r.order = append(r.order, m.ConnectionId)
	}
	r.members[m.ConnectionId] = m
	return r.Members()
}

// Leave removes the member of a connection. ok is false if the connection was not present.
func (r *Roster) Leave(connectionId string) (types.Member, bool) {
	m, ok := r.members[connectionId]
	if !ok {
		return types.Member{}, false
	}
	delete(r.members, connectionId)
	for i, id := range r.order {
		if id == connectionId {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return m, true
}

// Replace discards the current list and takes over users, as received in a full roster broadcast.
func (r *Roster) Replace(users []types.Member) {
	r.members = make(map[string]types.Member, len(users))
	r.order = r.order[:0]
	for i, u := range users {
		if u.ConnectionId == "" {
			// older relays only send usernames, positions keep duplicates apart
			u.ConnectionId = fmt.Sprintf("#%d", i)
		}
		if _, ok := r.members[u.ConnectionId]; !ok {
			r.order = append(r.order, u.ConnectionId)
		}
		r.members[u.ConnectionId] = u
	}
}

// SetCursor records the cursor of a connection.
func (r *Roster) SetCursor(connectionId string, cursor types.Cursor) (types.Member, bool) {
	m, ok := r.members[connectionId]
	if !ok {
		return types.Member{}, false
	}
	m.Cursor = cursor
	r.members[connectionId] = m
	return m, true
}

func (r *Roster) Get(connectionId string) (types.Member, bool) {
	m, ok := r.members[connectionId]
	return m, ok
}

// Members returns a copy of the roster in join order.
func (r *Roster) Members() []types.Member {
	res := make([]types.Member, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.members[id])
	}
	return res
}

func (r *Roster) Usernames() []string {
	return types.Usernames(r.Members())
}

func (r *Roster) Len() int {
	return len(r.order)
}

// ColorFor derives a stable "#rrggbb" color from a username.
func ColorFor(username string) string {
	var hash int32
	for _, c := range username {
		hash = int32(c) + ((hash << 5) - hash)
	}
	color := "#"
	for i := uint(0); i < 3; i++ {
		color += fmt.Sprintf("%02x", (hash>>(i*8))&0xff)
	}
	return color
}
