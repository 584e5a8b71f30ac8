package types

// Cursor is an advisory caret position, zero-based.
type Cursor struct {
	Line   int `json:"line" mapstructure:"line"`
	Column int `json:"column" mapstructure:"column"`
}

// Member is one connection present in a room. Usernames are self-declared and may repeat,
// the ConnectionId assigned by the relay is unique.
type Member struct {
	ConnectionId string `json:"connection_id"`
	Username     string `json:"username"`
	Color        string `json:"color"`
	Cursor       Cursor `json:"cursor"`
}

// Usernames returns the display names of members, in order.
func Usernames(members []Member) []string {
	res := make([]string, 0, len(members))
	for _, m := range members {
		res = append(res, m.Username)
	}
	return res
}
