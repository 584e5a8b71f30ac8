package filter

/*
Here the Env used in the chat target filters is defined.
Once this struct is fixed, it should not be changed, otherwise filters in history messages may not compile any more
(f.e. if properties are renamed etc.)
*/

type Member struct {
	ConnectionId string
	Username     string
	Color        string
	Line         int
	Column       int
}

type Room struct {
	Id         string
	ActiveFile string
	Members    int
}

type Env struct {
	Room    Room
	Source  Member
	Target  Member
	Created int64
	Message string

	AsInt         func(string) int64
	AsStringSlice func(string) []string
}
