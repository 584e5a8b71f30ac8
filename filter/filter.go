package filter

import (
	"strconv"
	"strings"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/types"
)

// AsInt parses v as an int, 0 on error
func AsInt(v string) int64 {
	val, _ := strconv.ParseInt(v, 0, 64)
	return val
}

// AsStringSlice parses v as a comma-separated slice of strings
func AsStringSlice(v string) []string {
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Compile checks a target filter expression, f.e. `Target.Username in ["alice", "bob"]`. An empty filter
// compiles to nil, which matches every recipient.
func Compile(filter string) (*vm.Program, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}
	return expr.Compile(filter, expr.Env(Env{}), expr.AsBool())
}

// NewEnv builds the environment for one recipient of a chat message.
func NewEnv(room Room, msg types.ChatMessage, source, target types.Member) Env {
	return Env{
		Room:          room,
		Source:        fromMember(source),
		Target:        fromMember(target),
		Created:       msg.Timestamp.Unix(),
		Message:       msg.Message,
		AsInt:         AsInt,
		AsStringSlice: AsStringSlice,
	}
}

func fromMember(m types.Member) Member {
	return Member{
		ConnectionId: m.ConnectionId,
		Username:     m.Username,
		Color:        m.Color,
		Line:         m.Cursor.Line,
		Column:       m.Cursor.Column,
	}
}

// Match runs prog against env. A nil program matches, a failing one does not.
func Match(prog *vm.Program, env Env) bool {
	if prog == nil {
		return true
	}
	res, err := expr.Run(prog, env)
	if err != nil {
		globals.AppLogger.Error("could not run filter", "error", err)
		return false
	}
	if bRes, ok := res.(bool); ok && bRes {
		return true
	}
	return false
}
