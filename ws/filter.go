package ws

import (
	"strings"
	"time"

	"github.com/tcriess/lightspeed-code/filter"
	"github.com/tcriess/lightspeed-code/types"
)

// chat stamps, records and fans out a chat message. The sender always receives its own message, everybody else
// only if the target filter matches.
func (h *Hub) chat(c *Client, msg types.ChatMessage) {
	if strings.TrimSpace(msg.Message) == "" {
		return
	}
	prog, err := filter.Compile(msg.Filter)
	if err != nil {
		h.reject(c, types.WireMessageTypeChat, "", types.ErrorCodeBadRequest, "invalid filter: "+err.Error())
		return
	}
	source, _ := h.roster.Get(c.id)
	msg.Room = h.roomId
	msg.Username = source.Username
	msg.Timestamp = time.Now().UTC()
	if err := msg.CreateId(); err != nil {
		h.logger.Error("could not hash chat message", "error", err)
		return
	}
	h.appendHistory(msg)
	if h.Persister != nil {
		if err := h.Persister.StoreChatMessage(msg); err != nil {
			h.logger.Error("could not persist chat message", "error", err)
		}
	}
	data, err := types.EncodeMessage(types.WireMessageTypeChat, msg)
	if err != nil {
		h.logger.Error("could not marshal chat message", "error", err)
		return
	}
	r := h.filterRoom()
	for id, target := range h.clients {
		if id != c.id && prog != nil {
			m, _ := h.roster.Get(id)
			if !filter.Match(prog, filter.NewEnv(r, msg, source, m)) {
				continue
			}
		}
		target.Queue(data)
	}
}

// history returns the chat history as visible to c.
func (h *Hub) history(c *Client) []types.ChatMessage {
	target, _ := h.roster.Get(c.id)
	r := h.filterRoom()
	res := make([]types.ChatMessage, 0)
	for current := h.chatHistoryStart; current != h.chatHistoryEnd; current = current.Next() {
		msg := current.Value.(types.ChatMessage)
		if msg.Filter != "" && msg.Username != target.Username {
			prog, err := filter.Compile(msg.Filter)
			if err != nil {
				continue
			}
			if !filter.Match(prog, filter.NewEnv(r, msg, types.Member{Username: msg.Username}, target)) {
				continue
			}
		}
		res = append(res, msg)
	}
	return res
}
