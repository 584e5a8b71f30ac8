package ws

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-code/types"
)

// decodeIntent weakly decodes the data of a client intent into its message type.
func decodeIntent(event string, data map[string]interface{}) (interface{}, error) {
	switch event {
	case types.WireMessageTypeJoin:
		msg := types.JoinMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeLeave:
		msg := types.LeaveMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeContentUpdate:
		msg := types.ContentUpdateMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeSaveFile:
		msg := types.SaveFileMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeCreateFile:
		msg := types.CreateFileMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeRenameFile:
		msg := types.RenameFileMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeDeleteFile:
		msg := types.DeleteFileMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeSetActiveFile:
		msg := types.SetActiveFileMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeSetLanguage:
		msg := types.SetLanguageMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeUpdateSettings:
		msg := types.UpdateSettingsMessage{Settings: types.DefaultRoomSettings()}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeChat:
		msg := types.ChatMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeCursorMove:
		msg := types.CursorMoveMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeSelection:
		msg := types.SelectionMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeAnalyzeCode:
		msg := types.AnalyzeCodeMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeExecuteCode:
		msg := types.ExecuteCodeMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err

	case types.WireMessageTypeAISuggestion, types.WireMessageTypeAIReview, types.WireMessageTypeAIExplain:
		msg := types.AIRequestMessage{}
		err := mapstructure.WeakDecode(data, &msg)
		return msg, err
	}
	return nil, fmt.Errorf("unknown event %q", event)
}
