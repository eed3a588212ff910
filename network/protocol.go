package network

// 消息ID，帧头的前两个字节
const (
	MsgTypeHeartbeat = 1
	MsgTypeAck       = 2

	// 客户端 -> 服务端
	MsgTypeJoinGame       = 101
	MsgTypeLeaveGame      = 102
	MsgTypeCreateGame     = 103
	MsgTypeSpectate       = 104
	MsgTypeStopSpectating = 105
	MsgTypeRollDice       = 201
	MsgTypeMoveToken      = 202
	MsgTypeSkipTurn       = 203

	// 服务端 -> 客户端
	MsgTypeGameUpdate   = 301
	MsgTypeGameStart    = 302
	MsgTypeGameEnd      = 303
	MsgTypePlayerJoined = 304
	MsgTypePlayerLeft   = 305
	MsgTypeDiceRolled   = 306
	MsgTypeTokenMoved   = 307
	MsgTypeTurnChanged  = 308
	MsgTypeGameError    = 309
)

// Event names exchanged with the authority.
const (
	EventJoin           = "game:join"
	EventCreate         = "game:create"
	EventLeave          = "game:leave"
	EventRollDice       = "game:rollDice"
	EventMoveToken      = "game:moveToken"
	EventSkipTurn       = "game:skipTurn"
	EventSpectate       = "game:spectate"
	EventStopSpectating = "game:stopSpectating"

	EventGameUpdate   = "game:update"
	EventGameStart    = "game:start"
	EventGameEnd      = "game:end"
	EventPlayerJoined = "player:joined"
	EventPlayerLeft   = "player:left"
	EventDiceRolled   = "dice:rolled"
	EventTokenMoved   = "token:moved"
	EventTurnChanged  = "turn:changed"
	EventGameError    = "game:error"

	// EventAck names inbound items that settle a request; it never goes on the wire.
	EventAck = "ack"
)

var eventToMsgID = map[string]uint16{
	EventJoin:           MsgTypeJoinGame,
	EventCreate:         MsgTypeCreateGame,
	EventLeave:          MsgTypeLeaveGame,
	EventRollDice:       MsgTypeRollDice,
	EventMoveToken:      MsgTypeMoveToken,
	EventSkipTurn:       MsgTypeSkipTurn,
	EventSpectate:       MsgTypeSpectate,
	EventStopSpectating: MsgTypeStopSpectating,

	EventGameUpdate:   MsgTypeGameUpdate,
	EventGameStart:    MsgTypeGameStart,
	EventGameEnd:      MsgTypeGameEnd,
	EventPlayerJoined: MsgTypePlayerJoined,
	EventPlayerLeft:   MsgTypePlayerLeft,
	EventDiceRolled:   MsgTypeDiceRolled,
	EventTokenMoved:   MsgTypeTokenMoved,
	EventTurnChanged:  MsgTypeTurnChanged,
	EventGameError:    MsgTypeGameError,
}

var msgIDToEvent = func() map[uint16]string {
	m := make(map[uint16]string, len(eventToMsgID))
	for name, id := range eventToMsgID {
		m[id] = name
	}
	return m
}()

// MsgIDForEvent returns the frame id of a named event.
func MsgIDForEvent(name string) (uint16, bool) {
	id, ok := eventToMsgID[name]
	return id, ok
}

// EventForMsgID returns the event name carried by a frame id.
func EventForMsgID(id uint16) (string, bool) {
	name, ok := msgIDToEvent[id]
	return name, ok
}
