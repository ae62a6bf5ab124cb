package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Wire message tags. Every frame is a text JSON object of the shape
// {"type": <tag>, "data": <payload>}, except Error which carries its
// message inline: {"type":"Error","message":"..."}.
const (
	// Client -> server
	TypeCreateMatching = "CreateMatching"
	TypeJoinMatch      = "JoinMatch"
	TypeReady          = "Ready"
	TypeInput          = "Input"
	TypeStateUpdate    = "StateUpdate"
	TypeApplyDamage    = "ApplyDamage"

	// Server -> client
	TypeMatchingCreated           = "MatchingCreated"
	TypeUpdateMatchings           = "UpdateMatchings"
	TypeMatchingEstablished       = "MatchingEstablished"
	TypeMatchingSuccess           = "MatchingSuccess"
	TypeOpponentCharacterSelected = "OpponentCharacterSelected"
	TypeGameStart                 = "GameStart"
	TypeOpponentStateUpdate       = "OpponentStateUpdate"
	TypeOpponentAttacked          = "OpponentAttacked"
	TypeGameEnd                   = "GameEnd"
	TypeError                     = "Error"

	// Retired client tag, rejected with migration guidance.
	TypeSelectCharacter = "SelectCharacter"
)

// Envelope is the outer frame shape shared by all messages.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AttackType distinguishes attack variants relayed to the opponent.
type AttackType string

const (
	AttackNormal  AttackType = "Normal"
	AttackSpecial AttackType = "Special"
)

// InputAction is the nested union inside an Input frame. Exactly one of
// the variants is set; the variant name is the JSON key, e.g.
// {"action":{"Move":{"direction":{...},"speed":60}}}.
type InputAction struct {
	Move   *MoveAction   `json:"Move,omitempty"`
	Rotate *RotateAction `json:"Rotate,omitempty"`
	Attack *AttackAction `json:"Attack,omitempty"`
}

// IsValid reports whether exactly one variant is present.
func (a InputAction) IsValid() bool {
	n := 0
	if a.Move != nil {
		n++
	}
	if a.Rotate != nil {
		n++
	}
	if a.Attack != nil {
		n++
	}
	return n == 1
}

type MoveAction struct {
	Direction Vector3 `json:"direction"`
	Speed     float32 `json:"speed"`
}

type RotateAction struct {
	Rotation Vector3 `json:"rotation"`
}

type AttackAction struct {
	AttackType AttackType `json:"attack_type"`
	Position   Vector3    `json:"position"`
	Direction  Vector3    `json:"direction"`
}

// Client -> server payloads.

type CreateMatchingData struct {
	Username *string `json:"username"`
}

type JoinMatchData struct {
	MatchingID uuid.UUID `json:"matching_id"`
}

type ReadyData struct {
	SelectedModelID string `json:"selected_model_id"`
}

type InputData struct {
	Action InputAction `json:"action"`
}

type StateUpdateData struct {
	Position Vector3 `json:"position"`
	Rotation Vector3 `json:"rotation"`
}

type ApplyDamageData struct {
	Damage int32 `json:"damage"`
}

// Server -> client payloads.

type MatchingCreatedData struct {
	MatchingID       uuid.UUID      `json:"matching_id"`
	CurrentMatchings []MatchingInfo `json:"current_matchings"`
	Timestamp        time.Time      `json:"timestamp"`
}

type UpdateMatchingsData struct {
	CurrentMatchings []MatchingInfo `json:"current_matchings"`
	Timestamp        time.Time      `json:"timestamp"`
}

type MatchingEstablishedData struct {
	MatchingID uuid.UUID `json:"matching_id"`
	OpponentID string    `json:"opponent_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type MatchingSuccessData struct {
	MatchingID uuid.UUID `json:"matching_id"`
	OpponentID string    `json:"opponent_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type OpponentCharacterSelectedData struct {
	Character Character `json:"character"`
	Timestamp time.Time `json:"timestamp"`
}

type GameStartData struct {
	OpponentCharacter Character `json:"opponent_character"`
	YourPlayerID      string    `json:"your_player_id"`
	Timestamp         time.Time `json:"timestamp"`
}

type OpponentStateUpdateData struct {
	Opponent  Character `json:"opponent"`
	Timestamp time.Time `json:"timestamp"`
}

type OpponentAttackedData struct {
	AttackerID string     `json:"attacker_id"`
	AttackType AttackType `json:"attack_type"`
	Position   Vector3    `json:"position"`
	Direction  Vector3    `json:"direction"`
	Timestamp  time.Time  `json:"timestamp"`
}

type GameEndData struct {
	Result    GameResult `json:"result"`
	Timestamp time.Time  `json:"timestamp"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Encode wraps a payload in the tagged envelope and marshals the frame.
func Encode(msgType string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Data: raw})
}

// EncodeError builds an Error frame. Unlike every other message the
// message field sits beside the type, with no data wrapper.
func EncodeError(message string) []byte {
	frame, _ := json.Marshal(errorFrame{Type: TypeError, Message: message})
	return frame
}

// DecodeEnvelope parses the outer frame of an inbound message.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
