/*
Define message structs for communication
- Capture page <-> Server
- Server <-> Viewers
*/
package message

import (
	"encoding/json"
	"time"
)

type Type string

const (
	TKeyDown Type = "KeyDown"
	TKeyUp        = "KeyUp"
	TClose        = "Close"
	TError        = "Error"

	// First message on any websocket connection
	TClientInfo = "ClientInfo"

	// Secret check result sent back to a source
	TAuthorized   = "Authorized"
	TUnauthorized = "Unauthorized"

	// Session summary pushed to a viewer right after it joins
	TSessionInfo = "SessionInfo"
)

type Wrapper struct {
	Type Type
	Data json.RawMessage
}

// KeyEvent is one physical key transition reported by the capture page.
// KeyID is the stable key identity (KeyboardEvent.code), Label the display
// name (KeyboardEvent.key). ClientTimeMs is the page's epoch timestamp and is
// carried for audit only; recording clocks are server side.
type KeyEvent struct {
	KeyID        string `json:"keyId"`
	Label        string `json:"label"`
	ClientTimeMs int64  `json:"clientTime"`
}

type CRole string

const (
	// The capture page producing key events
	RSource CRole = "Source"
	// A terminal client rendering the timeline
	RViewer CRole = "Viewer"
)

type ClientInfo struct {
	Name   string
	Role   CRole
	Secret string
}

type SessionStatus string

const (
	SCapturing SessionStatus = "Capturing"
	SStopped   SessionStatus = "Stopped"
)

type SessionInfo struct {
	Id             uint64
	Name           string
	Title          string
	Status         SessionStatus
	StartedTime    time.Time
	LastActiveTime time.Time
	NViewers       int
	AccNViewers    int
	NKeyEvents     int
}

func Unwrap(buff []byte) (Wrapper, error) {
	obj := Wrapper{}
	err := json.Unmarshal(buff, &obj)
	return obj, err
}

func Wrap(msgType Type, msgObject interface{}) (Wrapper, error) {
	data, err := json.Marshal(msgObject)
	if err != nil {
		return Wrapper{}, err
	}
	msg := Wrapper{
		Type: msgType,
		Data: data,
	}
	return msg, nil
}

// ToStruct decodes a wrapped payload into the given struct
func ToStruct(data []byte, obj interface{}) error {
	return json.Unmarshal(data, obj)
}
