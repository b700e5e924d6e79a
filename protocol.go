package main

import (
	"encoding/json"
	"fmt"
)

// Client -> Server message types
const (
	MsgJoin    = "join"
	MsgLeave   = "leave"
	MsgCreate  = "create"  // create benchmark session
	MsgList    = "list"    // list sessions
	MsgControl = "control" // attach as controller with a token
	MsgCmd     = "cmd"     // simulation command
	MsgRate    = "rate"    // set tick rate
	MsgSmooth  = "smooth"  // toggle render smoothing
)

// Server -> Client message types
const (
	MsgState     = "state"
	MsgWelcome   = "welcome"
	MsgSessions  = "sessions"
	MsgJoined    = "joined"
	MsgCreated   = "created"
	MsgControlOK = "control_ok"
	MsgError     = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMsg asks to watch a session's state stream
type JoinMsg struct {
	SessionID string `json:"sid"`
}

// CreateMsg asks for a new benchmark session
type CreateMsg struct {
	Name string `json:"name"`
}

// ControlMsg attaches a controller (e.g. a phone that scanned the QR)
type ControlMsg struct {
	SessionID string `json:"sid"`
	Token     string `json:"tok"`
}

// CmdMsg is one simulation command from a controller
type CmdMsg struct {
	Op     string  `json:"op"`
	Count  int     `json:"count,omitempty"`
	Radius float64 `json:"radius,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Delta  float64 `json:"delta,omitempty"`
	Size   float64 `json:"size,omitempty"`
	Factor float64 `json:"factor,omitempty"`
}

// Command operation tags, the closed set the wire accepts
const (
	OpSpawn       = "spawn"
	OpRemoveHalf  = "removehalf"
	OpAdjustCell  = "adjustcell"
	OpSetCell     = "setcell"
	OpScaleRadius = "scaleradius"
)

// ToCommand maps a wire command onto a simulation command. Unknown ops
// are rejected here, before anything reaches the queue.
func (m CmdMsg) ToCommand() (Command, error) {
	switch m.Op {
	case OpSpawn:
		return Command{Kind: CmdSpawn, Count: m.Count, Radius: m.Radius, Speed: m.Speed}, nil
	case OpRemoveHalf:
		return Command{Kind: CmdRemoveHalf}, nil
	case OpAdjustCell:
		return Command{Kind: CmdAdjustCellSize, Delta: m.Delta}, nil
	case OpSetCell:
		return Command{Kind: CmdSetCellSize, Size: m.Size}, nil
	case OpScaleRadius:
		return Command{Kind: CmdScaleRadius, Factor: m.Factor}, nil
	default:
		return Command{}, fmt.Errorf("unknown command op %q", m.Op)
	}
}

// RateMsg sets the fixed tick rate (30 or 120)
type RateMsg struct {
	Tick int `json:"tick"`
}

// SmoothMsg toggles preview smoothing
type SmoothMsg struct {
	On bool `json:"on"`
}

// EntityState is one entity on the wire, msgpack-encoded inside
// BenchState. Field order mirrors the renderer's expectations.
type EntityState struct {
	ID      uint32  `msgpack:"id"`
	HasBody bool    `msgpack:"b"`
	X       float64 `msgpack:"x"`
	Y       float64 `msgpack:"y"`
	VX      float64 `msgpack:"vx"`
	VY      float64 `msgpack:"vy"`
	Radius  float64 `msgpack:"r"`
}

// BenchState is the full state broadcast, sent as a binary msgpack frame
type BenchState struct {
	Width    float64         `msgpack:"w"`
	Height   float64         `msgpack:"h"`
	CellSize float64         `msgpack:"cell"`
	Frame    uint64          `msgpack:"f"`
	Preview  bool            `msgpack:"pv"`
	Entities []EntityState   `msgpack:"e"`
	Metrics  MetricsSnapshot `msgpack:"m"`
}

// WelcomeMsg greets a new connection
type WelcomeMsg struct {
	ViewerID string `json:"id"`
}

// CreatedMsg confirms session creation; the token grants command rights
type CreatedMsg struct {
	SessionID string `json:"sid"`
	Token     string `json:"tok"`
}

// JoinedMsg confirms a join
type JoinedMsg struct {
	SessionID string `json:"sid"`
	Name      string `json:"name"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Viewers int    `json:"viewers"`
	Bodies  int    `json:"bodies"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
