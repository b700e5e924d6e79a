package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxSessionNameLen = 32
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	viewerID   string
	sessionID  string
	remoteAddr string
	canControl bool
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		viewerID:   GenerateID(4),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgLeave:
		c.handleLeave()
	case MsgControl:
		c.handleControl(env.D)
	case MsgCmd:
		c.handleCmd(env.D)
	case MsgRate:
		c.handleRate(env.D)
	case MsgSmooth:
		c.handleSmooth(env.D)
	default:
		c.sendError("unknown message type")
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
}

// handleCreate starts a new session. The creator is attached as a viewer
// and granted control; the returned token lets another device (the QR
// flow) attach as controller too.
func (c *Client) handleCreate(raw json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad create message")
		return
	}
	name := msg.Name
	if name == "" {
		name = "bench-" + GenerateID(2)
	}
	if len(name) > maxSessionNameLen {
		name = name[:maxSessionNameLen]
	}

	sess := c.hub.sessions.CreateSession(name, SimConfig{}, c.hub.rec, false)
	if sess == nil {
		c.sendError("session limit reached")
		return
	}

	token, err := c.hub.auth.ControlToken(sess.ID)
	if err != nil {
		c.sendError("internal error")
		return
	}

	c.attach(sess)
	c.canControl = true
	c.SendJSON(Envelope{T: MsgCreated, Data: CreatedMsg{SessionID: sess.ID, Token: token}})
}

func (c *Client) handleJoin(raw json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad join message")
		return
	}

	var sess *Session
	if msg.SessionID == "" {
		sess = c.hub.sessions.DefaultSession()
	} else {
		sess = c.hub.sessions.GetSession(msg.SessionID)
	}
	if sess == nil {
		c.sendError("no such session")
		return
	}

	if !c.attach(sess) {
		c.sendError("session full")
		return
	}
	c.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{SessionID: sess.ID, Name: sess.Name}})
}

// attach moves the client onto a session's broadcast list, detaching it
// from any previous session first.
func (c *Client) attach(sess *Session) bool {
	if c.sessionID != "" {
		c.hub.sessions.RemoveViewer(c.sessionID, c.viewerID)
		c.canControl = false
	}
	if !sess.Bench.AddViewer(c.viewerID, c) {
		c.sessionID = ""
		return false
	}
	c.sessionID = sess.ID
	c.hub.sessions.MarkActive(sess.ID)
	return true
}

func (c *Client) handleLeave() {
	if c.sessionID == "" {
		return
	}
	c.hub.sessions.RemoveViewer(c.sessionID, c.viewerID)
	c.sessionID = ""
	c.canControl = false
}

// handleControl grants command rights when the presented token matches
// the session.
func (c *Client) handleControl(raw json.RawMessage) {
	var msg ControlMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad control message")
		return
	}
	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError("no such session")
		return
	}
	if err := c.hub.auth.ValidateControlToken(msg.Token, sess.ID); err != nil {
		c.sendError("invalid control token")
		return
	}
	if c.sessionID != sess.ID {
		if !c.attach(sess) {
			c.sendError("session full")
			return
		}
	}
	c.canControl = true
	c.SendJSON(Envelope{T: MsgControlOK})
}

func (c *Client) controlledSession() *Session {
	if c.sessionID == "" || !c.canControl {
		return nil
	}
	return c.hub.sessions.GetSession(c.sessionID)
}

func (c *Client) handleCmd(raw json.RawMessage) {
	sess := c.controlledSession()
	if sess == nil {
		c.sendError("not a controller")
		return
	}
	var msg CmdMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad command message")
		return
	}
	cmd, err := msg.ToCommand()
	if err != nil {
		c.sendError(err.Error())
		return
	}
	sess.Bench.Enqueue(cmd)
}

func (c *Client) handleRate(raw json.RawMessage) {
	sess := c.controlledSession()
	if sess == nil {
		c.sendError("not a controller")
		return
	}
	var msg RateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad rate message")
		return
	}
	if msg.Tick != DefaultTickRate && msg.Tick != FastTickRate {
		c.sendError("unsupported tick rate")
		return
	}
	sess.Bench.SetTickRate(msg.Tick)
}

func (c *Client) handleSmooth(raw json.RawMessage) {
	sess := c.controlledSession()
	if sess == nil {
		c.sendError("not a controller")
		return
	}
	var msg SmoothMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("bad smooth message")
		return
	}
	sess.Bench.SetSmoothing(msg.On)
}
