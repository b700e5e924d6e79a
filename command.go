package main

import "sync"

// CommandKind tags a simulation command. The set is closed: the
// simulation rejects anything it does not recognize.
type CommandKind int

const (
	CmdSpawn CommandKind = iota
	CmdRemoveHalf
	CmdAdjustCellSize
	CmdSetCellSize
	CmdScaleRadius
)

// Command is one queued operation against the simulation. Only the
// fields relevant to its kind are read.
type Command struct {
	Kind   CommandKind
	Count  int     // CmdSpawn
	Radius float64 // CmdSpawn
	Speed  float64 // CmdSpawn
	Delta  float64 // CmdAdjustCellSize
	Size   float64 // CmdSetCellSize
	Factor float64 // CmdScaleRadius
}

// CommandQueue is a multi-writer FIFO drained entirely, once, per runner
// frame. Writers are websocket handlers; the single reader is the frame
// loop.
type CommandQueue struct {
	mu      sync.Mutex
	pending []Command
}

// Push appends a command in arrival order.
func (q *CommandQueue) Push(cmd Command) {
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()
}

// Drain removes and returns all pending commands in FIFO order.
func (q *CommandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	cmds := q.pending
	q.pending = nil
	return cmds
}

// Len returns the number of pending commands.
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
