package main

import (
	"sync"
	"testing"
)

func TestCommandQueueFIFO(t *testing.T) {
	q := &CommandQueue{}
	q.Push(Command{Kind: CmdSpawn, Count: 1})
	q.Push(Command{Kind: CmdRemoveHalf})
	q.Push(Command{Kind: CmdScaleRadius, Factor: 2})

	cmds := q.Drain()
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	if cmds[0].Kind != CmdSpawn || cmds[1].Kind != CmdRemoveHalf || cmds[2].Kind != CmdScaleRadius {
		t.Error("drain must preserve arrival order")
	}

	if q.Drain() != nil {
		t.Error("second drain must be empty")
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d", q.Len())
	}
}

func TestCommandQueueConcurrentWriters(t *testing.T) {
	q := &CommandQueue{}
	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				q.Push(Command{Kind: CmdSpawn, Count: 1})
			}
		}()
	}
	wg.Wait()

	if got := len(q.Drain()); got != writers*perWriter {
		t.Errorf("expected %d commands, got %d", writers*perWriter, got)
	}
}

func TestCmdMsgToCommand(t *testing.T) {
	cases := []struct {
		op   string
		kind CommandKind
	}{
		{OpSpawn, CmdSpawn},
		{OpRemoveHalf, CmdRemoveHalf},
		{OpAdjustCell, CmdAdjustCellSize},
		{OpSetCell, CmdSetCellSize},
		{OpScaleRadius, CmdScaleRadius},
	}
	for _, c := range cases {
		cmd, err := CmdMsg{Op: c.op}.ToCommand()
		if err != nil {
			t.Errorf("op %q: unexpected error %v", c.op, err)
		}
		if cmd.Kind != c.kind {
			t.Errorf("op %q: expected kind %d, got %d", c.op, c.kind, cmd.Kind)
		}
	}

	if _, err := (CmdMsg{Op: "explode"}).ToCommand(); err == nil {
		t.Error("expected error for unknown op")
	}
}
