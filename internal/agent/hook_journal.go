package agent

import (
	"context"
	"time"

	"github.com/ChamsBouzaiene/nora/internal/action"
	"github.com/ChamsBouzaiene/nora/internal/journal"
	"github.com/ChamsBouzaiene/nora/internal/memory"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
)

// Recorder is the write side of the journal.
type Recorder interface {
	RecordDecision(d journal.Decision)
	RecordEvent(ev journal.Event)
}

// JournalHook mirrors decisions and memory events into a Recorder.
type JournalHook struct {
	NopHook
	R   Recorder
	Now func() time.Time
}

func (h JournalHook) OnDecision(_ context.Context, id string, d oracle.Decision, out action.Outcome) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	h.R.RecordDecision(journal.Decision{
		CycleID:     id,
		Time:        now(),
		Mode:        string(out.To),
		Action:      string(out.Action),
		Target:      d.Meta.Target,
		Cmd:         d.Meta.Cmd,
		Thought:     d.Thought,
		Note:        d.PluginDiscoveryNote,
		Chat:        d.Chat,
		ChatVerdict: string(out.Chat),
		Result:      string(out.Result),
		Detail:      out.Detail,
	})
}

func (h JournalHook) OnMemory(_ context.Context, ev memory.Event) {
	h.R.RecordEvent(journal.Event{Time: time.UnixMilli(ev.Time), Type: ev.Type, Content: ev.Content})
}
