package engine

import "github.com/tbxark/healthagent/types"

type Trimmer interface {
	Trim(log []types.Turn) []types.Turn
}

// KeepLastN keeps the last N turns. When N <= 0 the log is left untouched.
type KeepLastN struct {
	N int
}

func (t KeepLastN) Trim(log []types.Turn) []types.Turn {
	if t.N <= 0 || len(log) <= t.N {
		return log
	}
	out := make([]types.Turn, t.N)
	copy(out, log[len(log)-t.N:])
	return out
}

func appendTurns(log []types.Turn, turns ...types.Turn) []types.Turn {
	out := log
	for _, turn := range turns {
		if turn.Text == "" {
			continue
		}
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.Speaker == turn.Speaker && last.Text == turn.Text {
				continue
			}
		}
		out = append(out, turn)
	}
	return out
}
