package plan

import (
	"fmt"
	"io"
	"os"

	"imagededup/internal/fileutil"
)

// Applier is the capability through which planned actions reach the
// filesystem. Substituting a logging-only implementation turns any
// execution into a dry run.
type Applier interface {
	Apply(Action) error
}

// FSApplier performs real deletes and moves. Deletes go to the system
// trash unless Permanent is set.
type FSApplier struct {
	Permanent bool
}

func (a FSApplier) Apply(act Action) error {
	switch act.Op {
	case OpDelete:
		if a.Permanent {
			return os.Remove(act.Source)
		}
		return fileutil.MoveToTrash(act.Source)
	case OpMove:
		return fileutil.MoveTo(act.Source, act.Target)
	default:
		return fmt.Errorf("unknown action op %d", act.Op)
	}
}

// MoveToApplier redirects every action into a single directory,
// choosing a unique name per file (clean --move-to).
type MoveToApplier struct {
	Dir string
}

func (a MoveToApplier) Apply(act Action) error {
	return fileutil.MoveFile(act.Source, a.Dir)
}

// DryRunApplier logs what would happen and touches nothing.
type DryRunApplier struct {
	W io.Writer
}

func (a DryRunApplier) Apply(act Action) error {
	if a.W == nil {
		return nil
	}
	switch act.Op {
	case OpMove:
		fmt.Fprintf(a.W, "would move %s -> %s\n", act.Source, act.Target)
	default:
		fmt.Fprintf(a.W, "would delete %s\n", act.Source)
	}
	return nil
}

// ActionFailure records one failed action. Execution continues past it.
type ActionFailure struct {
	Action Action
	Err    error
}

// ExecResult summarizes an execution pass.
type ExecResult struct {
	Applied        int
	Failures       []ActionFailure
	ReclaimedBytes int64
}

// Execute applies the plan's actions sequentially through the given
// capability. One failure (permission denied, file vanished) is
// recorded and skipped; it never aborts the remaining plan.
func Execute(p *Plan, applier Applier) *ExecResult {
	res := &ExecResult{}
	for _, act := range p.Actions {
		if err := applier.Apply(act); err != nil {
			res.Failures = append(res.Failures, ActionFailure{Action: act, Err: err})
			continue
		}
		res.Applied++
		res.ReclaimedBytes += act.Size
	}
	return res
}
