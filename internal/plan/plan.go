// Package plan turns arbitration verdicts into a concrete, reviewable
// action plan and executes it through an injected apply capability.
// Planning itself never touches the filesystem.
package plan

import (
	"fmt"
	"path/filepath"
	"strings"

	"imagededup/internal/cluster"
	"imagededup/internal/models"
)

// Mode selects what happens to disposables.
type Mode int

const (
	// ModeDelete removes every non-keeper.
	ModeDelete Mode = iota
	// ModeOrganize relocates non-keepers into per-cluster directories.
	ModeOrganize
)

func (m Mode) String() string {
	if m == ModeOrganize {
		return "organize"
	}
	return "delete"
}

// Op is the kind of a single planned action.
type Op int

const (
	OpDelete Op = iota
	OpMove
)

// Action is one planned filesystem operation.
type Action struct {
	Op     Op
	Source string
	Target string // destination path, move only
	Size   int64  // bytes reclaimed if the action succeeds
}

// ClusterPlan is the plan for one cluster.
type ClusterPlan struct {
	Key            string
	Keeper         *models.ImageRecord
	Disposables    []*models.ImageRecord
	Targets        map[string]string // disposable path -> destination, organize only
	ReclaimedBytes int64
}

// Plan is the full reviewable outcome: per-cluster decisions plus the
// flattened action list in execution order.
type Plan struct {
	Mode           Mode
	Clusters       []*ClusterPlan
	Actions        []Action
	ReclaimedBytes int64
}

// Planner builds Plans. The exists hook lets the planner avoid names
// already taken on disk without performing I/O itself; the default
// assumes nothing exists, which keeps planning pure for dry runs.
type Planner struct {
	mode        Mode
	organizeDir string
	exists      func(path string) bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithOrganizeDir sets the destination root for organize mode. Each
// cluster gets a subdirectory named after its key.
func WithOrganizeDir(dir string) Option {
	return func(p *Planner) {
		p.organizeDir = dir
	}
}

// WithExistsFunc injects the check for names already present at the
// destination, so a dry run followed by a real run resolves the same
// deterministic names.
func WithExistsFunc(fn func(path string) bool) Option {
	return func(p *Planner) {
		if fn != nil {
			p.exists = fn
		}
	}
}

// NewPlanner creates a Planner for the given mode.
func NewPlanner(mode Mode, opts ...Option) *Planner {
	p := &Planner{
		mode:   mode,
		exists: func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Build turns verdicts into a Plan. Organize mode without a destination
// root is a misconfiguration reported before anything is planned.
func (p *Planner) Build(verdicts []*cluster.Verdict) (*Plan, error) {
	if p.mode == ModeOrganize && p.organizeDir == "" {
		return nil, fmt.Errorf("organize mode requires a destination root")
	}

	plan := &Plan{Mode: p.mode}
	// Names claimed by this run; guarantees no two disposables ever
	// resolve to the same target even across clusters.
	claimed := make(map[string]bool)

	for _, v := range verdicts {
		cp := &ClusterPlan{
			Key:         v.Cluster.Key(),
			Keeper:      v.Keeper,
			Disposables: v.Disposables,
		}
		if p.mode == ModeOrganize {
			cp.Targets = make(map[string]string, len(v.Disposables))
		}

		for _, d := range v.Disposables {
			cp.ReclaimedBytes += d.FileSize

			switch p.mode {
			case ModeDelete:
				plan.Actions = append(plan.Actions, Action{
					Op:     OpDelete,
					Source: d.Path,
					Size:   d.FileSize,
				})
			case ModeOrganize:
				groupDir := filepath.Join(p.organizeDir, cp.Key)
				target := p.uniqueTarget(groupDir, filepath.Base(d.Path), claimed)
				claimed[target] = true
				cp.Targets[d.Path] = target
				plan.Actions = append(plan.Actions, Action{
					Op:     OpMove,
					Source: d.Path,
					Target: target,
					Size:   d.FileSize,
				})
			}
		}

		plan.ReclaimedBytes += cp.ReclaimedBytes
		plan.Clusters = append(plan.Clusters, cp)
	}

	return plan, nil
}

// uniqueTarget resolves a collision-free destination by appending a
// numeric suffix to the stem until the name is free both on disk and
// within this run.
func (p *Planner) uniqueTarget(dir, filename string, claimed map[string]bool) string {
	candidate := filepath.Join(dir, filename)
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	for counter := 1; claimed[candidate] || p.exists(candidate); counter++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
	}
	return candidate
}
