package plan

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"imagededup/internal/cluster"
	"imagededup/internal/models"
)

func verdict(id int, keeper string, disposables ...string) *cluster.Verdict {
	members := []*models.ImageRecord{{Path: keeper, FileSize: 100}}
	for _, p := range disposables {
		members = append(members, &models.ImageRecord{Path: p, FileSize: 100})
	}
	c := &models.Cluster{ID: id, Members: members}
	return &cluster.Verdict{
		Cluster:     c,
		Keeper:      members[0],
		Disposables: members[1:],
	}
}

func TestBuild_DeletePlan(t *testing.T) {
	verdicts := []*cluster.Verdict{
		verdict(0, "/pics/keep.jpg", "/pics/dup1.jpg", "/pics/dup2.jpg"),
		verdict(1, "/pics/other.jpg", "/pics/dup3.jpg"),
	}

	p, err := NewPlanner(ModeDelete).Build(verdicts)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Actions) != 3 {
		t.Fatalf("expected 3 actions, got %d", len(p.Actions))
	}
	for _, act := range p.Actions {
		if act.Op != OpDelete {
			t.Errorf("%s: expected delete op", act.Source)
		}
		if strings.Contains(act.Source, "keep") || strings.Contains(act.Source, "other") {
			t.Errorf("keeper %s scheduled for deletion", act.Source)
		}
	}
	if p.ReclaimedBytes != 300 {
		t.Errorf("expected 300 reclaimed bytes, got %d", p.ReclaimedBytes)
	}
	if len(p.Clusters) != 2 || p.Clusters[0].ReclaimedBytes != 200 || p.Clusters[1].ReclaimedBytes != 100 {
		t.Errorf("per-cluster reclaim totals wrong: %+v", p.Clusters)
	}
}

func TestBuild_OrganizeRequiresDestination(t *testing.T) {
	if _, err := NewPlanner(ModeOrganize).Build(nil); err == nil {
		t.Error("organize mode without a destination should fail")
	}
}

func TestBuild_OrganizeTargets(t *testing.T) {
	verdicts := []*cluster.Verdict{
		verdict(0, "/pics/keep.jpg", "/a/photo.jpg", "/b/photo.jpg"),
	}

	p, err := NewPlanner(ModeOrganize, WithOrganizeDir("/dest")).Build(verdicts)
	if err != nil {
		t.Fatal(err)
	}

	if len(p.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(p.Actions))
	}
	groupDir := filepath.Join("/dest", "group_0000")
	want0 := filepath.Join(groupDir, "photo.jpg")
	want1 := filepath.Join(groupDir, "photo_1.jpg")

	if p.Actions[0].Op != OpMove || p.Actions[0].Target != want0 {
		t.Errorf("first move: expected target %s, got %s", want0, p.Actions[0].Target)
	}
	if p.Actions[1].Target != want1 {
		t.Errorf("colliding basename: expected suffixed target %s, got %s", want1, p.Actions[1].Target)
	}

	cp := p.Clusters[0]
	if cp.Targets["/a/photo.jpg"] != want0 || cp.Targets["/b/photo.jpg"] != want1 {
		t.Errorf("cluster target map wrong: %v", cp.Targets)
	}
}

func TestBuild_OrganizeSkipsNamesOnDisk(t *testing.T) {
	taken := filepath.Join("/dest", "group_0000", "photo.jpg")
	planner := NewPlanner(ModeOrganize,
		WithOrganizeDir("/dest"),
		WithExistsFunc(func(path string) bool { return path == taken }),
	)

	p, err := planner.Build([]*cluster.Verdict{verdict(0, "/pics/keep.jpg", "/a/photo.jpg")})
	if err != nil {
		t.Fatal(err)
	}

	want := filepath.Join("/dest", "group_0000", "photo_1.jpg")
	if p.Actions[0].Target != want {
		t.Errorf("expected existing name skipped, target %s, got %s", want, p.Actions[0].Target)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	verdicts := []*cluster.Verdict{
		verdict(0, "/pics/keep.jpg", "/a/photo.jpg", "/b/photo.jpg"),
		verdict(1, "/pics/keep2.jpg", "/c/photo.jpg"),
	}
	planner := NewPlanner(ModeOrganize, WithOrganizeDir("/dest"))

	first, err := planner.Build(verdicts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := planner.Build(verdicts)
	if err != nil {
		t.Fatal(err)
	}

	if len(first.Actions) != len(second.Actions) {
		t.Fatalf("action count differs: %d vs %d", len(first.Actions), len(second.Actions))
	}
	for i := range first.Actions {
		if first.Actions[i] != second.Actions[i] {
			t.Errorf("action %d differs: %+v vs %+v", i, first.Actions[i], second.Actions[i])
		}
	}
}

// failOn fails for one source path and counts every call.
type failOn struct {
	source string
	calls  *int
}

func (f failOn) Apply(act Action) error {
	*f.calls++
	if act.Source == f.source {
		return errors.New("permission denied")
	}
	return nil
}

func TestExecute_IsolatesFailures(t *testing.T) {
	verdicts := []*cluster.Verdict{
		verdict(0, "/pics/keep.jpg", "/pics/a.jpg", "/pics/b.jpg", "/pics/c.jpg"),
	}
	p, err := NewPlanner(ModeDelete).Build(verdicts)
	if err != nil {
		t.Fatal(err)
	}

	var calls int
	res := Execute(p, failOn{source: "/pics/b.jpg", calls: &calls})

	if calls != 3 {
		t.Errorf("a failure must not stop execution: expected 3 calls, got %d", calls)
	}
	if res.Applied != 2 {
		t.Errorf("expected 2 applied, got %d", res.Applied)
	}
	if len(res.Failures) != 1 || res.Failures[0].Action.Source != "/pics/b.jpg" {
		t.Errorf("expected one failure for b.jpg, got %+v", res.Failures)
	}
	if res.ReclaimedBytes != 200 {
		t.Errorf("failed action must not count as reclaimed: expected 200, got %d", res.ReclaimedBytes)
	}
}

func TestExecute_DryRun(t *testing.T) {
	verdicts := []*cluster.Verdict{
		verdict(0, "/pics/keep.jpg", "/a/photo.jpg"),
	}
	p, err := NewPlanner(ModeOrganize, WithOrganizeDir("/dest")).Build(verdicts)
	if err != nil {
		t.Fatal(err)
	}

	var buf strings.Builder
	res := Execute(p, DryRunApplier{W: &buf})

	if res.Applied != 1 || len(res.Failures) != 0 {
		t.Errorf("dry run should apply cleanly: %+v", res)
	}
	out := buf.String()
	if !strings.Contains(out, "would move /a/photo.jpg") {
		t.Errorf("dry run output missing move line: %q", out)
	}
}
