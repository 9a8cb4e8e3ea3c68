package cluster

import (
	"testing"

	"imagededup/internal/models"
)

// rec builds a record with 8x8 (64-bit) fingerprints, one word per kind.
func rec(path string, kinds map[models.FingerprintKind]uint64) *models.ImageRecord {
	prints := make(map[models.FingerprintKind]*models.Fingerprint, len(kinds))
	for kind, word := range kinds {
		prints[kind] = &models.Fingerprint{Kind: kind, HashSize: 8, Bits: []uint64{word}}
	}
	return &models.ImageRecord{Path: path, Fingerprints: prints}
}

func paths(c *models.Cluster) []string {
	out := make([]string, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Path
	}
	return out
}

func TestNewClusterer_ThresholdRange(t *testing.T) {
	for _, th := range []float64{0, 0.5, 1} {
		if _, err := NewClusterer(th); err != nil {
			t.Errorf("threshold %v should be accepted: %v", th, err)
		}
	}
	for _, th := range []float64{-0.1, 1.1, 2} {
		if _, err := NewClusterer(th); err == nil {
			t.Errorf("threshold %v should be rejected", th)
		}
	}
}

func TestCluster_EmptyAndSingle(t *testing.T) {
	c, _ := NewClusterer(0.9)

	if got := c.Cluster(nil); len(got) != 0 {
		t.Errorf("empty input: expected no clusters, got %d", len(got))
	}

	single := []*models.ImageRecord{rec("a.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0})}
	if got := c.Cluster(single); len(got) != 0 {
		t.Errorf("single record: expected no clusters, got %d", len(got))
	}
}

func TestCluster_PairsSimilarRecords(t *testing.T) {
	c, _ := NewClusterer(0.9)

	// 5 differing bits out of 64: similarity 0.921875.
	records := []*models.ImageRecord{
		rec("a.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0}),
		rec("b.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0x1F}),
	}

	clusters := c.Cluster(records)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	got := paths(clusters[0])
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "b.jpg" {
		t.Errorf("expected members [a.jpg b.jpg] in scan order, got %v", got)
	}
	if clusters[0].ID != 0 {
		t.Errorf("expected first cluster ID 0, got %d", clusters[0].ID)
	}
	for _, m := range clusters[0].Members {
		if m.GroupID != 1 {
			t.Errorf("%s: expected group ID 1, got %d", m.Path, m.GroupID)
		}
	}
}

// A claimed record never opens its own cluster: with A~B on one kind and
// B~C on another, the seed pass over [A,B,C] claims B for A's cluster
// and leaves C unclaimed, even though B and C are near-identical.
func TestCluster_ClaimedRecordsDoNotReseed(t *testing.T) {
	c, _ := NewClusterer(0.9)

	const far = uint64(0xFFFFFFFFFF) // 40 bits set

	a := rec("a.jpg", map[models.FingerprintKind]uint64{
		models.KindFrequency: 0,
		models.KindGradient:  far,
	})
	b := rec("b.jpg", map[models.FingerprintKind]uint64{
		models.KindFrequency: 0x1F, // 5 bits from a: 0.921875
		models.KindGradient:  0,
	})
	cc := rec("c.jpg", map[models.FingerprintKind]uint64{
		models.KindFrequency: far,
		models.KindGradient:  0x1F, // 5 bits from b: 0.921875
	})

	clusters := c.Cluster([]*models.ImageRecord{a, b, cc})
	if len(clusters) != 1 {
		t.Fatalf("expected exactly 1 cluster, got %d", len(clusters))
	}
	got := paths(clusters[0])
	if len(got) != 2 || got[0] != "a.jpg" || got[1] != "b.jpg" {
		t.Fatalf("expected cluster [a.jpg b.jpg], got %v", got)
	}
	if cc.GroupID != 0 {
		t.Errorf("c.jpg should stay unclustered, got group ID %d", cc.GroupID)
	}

	// The same pair without the earlier seed does cluster.
	b2 := rec("b.jpg", map[models.FingerprintKind]uint64{models.KindGradient: 0})
	c2 := rec("c.jpg", map[models.FingerprintKind]uint64{models.KindGradient: 0x1F})
	pair := c.Cluster([]*models.ImageRecord{b2, c2})
	if len(pair) != 1 || len(pair[0].Members) != 2 {
		t.Errorf("b/c alone should form one pair cluster, got %v", pair)
	}
}

func TestCluster_ZeroThresholdClaimsEverythingComparable(t *testing.T) {
	c, _ := NewClusterer(0)

	records := []*models.ImageRecord{
		rec("a.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0}),
		rec("b.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: ^uint64(0)}),
		rec("c.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0xF0F0}),
	}

	clusters := c.Cluster(records)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster at threshold 0, got %d", len(clusters))
	}
	if len(clusters[0].Members) != 3 {
		t.Errorf("expected all 3 records claimed, got %v", paths(clusters[0]))
	}
}

func TestCluster_NoSharedKindNeverPairs(t *testing.T) {
	// Even at threshold 0, records sharing no fingerprint kind are
	// incomparable and stay apart.
	c, _ := NewClusterer(0)

	records := []*models.ImageRecord{
		rec("a.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0}),
		rec("b.jpg", map[models.FingerprintKind]uint64{models.KindWavelet: 0}),
	}

	if clusters := c.Cluster(records); len(clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(clusters))
	}
}

func TestCluster_DistantRecordsStaySingletons(t *testing.T) {
	c, _ := NewClusterer(0.9)

	records := []*models.ImageRecord{
		rec("a.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0}),
		rec("b.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: ^uint64(0)}),
	}

	if clusters := c.Cluster(records); len(clusters) != 0 {
		t.Errorf("expected no clusters for distant records, got %d", len(clusters))
	}
	for _, r := range records {
		if r.GroupID != 0 {
			t.Errorf("%s: singleton should keep group ID 0, got %d", r.Path, r.GroupID)
		}
	}
}

func TestCluster_Deterministic(t *testing.T) {
	c, _ := NewClusterer(0.9)

	build := func() []*models.ImageRecord {
		return []*models.ImageRecord{
			rec("a.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0}),
			rec("b.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: 0x3}),
			rec("c.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: ^uint64(0)}),
			rec("d.jpg", map[models.FingerprintKind]uint64{models.KindFrequency: ^uint64(0x7)}),
		}
	}

	first := c.Cluster(build())
	second := c.Cluster(build())

	if len(first) != len(second) {
		t.Fatalf("cluster count differs across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := paths(first[i]), paths(second[i])
		if len(a) != len(b) {
			t.Fatalf("cluster %d size differs: %v vs %v", i, a, b)
		}
		for j := range a {
			if a[j] != b[j] {
				t.Errorf("cluster %d member %d differs: %s vs %s", i, j, a[j], b[j])
			}
		}
	}
}
