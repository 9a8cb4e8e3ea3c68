package cluster

import (
	"math"
	"testing"
	"time"

	"imagededup/internal/models"
)

func qrec(path string, quality float64, captured time.Time) *models.ImageRecord {
	return &models.ImageRecord{
		Path:        path,
		Quality:     models.QualityScore{Overall: quality},
		CaptureTime: captured,
	}
}

func TestArbitrate_QualityFirst(t *testing.T) {
	now := time.Now()
	c := &models.Cluster{ID: 0, Members: []*models.ImageRecord{
		qrec("low.jpg", 0.3, now),
		qrec("high.jpg", 0.9, now),
		qrec("mid.jpg", 0.6, now),
	}}

	v := Arbitrate(c, QualityFirst)

	if v.Keeper.Path != "high.jpg" {
		t.Errorf("expected keeper high.jpg, got %s", v.Keeper.Path)
	}
	if len(v.Disposables) != 2 {
		t.Fatalf("expected 2 disposables, got %d", len(v.Disposables))
	}
	// Members reordered in place, keeper first, descending quality.
	for i := 1; i < len(c.Members); i++ {
		if c.Members[i-1].Quality.Overall < c.Members[i].Quality.Overall {
			t.Errorf("members not in descending quality order at %d", i)
		}
	}

	if v.QualityRange.Max != 0.9 || v.QualityRange.Min != 0.3 {
		t.Errorf("expected range [0.3, 0.9], got [%v, %v]", v.QualityRange.Min, v.QualityRange.Max)
	}
	wantAvg := (0.3 + 0.9 + 0.6) / 3
	if math.Abs(v.QualityRange.Avg-wantAvg) > 1e-12 {
		t.Errorf("expected avg %v, got %v", wantAvg, v.QualityRange.Avg)
	}
	if math.Abs(v.QualityImprovement-(0.9-wantAvg)) > 1e-12 {
		t.Errorf("expected improvement %v, got %v", 0.9-wantAvg, v.QualityImprovement)
	}
}

func TestArbitrate_QualityTieKeepsScanOrder(t *testing.T) {
	now := time.Now()
	c := &models.Cluster{Members: []*models.ImageRecord{
		qrec("first.jpg", 0.5, now),
		qrec("second.jpg", 0.5, now),
		qrec("third.jpg", 0.5, now),
	}}

	v := Arbitrate(c, QualityFirst)

	if v.Keeper.Path != "first.jpg" {
		t.Errorf("tied quality should keep scan order, keeper is %s", v.Keeper.Path)
	}
	if c.Members[1].Path != "second.jpg" || c.Members[2].Path != "third.jpg" {
		t.Errorf("tied members reordered: %s, %s", c.Members[1].Path, c.Members[2].Path)
	}
}

func TestArbitrate_EarliestFirst(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &models.Cluster{Members: []*models.ImageRecord{
		qrec("later.jpg", 0.9, base.Add(time.Hour)),
		qrec("earliest.jpg", 0.1, base),
		qrec("unknown.jpg", 0.5, models.SentinelCaptureTime),
	}}

	v := Arbitrate(c, EarliestFirst)

	if v.Keeper.Path != "earliest.jpg" {
		t.Errorf("expected earliest.jpg kept, got %s", v.Keeper.Path)
	}
	if c.Members[len(c.Members)-1].Path != "unknown.jpg" {
		t.Errorf("record without capture time should sort last, got %s",
			c.Members[len(c.Members)-1].Path)
	}
}

func TestArbitrateAll_SumsImprovement(t *testing.T) {
	now := time.Now()
	clusters := []*models.Cluster{
		{ID: 0, Members: []*models.ImageRecord{qrec("a.jpg", 0.8, now), qrec("b.jpg", 0.4, now)}},
		{ID: 1, Members: []*models.ImageRecord{qrec("c.jpg", 1.0, now), qrec("d.jpg", 0.0, now)}},
	}

	verdicts, improvement := ArbitrateAll(clusters, QualityFirst)

	if len(verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(verdicts))
	}
	// (0.8 - 0.6) + (1.0 - 0.5)
	want := 0.2 + 0.5
	if math.Abs(improvement-want) > 1e-12 {
		t.Errorf("expected summed improvement %v, got %v", want, improvement)
	}
	if verdicts[0].Cluster.ID != 0 || verdicts[1].Cluster.ID != 1 {
		t.Error("verdicts not in cluster order")
	}
}
