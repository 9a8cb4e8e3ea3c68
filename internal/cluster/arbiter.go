package cluster

import (
	"sort"

	"imagededup/internal/models"
)

// Policy selects the ordering rule used to pick a cluster's keeper.
type Policy int

const (
	// QualityFirst keeps the highest-quality member; used by delete flows.
	QualityFirst Policy = iota
	// EarliestFirst keeps the earliest-captured member; used by organize flows.
	EarliestFirst
)

func (p Policy) String() string {
	if p == EarliestFirst {
		return "earliest-first"
	}
	return "quality-first"
}

// Verdict is the arbitration outcome for one cluster.
type Verdict struct {
	Cluster     *models.Cluster
	Keeper      *models.ImageRecord
	Disposables []*models.ImageRecord

	QualityRange models.QualityRange
	// QualityImprovement is the keeper's quality minus the cluster
	// average, an estimate of how much the surviving image beats a
	// random pick.
	QualityImprovement float64
}

// Arbitrate orders the cluster's members in place under the policy and
// designates exactly one keeper (index 0). The sort must be stable:
// members tied on the sort key keep their scan order, and downstream
// reporting depends on a deterministic index 0.
func Arbitrate(c *models.Cluster, p Policy) *Verdict {
	switch p {
	case EarliestFirst:
		sort.SliceStable(c.Members, func(i, j int) bool {
			return c.Members[i].CaptureTime.Before(c.Members[j].CaptureTime)
		})
	default:
		sort.SliceStable(c.Members, func(i, j int) bool {
			return c.Members[i].Quality.Overall > c.Members[j].Quality.Overall
		})
	}

	keeper := c.Members[0]
	rng := models.QualityRange{
		Max: keeper.Quality.Overall,
		Min: keeper.Quality.Overall,
	}
	var sum float64
	for _, m := range c.Members {
		q := m.Quality.Overall
		sum += q
		if q > rng.Max {
			rng.Max = q
		}
		if q < rng.Min {
			rng.Min = q
		}
	}
	rng.Avg = sum / float64(len(c.Members))

	return &Verdict{
		Cluster:            c,
		Keeper:             keeper,
		Disposables:        c.Members[1:],
		QualityRange:       rng,
		QualityImprovement: keeper.Quality.Overall - rng.Avg,
	}
}

// ArbitrateAll arbitrates every cluster and returns the verdicts in
// cluster order plus the summed quality improvement for reporting.
func ArbitrateAll(clusters []*models.Cluster, p Policy) ([]*Verdict, float64) {
	verdicts := make([]*Verdict, 0, len(clusters))
	var improvement float64
	for _, c := range clusters {
		v := Arbitrate(c, p)
		improvement += v.QualityImprovement
		verdicts = append(verdicts, v)
	}
	return verdicts, improvement
}
