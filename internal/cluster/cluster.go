// Package cluster partitions fingerprinted images into similarity
// clusters and arbitrates which member of each cluster survives.
package cluster

import (
	"fmt"

	"imagededup/internal/fingerprint"
	"imagededup/internal/models"
)

// Clusterer groups records whose best-of-kind similarity to a cluster
// seed meets the threshold.
type Clusterer struct {
	threshold float64
}

// NewClusterer creates a Clusterer. The threshold must lie in [0,1];
// anything else is a caller misconfiguration reported before any work.
func NewClusterer(threshold float64) (*Clusterer, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v out of range [0,1]", threshold)
	}
	return &Clusterer{threshold: threshold}, nil
}

// Threshold returns the configured similarity threshold.
func (c *Clusterer) Threshold() float64 {
	return c.threshold
}

// Cluster partitions records using greedy single-seed link formation.
//
// Records are processed in scan order. Each unclaimed record opens a new
// cluster and claims every later unclaimed record whose best similarity
// TO THE SEED meets the threshold. Members are therefore linked to the
// seed, not verified pairwise against each other, and a record claimed
// by an earlier seed never opens a sub-cluster of its own. Reordering
// the input changes the result; callers must pass records in scan order.
//
// Clusters materialize only with two or more members; true singletons
// are left out of the result.
func (c *Clusterer) Cluster(records []*models.ImageRecord) []*models.Cluster {
	claimed := make([]bool, len(records))
	var clusters []*models.Cluster
	nextID := 0

	for i, seed := range records {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		members := []*models.ImageRecord{seed}

		for j := i + 1; j < len(records); j++ {
			if claimed[j] {
				continue
			}
			// No shared fingerprint kind means no comparison, not an error.
			sim, ok := fingerprint.BestSimilarity(seed, records[j])
			if !ok {
				continue
			}
			if sim >= c.threshold {
				members = append(members, records[j])
				claimed[j] = true
			}
		}

		if len(members) < 2 {
			continue
		}

		cl := &models.Cluster{ID: nextID, Members: members}
		nextID++
		for _, m := range members {
			m.GroupID = cl.ID + 1 // 1-based; 0 means unclustered
		}
		clusters = append(clusters, cl)
	}

	return clusters
}
