// Package report assembles the typed Report value consumed by
// presentation layers.
package report

import (
	"time"

	"imagededup/internal/cluster"
	"imagededup/internal/models"
)

// Builder carries the scan parameters echoed into every report.
type Builder struct {
	TargetDir string
	Threshold float64
	HashSize  int
}

// Build produces a Report from arbitration verdicts. The action string
// names what the report documents (preview, delete, organize). Verdict
// order and member order are preserved; the member at index 0 is the
// representative.
func (b *Builder) Build(action string, verdicts []*cluster.Verdict, failed []string) *models.Report {
	rep := &models.Report{
		Timestamp:           time.Now().Format(time.RFC3339),
		TargetDirectory:     b.TargetDir,
		SimilarityThreshold: b.Threshold,
		HashSize:            b.HashSize,
		Action:              action,
		Groups:              make(map[string]*models.GroupReport, len(verdicts)),
		FailedFiles:         failed,
	}

	var totalQuality float64
	var totalImages int

	for _, v := range verdicts {
		members := v.Cluster.Members

		group := &models.GroupReport{
			Representative:        v.Keeper.Path,
			RepresentativeQuality: v.Keeper.Quality.Overall,
			GroupSize:             len(members),
			QualityRange:          v.QualityRange,
		}

		for i, m := range members {
			group.Images = append(group.Images, &models.ImageReport{
				Path:             m.Path,
				FileSize:         m.FileSize,
				CaptureTime:      m.CaptureTime.Format(time.RFC3339),
				ModTime:          m.ModTime.Format(time.RFC3339),
				IsRepresentative: i == 0,
				QualityScore:     m.Quality.Overall,
				QualityDetails:   m.Quality,
			})
			totalQuality += m.Quality.Overall
			totalImages++
		}
		for _, d := range v.Disposables {
			group.SpaceSavings += d.FileSize
		}

		rep.Groups[v.Cluster.Key()] = group
		rep.Summary.EstimatedSpaceSaved += group.SpaceSavings
	}

	rep.Summary.TotalGroups = len(verdicts)
	rep.Summary.TotalImages = totalImages
	rep.Summary.UniqueImages = len(verdicts)
	rep.Summary.DuplicateImages = totalImages - len(verdicts)
	if totalImages > 0 {
		rep.Summary.AverageQualityScore = totalQuality / float64(totalImages)
	}

	return rep
}
