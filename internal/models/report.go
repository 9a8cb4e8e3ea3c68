package models

// Report is the value handed to presentation layers (CLI rendering,
// JSON serialization). Field names and units (bytes, unit-interval
// scores) are an external contract and must stay stable.
type Report struct {
	Timestamp           string                  `json:"timestamp"`
	TargetDirectory     string                  `json:"target_directory"`
	SimilarityThreshold float64                 `json:"similarity_threshold"`
	HashSize            int                     `json:"hash_size"`
	Action              string                  `json:"action"`
	Summary             ReportSummary           `json:"summary"`
	Groups              map[string]*GroupReport `json:"groups"`
	FailedFiles         []string                `json:"failed_files,omitempty"`
}

// ReportSummary aggregates across all clusters.
type ReportSummary struct {
	TotalGroups         int     `json:"total_groups"`
	TotalImages         int     `json:"total_images"`
	UniqueImages        int     `json:"unique_images"`
	DuplicateImages     int     `json:"duplicate_images"`
	EstimatedSpaceSaved int64   `json:"estimated_space_saved"`
	AverageQualityScore float64 `json:"average_quality_score"`
}

// QualityRange spans the quality scores within one cluster.
type QualityRange struct {
	Max float64 `json:"max"`
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
}

// GroupReport describes one cluster. The representative is the member
// at index 0 after arbitration.
type GroupReport struct {
	Representative        string         `json:"representative"`
	RepresentativeQuality float64        `json:"representative_quality"`
	Images                []*ImageReport `json:"images"`
	GroupSize             int            `json:"group_size"`
	SpaceSavings          int64          `json:"space_savings"`
	QualityRange          QualityRange   `json:"quality_range"`
}

// ImageReport describes one cluster member.
type ImageReport struct {
	Path             string       `json:"path"`
	FileSize         int64        `json:"file_size"`
	CaptureTime      string       `json:"creation_time"`
	ModTime          string       `json:"mod_time"`
	IsRepresentative bool         `json:"is_representative"`
	QualityScore     float64      `json:"quality_score"`
	QualityDetails   QualityScore `json:"quality_details"`
}
