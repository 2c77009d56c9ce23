package v1

// CompareSnapshotsArgs is the body of the compareSnapshotsPlugin task
type CompareSnapshotsArgs struct {
	// FileName is the screenshot name without extension; it is sanitized before use
	FileName string `json:"fileName"`
	// SpecDirectory is the spec-relative folder shared by actual, base and diff roots
	SpecDirectory string `json:"specDirectory"`
	// BaseDir overrides the baseline root for this call only
	BaseDir string `json:"baseDir,omitempty"`
	// DiffDir overrides the diff root for this call only
	DiffDir string `json:"diffDir,omitempty"`
	// ErrorThreshold is the percentage above which the diff image is written
	ErrorThreshold float64 `json:"errorThreshold"`
	// FailSilently ignores directory creation failures
	FailSilently bool `json:"failSilently"`
}

// CompareSnapshotsResult is the successful outcome of a comparison
type CompareSnapshotsResult struct {
	MismatchedPixels int     `json:"mismatchedPixels"`
	Percentage       float64 `json:"percentage"`
	// Regions are the bounding boxes of mismatched areas, omitted when none
	Regions []Region `json:"regions,omitempty"`
}

type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VisualRegressionCopyArgs is the body of the visualRegressionCopy task
type VisualRegressionCopyArgs struct {
	SpecName string `json:"specName"`
	From     string `json:"from"`
	To       string `json:"to"`
	BaseDir  string `json:"baseDir,omitempty"`
}

// TaskError is returned in place of a result when a task fails
type TaskError struct {
	Error string `json:"error"`
}
