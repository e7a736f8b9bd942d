package app

// Stats counts what the driver has done so far.
type Stats struct {
	Mode              string  `json:"mode"`
	MappingDir        string  `json:"mapping_dir"`
	Processed         int     `json:"frames_processed"`
	Skipped           int     `json:"frames_skipped"`
	DeformationErrors int     `json:"deformation_errors"`
	DetectErrors      int     `json:"detect_errors"`
	LastSeq           int     `json:"last_seq"`
	YawDeg            float64 `json:"yaw_deg"`
	PitchDeg          float64 `json:"pitch_deg"`
	Paused            bool    `json:"paused"`
}
