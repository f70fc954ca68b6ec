package dto

type SubmitResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	ImagesCount int    `json:"images_count"`
	Mode        string `json:"mode"`
}

type StatusResponse struct {
	JobID          string   `json:"job_id"`
	Status         string   `json:"status"`
	Progress       int      `json:"progress"`
	CreatedAt      string   `json:"created_at"`
	Mode           string   `json:"mode"`
	ImagesCount    int      `json:"images_count"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`
	Error          string   `json:"error,omitempty"`
	DownloadURL    string   `json:"download_url,omitempty"`
	FileSize       *int64   `json:"file_size,omitempty"`
}

type HealthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	EngineVersion     string `json:"opencv_version,omitempty"`
	StitcherAvailable bool   `json:"stitcher_available"`
}
