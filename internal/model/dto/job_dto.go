package dto

// CreateJobRequest 创建分析任务请求
type CreateJobRequest struct {
	RepoInput    string `json:"repo_input" binding:"required,max=500"`
	Mode         string `json:"mode" binding:"required,oneof=quick deep"`
	Model        string `json:"model,omitempty" binding:"omitempty,max=100"`
	MaxFiles     int    `json:"max_files,omitempty" binding:"omitempty,min=1,max=5000"`
	TimeoutMs    int    `json:"timeout_ms,omitempty" binding:"omitempty,min=1000"`
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=md json"`
}

// JobStateResponse 创建/取消任务响应
type JobStateResponse struct {
	JobID string `json:"job_id"`
	State string `json:"state"`
}

// JobDetail 任务详情
type JobDetail struct {
	JobID             string `json:"job_id"`
	RepoInput         string `json:"repo_input"`
	Mode              string `json:"mode"`
	State             string `json:"state"`
	ErrorCode         string `json:"error_code,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	ReportRef         string `json:"report_ref,omitempty"`
	CreatedAt         string `json:"created_at"`
	StartedAt         string `json:"started_at,omitempty"`
	FinishedAt        string `json:"finished_at,omitempty"`
	CancelRequestedAt string `json:"cancel_requested_at,omitempty"`
	ElapsedSeconds    int    `json:"elapsed_seconds,omitempty"`
}
