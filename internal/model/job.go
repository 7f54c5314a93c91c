package model

import (
	"time"
)

// JobState 任务生命周期状态
type JobState string

const (
	StateIdle      JobState = "idle"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateError     JobState = "error"
	StateCancelled JobState = "cancelled"
)

// IsTerminal 终态不允许再转移
func (s JobState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateError, StateCancelled:
		return true
	}
	return false
}

// 分析模式
const (
	ModeQuick = "quick"
	ModeDeep  = "deep"
)

// JobConfig 任务运行参数，创建时冻结，之后只读
type JobConfig struct {
	RepoInput    string `json:"repo_input"`
	Mode         string `json:"mode"`
	Model        string `json:"model,omitempty"`
	MaxFiles     int    `json:"max_files,omitempty"`
	TimeoutMs    int    `json:"timeout_ms,omitempty"`
	OutputFormat string `json:"output_format,omitempty"` // md, json
}

// AnalysisJob 一次仓库健康度分析任务
type AnalysisJob struct {
	ID                string     `json:"job_id"`
	Config            JobConfig  `json:"config"`
	State             JobState   `json:"state"`
	ErrorCode         string     `json:"error_code,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	ReportRef         string     `json:"report_ref,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	CancelRequestedAt *time.Time `json:"cancel_requested_at,omitempty"`
}
