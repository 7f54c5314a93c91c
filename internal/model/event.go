package model

import (
	"time"
)

// 事件类型
const (
	EventJobStarted = "job_started"
	EventProgress   = "progress"
	EventStepUpdate = "step_update"
	EventError      = "error"
	EventCompleted  = "completed"
)

// 进度阶段常量
const (
	StepFetching  = "fetching"
	StepAnalyzing = "analyzing"
	StepReporting = "reporting"
	StepDone      = "done"
)

// 阶段对应的进度百分比
var StepProgress = map[string]int{
	StepFetching:  25,
	StepAnalyzing: 60,
	StepReporting: 85,
	StepDone:      100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepFetching:  "正在收集仓库信息",
	StepAnalyzing: "正在进行 AI 分析",
	StepReporting: "正在生成报告",
	StepDone:      "分析完成",
}

// ProgressEvent 任务进度事件，追加后不可变。
// Sequence 同一任务内从 1 开始严格递增且无空洞。
type ProgressEvent struct {
	ID        string    `json:"event_id"`
	JobID     string    `json:"job_id"`
	Type      string    `json:"event_type"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Step      string    `json:"step,omitempty"`
	Percent   int       `json:"percent,omitempty"`
}
