package model

import (
	"time"
)

// ReportJSON 报告的结构化镜像，和 Markdown 内容描述同一份结论
type ReportJSON struct {
	RepoURL       string `json:"repo_url"`
	Model         string `json:"model"`
	Mode          string `json:"mode"`
	Content       string `json:"content"`
	ToolCallCount int    `json:"tool_call_count"`
	DurationMs    int64  `json:"duration_ms"`
}

// AnalysisReport 完成任务的最终产出。
// 仅在 running → completed 转移时写入一次，之后只读。
type AnalysisReport struct {
	JobID           string     `json:"job_id"`
	MarkdownContent string     `json:"markdown_content"`
	JSONContent     ReportJSON `json:"json_content"`
	GeneratedAt     time.Time  `json:"generated_at"`
	SourceMode      string     `json:"source_mode"`
}

// ExportArtifact 报告的磁盘导出，任务终结后由清理服务删除
type ExportArtifact struct {
	JobID     string     `json:"job_id"`
	Format    string     `json:"format"` // md, json
	FileName  string     `json:"file_name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
