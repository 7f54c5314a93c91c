package handler

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/z4qs/repohealth_go_server/internal/analyzer"
	"github.com/z4qs/repohealth_go_server/internal/export"
	"github.com/z4qs/repohealth_go_server/internal/model"
	"github.com/z4qs/repohealth_go_server/internal/model/dto"
	"github.com/z4qs/repohealth_go_server/internal/orchestrator"
	"github.com/z4qs/repohealth_go_server/internal/pkg/response"
	"github.com/z4qs/repohealth_go_server/internal/registry"
)

type JobHandler struct {
	reg    *registry.Registry
	orch   *orchestrator.Orchestrator
	export *export.Service
}

func NewJobHandler(reg *registry.Registry, orch *orchestrator.Orchestrator, exportSvc *export.Service) *JobHandler {
	return &JobHandler{
		reg:    reg,
		orch:   orch,
		export: exportSvc,
	}
}

// Create 创建并立即启动分析任务
// POST /api/v1/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if _, _, err := analyzer.ParseRepoInput(req.RepoInput); err != nil {
		response.Error(c, response.CodeInvalidRepoInput, err.Error())
		return
	}

	job := h.reg.CreateJob(model.JobConfig{
		RepoInput:    req.RepoInput,
		Mode:         req.Mode,
		Model:        req.Model,
		MaxFiles:     req.MaxFiles,
		TimeoutMs:    req.TimeoutMs,
		OutputFormat: req.OutputFormat,
	})

	// idle → running 的转移归编排器所有，在后台执行
	go h.orch.Run(context.Background(), job.ID)

	response.Success(c, dto.JobStateResponse{
		JobID: job.ID,
		State: string(job.State),
	})
}

// Get 获取任务详情
// GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	job, ok := h.reg.Job(c.Param("id"))
	if !ok {
		response.NotFoundError(c, "")
		return
	}
	response.Success(c, buildJobDetail(job))
}

// Cancel 取消任务。协作式：进行中的分析不被强行中断，
// 结果由编排器在返回后丢弃。
// POST /api/v1/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	job, err := h.reg.CancelJob(c.Param("id"))
	if err != nil {
		transitionError(c, err)
		return
	}
	response.Success(c, dto.JobStateResponse{
		JobID: job.ID,
		State: string(job.State),
	})
}

// GetReport 获取已完成任务的报告
// GET /api/v1/jobs/:id/report
func (h *JobHandler) GetReport(c *gin.Context) {
	id := c.Param("id")

	job, ok := h.reg.Job(id)
	if !ok {
		response.NotFoundError(c, "")
		return
	}
	if job.State != model.StateCompleted {
		response.Error(c, response.CodeJobNotCompleted, "")
		return
	}

	report, ok := h.reg.Report(id)
	if !ok {
		response.ServerError(c, "")
		return
	}
	response.Success(c, report)
}

// Export 导出报告为下载文件
// GET /api/v1/jobs/:id/export?format=md|json
func (h *JobHandler) Export(c *gin.Context) {
	id := c.Param("id")

	job, ok := h.reg.Job(id)
	if !ok {
		response.NotFoundError(c, "")
		return
	}
	if job.State != model.StateCompleted {
		response.Error(c, response.CodeJobNotCompleted, "")
		return
	}

	format := c.Query("format")
	if format == "" {
		format = job.Config.OutputFormat
	}
	if format == "" {
		format = "md"
	}
	if format != "md" && format != "json" {
		response.ParamError(c, "导出格式仅支持 md 或 json")
		return
	}

	report, ok := h.reg.Report(id)
	if !ok {
		response.ServerError(c, "")
		return
	}

	artifact, path, err := h.export.BuildArtifact(report, format)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	h.export.Register(artifact, filepath.Dir(path))

	c.FileAttachment(path, artifact.FileName)
}

func buildJobDetail(job *model.AnalysisJob) *dto.JobDetail {
	detail := &dto.JobDetail{
		JobID:        job.ID,
		RepoInput:    job.Config.RepoInput,
		Mode:         job.Config.Mode,
		State:        string(job.State),
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		ReportRef:    job.ReportRef,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
	}
	if job.StartedAt != nil {
		detail.StartedAt = job.StartedAt.Format(time.RFC3339)
		if job.FinishedAt != nil {
			detail.ElapsedSeconds = int(job.FinishedAt.Sub(*job.StartedAt).Seconds())
		} else {
			detail.ElapsedSeconds = int(time.Since(*job.StartedAt).Seconds())
		}
	}
	if job.FinishedAt != nil {
		detail.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	if job.CancelRequestedAt != nil {
		detail.CancelRequestedAt = job.CancelRequestedAt.Format(time.RFC3339)
	}
	return detail
}

// transitionError 把注册表的转移错误映射为 HTTP 响应
func transitionError(c *gin.Context, err error) {
	var terr *registry.TransitionError
	if errors.As(err, &terr) {
		response.Error(c, terr.Code, terr.Message)
		return
	}
	response.ServerError(c, "")
}
