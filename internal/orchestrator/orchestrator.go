package orchestrator

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/z4qs/repohealth_go_server/internal/analyzer"
	"github.com/z4qs/repohealth_go_server/internal/model"
	"github.com/z4qs/repohealth_go_server/internal/pkg/redact"
	"github.com/z4qs/repohealth_go_server/internal/registry"
)

// 分析失败写入任务的错误码
const CodeAnalysisFailed = "ANALYSIS_FAILED"

// Orchestrator 驱动单个任务走完 running → completed/error。
// 不设独立超时：超时约定由分析器按运行参数自行执行，
// 分析器永不返回时任务停留在 running（已知限制，不掩盖）。
type Orchestrator struct {
	reg      *registry.Registry
	analyzer analyzer.Client
	log      zerolog.Logger
}

func New(reg *registry.Registry, client analyzer.Client, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		reg:      reg,
		analyzer: client,
		log:      logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run 执行一个已创建的任务。
// 先行动后验证：提交结果前复查当前状态，取消请求可能在分析
// 进行期间胜出，此时丢弃成功结果——已取消的任务绝不能翻回 completed。
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	job, err := o.reg.StartJob(jobID)
	if err != nil {
		// 任务已启动或已终结，原样返回，不做任何补救
		return err
	}

	o.appendEvent(jobID, model.ProgressEvent{
		Type:    model.EventJobStarted,
		Message: "分析开始",
		Percent: 1,
	})
	o.appendEvent(jobID, model.ProgressEvent{
		Type: model.EventStepUpdate,
		Step: model.StepFetching,
	})

	result, analyzeErr := o.analyzer.Analyze(ctx, analyzer.Request{
		RepoURL:   job.Config.RepoInput,
		Mode:      job.Config.Mode,
		Model:     job.Config.Model,
		MaxFiles:  job.Config.MaxFiles,
		TimeoutMs: job.Config.TimeoutMs,
	})
	if analyzeErr != nil {
		return o.fail(jobID, analyzeErr)
	}

	// 复查当前状态；CompleteJob 内部还会原子校验一次
	current, ok := o.reg.Job(jobID)
	if ok && current.State == model.StateCancelled {
		o.log.Warn().Str("job_id", jobID).Msg("job cancelled mid-flight, discarding result")
		return &registry.TransitionError{
			Code:    registry.CodeJobTerminal,
			Message: "任务已取消，分析结果被丢弃",
		}
	}

	report := &model.AnalysisReport{
		JobID:           jobID,
		MarkdownContent: result.Content,
		JSONContent: model.ReportJSON{
			RepoURL:       result.RepoURL,
			Model:         result.Model,
			Mode:          job.Config.Mode,
			Content:       result.Content,
			ToolCallCount: result.ToolCallCount,
			DurationMs:    result.DurationMs,
		},
		SourceMode: job.Config.Mode,
	}

	if _, err := o.reg.CompleteJob(jobID, report); err != nil {
		return err
	}

	o.appendEvent(jobID, model.ProgressEvent{
		Type:    model.EventCompleted,
		Step:    model.StepDone,
		Percent: 100,
	})

	o.log.Info().Str("job_id", jobID).Int("tool_calls", result.ToolCallCount).
		Int64("duration_ms", result.DurationMs).Msg("job completed")
	return nil
}

// fail 把上游失败写入任务。若注册表拒绝转移（任务已被并发终结），
// 以注册表的错误码和消息为准，不另造新错误。
func (o *Orchestrator) fail(jobID string, analyzeErr error) error {
	message := redact.String(analyzeErr.Error())

	if _, err := o.reg.FailJob(jobID, CodeAnalysisFailed, message); err != nil {
		var terr *registry.TransitionError
		if errors.As(err, &terr) {
			message = terr.Message
		}
		o.appendEvent(jobID, model.ProgressEvent{
			Type:    model.EventError,
			Message: message,
		})
		return err
	}

	o.appendEvent(jobID, model.ProgressEvent{
		Type:    model.EventError,
		Message: message,
	})

	o.log.Error().Str("job_id", jobID).Str("error", message).Msg("job failed")
	return analyzeErr
}

func (o *Orchestrator) appendEvent(jobID string, event model.ProgressEvent) {
	if _, err := o.reg.AppendEvent(jobID, event); err != nil {
		o.log.Warn().Str("job_id", jobID).Err(err).Msg("append event failed")
	}
}
