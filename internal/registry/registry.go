package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/z4qs/repohealth_go_server/internal/model"
)

// Subscriber 注册表订阅者。
// 状态转移时 event 为 nil，job 携带新状态；追加事件时两者都非 nil。
// 回调在注册表锁内同步执行，不得再调用注册表的任何方法。
type Subscriber func(event *model.ProgressEvent, job *model.AnalysisJob)

// Registry 任务注册表，进程内任务状态的唯一权威。
// 纯内存存储，不跨进程、不跨重启；每个服务进程持有一个实例，
// 其余组件只通过公开方法读写，不直接触碰内部状态。
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*model.AnalysisJob
	reports map[string]*model.AnalysisReport
	events  map[string][]model.ProgressEvent
	subs    map[int64]Subscriber
	nextSub int64
}

func New() *Registry {
	return &Registry{
		jobs:    make(map[string]*model.AnalysisJob),
		reports: make(map[string]*model.AnalysisReport),
		events:  make(map[string][]model.ProgressEvent),
		subs:    make(map[int64]Subscriber),
	}
}

// CreateJob 创建 idle 状态的新任务，配置随任务冻结。不会失败。
func (r *Registry) CreateJob(cfg model.JobConfig) *model.AnalysisJob {
	job := &model.AnalysisJob{
		ID:        uuid.NewString(),
		Config:    cfg,
		State:     model.StateIdle,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = job
	return cloneJob(job)
}

// StartJob 仅允许 idle → running
func (r *Registry) StartJob(id string) (*model.AnalysisJob, error) {
	return r.transition(id, "start", func(job *model.AnalysisJob) *TransitionError {
		if job.State != model.StateIdle {
			return errInvalidTransition(id, "start", string(job.State))
		}
		now := time.Now()
		job.State = model.StateRunning
		job.StartedAt = &now
		return nil
	})
}

// CompleteJob 仅允许 running → completed，同时写入报告（之后只读）
func (r *Registry) CompleteJob(id string, report *model.AnalysisReport) (*model.AnalysisJob, error) {
	return r.transition(id, "complete", func(job *model.AnalysisJob) *TransitionError {
		if job.State != model.StateRunning {
			return errInvalidTransition(id, "complete", string(job.State))
		}
		now := time.Now()
		job.State = model.StateCompleted
		job.FinishedAt = &now
		job.ReportRef = "report:" + id

		stored := *report
		stored.JobID = id
		if stored.GeneratedAt.IsZero() {
			stored.GeneratedAt = now
		}
		r.reports[id] = &stored
		return nil
	})
}

// FailJob 允许 running 或 idle（早期失败）→ error，记录错误码和消息
func (r *Registry) FailJob(id, errorCode, errorMessage string) (*model.AnalysisJob, error) {
	return r.transition(id, "fail", func(job *model.AnalysisJob) *TransitionError {
		if job.State != model.StateRunning && job.State != model.StateIdle {
			return errInvalidTransition(id, "fail", string(job.State))
		}
		now := time.Now()
		job.State = model.StateError
		job.FinishedAt = &now
		job.ErrorCode = errorCode
		job.ErrorMessage = errorMessage
		return nil
	})
}

// CancelJob 允许 idle 或 running → cancelled。
// 取消是协作式的：只记录状态，不强行中断进行中的分析调用，
// 由编排器在分析返回后复查状态并丢弃结果。
func (r *Registry) CancelJob(id string) (*model.AnalysisJob, error) {
	return r.transition(id, "cancel", func(job *model.AnalysisJob) *TransitionError {
		now := time.Now()
		job.State = model.StateCancelled
		job.CancelRequestedAt = &now
		job.FinishedAt = &now
		return nil
	})
}

// transition 检查并应用状态转移，对单个任务是不可分割的一步。
// 终态检查统一在此处完成；成功后在返回前同步通知订阅者。
func (r *Registry) transition(id, op string, apply func(*model.AnalysisJob) *TransitionError) (*model.AnalysisJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, errJobNotFound(id)
	}
	if job.State.IsTerminal() {
		return nil, errJobTerminal(id, string(job.State))
	}
	if terr := apply(job); terr != nil {
		return nil, terr
	}

	r.notifyLocked(nil, job)
	return cloneJob(job), nil
}

// AppendEvent 追加进度事件：分配 ID、时间戳和同任务内无空洞的递增序号。
// percent/message 为空时按 step 自动补齐。
func (r *Registry) AppendEvent(id string, event model.ProgressEvent) (*model.ProgressEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, errJobNotFound(id)
	}

	event.ID = uuid.NewString()
	event.JobID = id
	event.Sequence = int64(len(r.events[id])) + 1
	event.Timestamp = time.Now()

	if event.Percent == 0 && event.Step != "" {
		if percent, ok := model.StepProgress[event.Step]; ok {
			event.Percent = percent
		}
	}
	if event.Message == "" && event.Step != "" {
		if message, ok := model.StepMessages[event.Step]; ok {
			event.Message = message
		}
	}

	r.events[id] = append(r.events[id], event)
	r.notifyLocked(&event, job)

	stored := event
	return &stored, nil
}

// Job 查询任务快照
func (r *Registry) Job(id string) (*model.AnalysisJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	return cloneJob(job), true
}

// Report 查询已完成任务的报告
func (r *Registry) Report(id string) (*model.AnalysisReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report, ok := r.reports[id]
	if !ok {
		return nil, false
	}
	stored := *report
	return &stored, true
}

// Events 返回任务全部历史事件，按 sequence 升序
func (r *Registry) Events(id string) []model.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]model.ProgressEvent, len(r.events[id]))
	copy(events, r.events[id])
	return events
}

// Subscribe 注册进程级订阅者，返回注销函数
func (r *Registry) Subscribe(fn Subscriber) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSub++
	subID := r.nextSub
	r.subs[subID] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, subID)
	}
}

// notifyLocked 调用方必须持有 r.mu。
// 在锁内同步通知保证订阅者观察到的事件顺序与写入顺序一致。
func (r *Registry) notifyLocked(event *model.ProgressEvent, job *model.AnalysisJob) {
	if len(r.subs) == 0 {
		return
	}
	snapshot := cloneJob(job)
	for _, fn := range r.subs {
		var eventCopy *model.ProgressEvent
		if event != nil {
			e := *event
			eventCopy = &e
		}
		fn(eventCopy, snapshot)
	}
}

func cloneJob(job *model.AnalysisJob) *model.AnalysisJob {
	clone := *job
	return &clone
}
