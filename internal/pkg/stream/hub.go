package stream

import (
	"sync"

	"github.com/z4qs/repohealth_go_server/internal/model"
	"github.com/z4qs/repohealth_go_server/internal/pkg/redact"
	"github.com/z4qs/repohealth_go_server/internal/registry"
)

// Listener 单个任务的事件监听者
type Listener func(event *model.ProgressEvent)

// Hub 事件分发中枢：订阅注册表，把每个任务的事件转发给该任务的
// 在线监听者。消息内的凭证形态子串在投递前被替换为固定标记，
// 注册表自身保存的事件不受影响（只改广播副本）。
//
// 每个任务可以有多个监听者（多标签页、重连等场景）。
type Hub struct {
	// 每个任务一组监听者，最后一个注销时整组删除
	listeners map[string]map[int64]Listener
	nextID    int64
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		listeners: make(map[string]map[int64]Listener),
	}
}

// Start 把 Hub 挂到注册表上，返回注销函数。
// 只转发追加的事件；纯状态转移通知（event 为 nil）不产生广播。
func (h *Hub) Start(reg *registry.Registry) func() {
	return reg.Subscribe(func(event *model.ProgressEvent, job *model.AnalysisJob) {
		if event == nil {
			return
		}
		h.broadcast(event)
	})
}

// Subscribe 注册某个任务的监听者，返回注销函数。
// 只收到订阅之后的事件；历史事件由调用方通过注册表 Events 播种。
func (h *Hub) Subscribe(jobID string, fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listeners[jobID] == nil {
		h.listeners[jobID] = make(map[int64]Listener)
	}
	h.nextID++
	id := h.nextID
	h.listeners[jobID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if set, ok := h.listeners[jobID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(h.listeners, jobID)
			}
		}
	}
}

// ListenerCount 某任务当前在线监听者数量
func (h *Hub) ListenerCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[jobID])
}

// broadcast 同步投递，监听者观察到的顺序与注册表追加顺序一致
func (h *Hub) broadcast(event *model.ProgressEvent) {
	h.mu.RLock()
	set, ok := h.listeners[event.JobID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	// 复制一份引用，投递期间不持锁
	fns := make([]Listener, 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	sanitized := *event
	sanitized.Message = redact.String(sanitized.Message)

	for _, fn := range fns {
		delivered := sanitized
		fn(&delivered)
	}
}
