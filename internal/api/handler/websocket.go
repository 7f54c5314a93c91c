package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/z4qs/repohealth_go_server/internal/model"
	"github.com/z4qs/repohealth_go_server/internal/pkg/redact"
	"github.com/z4qs/repohealth_go_server/internal/pkg/response"
	"github.com/z4qs/repohealth_go_server/internal/pkg/stream"
	"github.com/z4qs/repohealth_go_server/internal/registry"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境需要验证 Origin
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// 单连接未消费事件缓冲，写满视为慢消费者，直接断开
const eventBuffer = 256

type StreamHandler struct {
	reg *registry.Registry
	hub *stream.Hub
	log zerolog.Logger
}

func NewStreamHandler(reg *registry.Registry, hub *stream.Hub, logger zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		reg: reg,
		hub: hub,
		log: logger.With().Str("component", "stream_handler").Logger(),
	}
}

// Handle 任务事件流：先播种全部历史，再接实时事件。
// 晚订阅者通过播种补齐订阅前的事件；衔接处按 sequence 去重。
// GET /api/v1/jobs/:id/events
func (h *StreamHandler) Handle(c *gin.Context) {
	jobID := c.Param("id")
	if _, ok := h.reg.Job(jobID); !ok {
		response.NotFoundError(c, "")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// 先挂实时监听再读历史，避免两步之间漏事件
	events := make(chan *model.ProgressEvent, eventBuffer)
	unsubscribe := h.hub.Subscribe(jobID, func(event *model.ProgressEvent) {
		select {
		case events <- event:
		default:
			conn.Close()
		}
	})
	defer unsubscribe()

	// 播种历史。注册表存的是原文，出边界前脱敏。
	var lastSeq int64
	for _, event := range h.reg.Events(jobID) {
		event.Message = redact.String(event.Message)
		if err := conn.WriteJSON(event); err != nil {
			return
		}
		lastSeq = event.Sequence
	}

	// 读取循环只用于检测断开
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case event := <-events:
			if event.Sequence <= lastSeq {
				continue // 播种和订阅的重叠区
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
