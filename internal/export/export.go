package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/z4qs/repohealth_go_server/internal/model"
	"github.com/z4qs/repohealth_go_server/internal/registry"
)

// Service 导出与清理服务：把完成任务的报告落成可下载的临时文件，
// 并保证文件不比拥有它的任务活得更久。
//
// 范围说明：单实例清理时不区分归属——任何被观察到的任务到达
// completed/cancelled 都会清掉该实例登记的全部目录（error 不触发，
// 与原始行为保持一致）。需要按任务隔离的调用方应各自持有实例。
type Service struct {
	mu      sync.Mutex
	dirs    map[string]time.Time // 登记目录 → 过期时间
	baseDir string
	expire  time.Duration
	cron    *cron.Cron
	log     zerolog.Logger
}

func NewService(baseDir string, expire time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		dirs:    make(map[string]time.Time),
		baseDir: baseDir,
		expire:  expire,
		log:     logger.With().Str("component", "export").Logger(),
	}
}

// BuildArtifact 把报告序列化到新建的唯一临时目录。
// md 为 UTF-8 Markdown 文本，json 为缩进格式化的结构化镜像。
// 返回产物描述和落盘路径；目录需另行 Register 才会被清理。
func (s *Service) BuildArtifact(report *model.AnalysisReport, format string) (*model.ExportArtifact, string, error) {
	var data []byte
	switch format {
	case "md":
		data = []byte(report.MarkdownContent)
	case "json":
		var err error
		data, err = json.MarshalIndent(report.JSONContent, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("序列化报告失败: %w", err)
		}
	default:
		return nil, "", fmt.Errorf("不支持的导出格式: %s", format)
	}

	if s.baseDir != "" {
		if err := os.MkdirAll(s.baseDir, 0755); err != nil {
			return nil, "", fmt.Errorf("创建导出目录失败: %w", err)
		}
	}
	dir, err := os.MkdirTemp(s.baseDir, "repohealth-export-*")
	if err != nil {
		return nil, "", fmt.Errorf("创建导出目录失败: %w", err)
	}

	fileName := fmt.Sprintf("report-%s.%s", report.JobID, format)
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		os.RemoveAll(dir)
		return nil, "", fmt.Errorf("写入导出文件失败: %w", err)
	}

	now := time.Now()
	artifact := &model.ExportArtifact{
		JobID:     report.JobID,
		Format:    format,
		FileName:  fileName,
		CreatedAt: now,
	}
	if s.expire > 0 {
		expiresAt := now.Add(s.expire)
		artifact.ExpiresAt = &expiresAt
	}

	return artifact, path, nil
}

// Register 登记产物所在目录，等待后续清理
func (s *Service) Register(artifact *model.ExportArtifact, dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := time.Time{}
	if artifact.ExpiresAt != nil {
		expiresAt = *artifact.ExpiresAt
	}
	s.dirs[dir] = expiresAt
}

// HookIntoRegistry 订阅注册表：观察到任意任务转移到 completed 或
// cancelled 时，递归删除所有登记目录。返回注销函数。
func (s *Service) HookIntoRegistry(reg *registry.Registry) func() {
	return reg.Subscribe(func(event *model.ProgressEvent, job *model.AnalysisJob) {
		// 只看状态转移通知，事件追加不触发清理
		if event != nil || job == nil {
			return
		}
		if job.State == model.StateCompleted || job.State == model.StateCancelled {
			s.CleanupAll()
		}
	})
}

// CleanupAll 删除全部登记目录并清空登记。幂等，容忍目录已不存在。
func (s *Service) CleanupAll() {
	s.mu.Lock()
	dirs := make([]string, 0, len(s.dirs))
	for dir := range s.dirs {
		dirs = append(dirs, dir)
	}
	s.dirs = make(map[string]time.Time)
	s.mu.Unlock()

	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn().Str("dir", dir).Err(err).Msg("failed to remove artifact dir")
		}
	}
	if len(dirs) > 0 {
		s.log.Info().Int("count", len(dirs)).Msg("export artifacts cleaned")
	}
}

// StartJanitor 启动定时清扫，删除已过期但任务尚未终结的产物
func (s *Service) StartJanitor(schedule string) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.sweepExpired); err != nil {
		return fmt.Errorf("无效的清扫计划 %q: %w", schedule, err)
	}
	s.cron.Start()
	s.log.Info().Str("schedule", schedule).Msg("export janitor started")
	return nil
}

// StopJanitor 停止定时清扫
func (s *Service) StopJanitor() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Service) sweepExpired() {
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for dir, expiresAt := range s.dirs {
		if !expiresAt.IsZero() && expiresAt.Before(now) {
			expired = append(expired, dir)
			delete(s.dirs, dir)
		}
	}
	s.mu.Unlock()

	for _, dir := range expired {
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn().Str("dir", dir).Err(err).Msg("failed to remove expired artifact dir")
		}
	}
	if len(expired) > 0 {
		s.log.Info().Int("count", len(expired)).Msg("expired export artifacts swept")
	}
}
