package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/z4qs/repohealth_go_server/config"
)

const systemPrompt = `You are a repository health auditor. Given a fact sheet collected from a
source-code hosting platform, write a concise Markdown report assessing the repository's
health across four dimensions: documentation, CI, governance, and security hygiene.
Start with a one-line overall score out of 100, then one section per dimension with
concrete findings and recommendations. Base every claim strictly on the fact sheet.`

// Service 基于 Anthropic + GitHub API 的分析器实现
type Service struct {
	client          anthropic.Client
	gh              *github.Client
	log             zerolog.Logger
	defaultModel    string
	maxTokens       int
	defaultTimeout  time.Duration
	defaultMaxFiles int
}

// NewService 创建分析器。github token 可以为空（未认证请求，受速率限制）。
func NewService(cfg *config.Config, logger zerolog.Logger) (*Service, error) {
	if cfg.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key 未配置")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.Anthropic.APIKey),
	)

	var gh *github.Client
	if cfg.GitHub.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.GitHub.Token},
		)
		gh = github.NewClient(oauth2.NewClient(context.Background(), ts))
	} else {
		gh = github.NewClient(nil)
	}

	return &Service{
		client:          client,
		gh:              gh,
		log:             logger.With().Str("component", "analyzer").Logger(),
		defaultModel:    cfg.Anthropic.Model,
		maxTokens:       cfg.Anthropic.MaxTokens,
		defaultTimeout:  time.Duration(cfg.Anthropic.TimeoutSeconds) * time.Second,
		defaultMaxFiles: cfg.Analyzer.MaxFiles,
	}, nil
}

// Analyze 收集仓库信号并生成健康度报告。
// 超时按 req.TimeoutMs 施加在整个调用上（信号收集 + 模型生成）。
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	owner, repo, err := ParseRepoInput(req.RepoURL)
	if err != nil {
		return nil, err
	}
	repoURL := CanonicalURL(owner, repo)

	timeout := s.defaultTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	start := time.Now()
	s.log.Info().Str("repo", repoURL).Str("mode", req.Mode).Str("model", model).
		Msg("analysis started")

	sig, err := s.collectSignals(ctx, owner, repo, req)
	if err != nil {
		return nil, err
	}

	content, err := s.generateReport(ctx, model, sig.digest(repoURL))
	if err != nil {
		return nil, err
	}

	result := &Result{
		Content:       content,
		ToolCallCount: sig.APICalls,
		DurationMs:    time.Since(start).Milliseconds(),
		RepoURL:       repoURL,
		Model:         model,
	}

	s.log.Info().Str("repo", repoURL).Int("api_calls", result.ToolCallCount).
		Int64("duration_ms", result.DurationMs).Msg("analysis completed")

	return result, nil
}

// generateReport 单轮 chat completion，事实清单进、Markdown 报告出
func (s *Service) generateReport(ctx context.Context, model, factSheet string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(s.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(factSheet)),
		},
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("模型调用失败: %w", err)
	}

	var report strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			report.WriteString(block.Text)
		}
	}

	if report.Len() == 0 {
		return "", fmt.Errorf("模型没有返回内容")
	}
	return report.String(), nil
}

// Ensure interface compliance
var _ Client = (*Service)(nil)
