package analyzer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Request 一次分析的运行参数
type Request struct {
	RepoURL   string
	Mode      string // quick, deep
	Model     string
	MaxFiles  int
	TimeoutMs int
}

// Result 分析产出
type Result struct {
	Content       string // Markdown 报告
	ToolCallCount int    // 对仓库托管 API 的调用次数
	DurationMs    int64
	RepoURL       string
	Model         string
}

// Client 外部分析协作方的契约。
// 调用是异步长耗时的（秒到分钟级），超时由实现方按 TimeoutMs 负责；
// 失败时返回的错误只承诺携带可读消息，调用方按不透明文本处理。
type Client interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// ParseRepoInput 解析仓库输入，接受 owner/repo 或完整 GitHub URL
func ParseRepoInput(input string) (owner, repo string, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", "", fmt.Errorf("仓库地址不能为空")
	}

	if strings.Contains(s, "://") {
		u, perr := url.Parse(s)
		if perr != nil {
			return "", "", fmt.Errorf("无法解析仓库地址: %s", input)
		}
		if u.Host != "github.com" && u.Host != "www.github.com" {
			return "", "", fmt.Errorf("仅支持 github.com 仓库: %s", input)
		}
		s = strings.Trim(u.Path, "/")
	}

	s = strings.TrimSuffix(s, ".git")
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("仓库地址应为 owner/repo 形式: %s", input)
	}
	return parts[0], parts[1], nil
}

// CanonicalURL owner/repo 对应的标准仓库 URL
func CanonicalURL(owner, repo string) string {
	return fmt.Sprintf("https://github.com/%s/%s", owner, repo)
}
