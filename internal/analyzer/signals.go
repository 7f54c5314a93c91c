package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
)

// repoSignals 从托管平台收集到的只读健康度信号
type repoSignals struct {
	Description   string
	DefaultBranch string
	Stars         int
	Forks         int
	OpenIssues    int
	Archived      bool
	License       string
	ReadmeExcerpt string
	Workflows     []string // CI workflow 文件
	Governance    []string // 存在的治理/安全文件
	FileCount     int      // deep 模式：默认分支文件数
	TopFiles      []string // deep 模式：根目录附近的文件样本
	RecentRuns    []string // deep 模式：近期 workflow 运行结论
	APICalls      int
}

// 治理与安全卫生相关的常见文件
var governanceFiles = []string{
	"LICENSE",
	"CONTRIBUTING.md",
	"CODE_OF_CONDUCT.md",
	"SECURITY.md",
	"CODEOWNERS",
	".github/dependabot.yml",
}

const readmeExcerptLen = 4000

// collectSignals 通过仓库托管 API 收集信号。
// quick 模式只取元数据、README 和治理文件；deep 模式追加文件树和近期 CI 运行。
func (s *Service) collectSignals(ctx context.Context, owner, repo string, req Request) (*repoSignals, error) {
	sig := &repoSignals{}

	repository, _, err := s.gh.Repositories.Get(ctx, owner, repo)
	sig.APICalls++
	if err != nil {
		return nil, fmt.Errorf("获取仓库信息失败: %w", err)
	}

	sig.Description = repository.GetDescription()
	sig.DefaultBranch = repository.GetDefaultBranch()
	sig.Stars = repository.GetStargazersCount()
	sig.Forks = repository.GetForksCount()
	sig.OpenIssues = repository.GetOpenIssuesCount()
	sig.Archived = repository.GetArchived()
	if repository.GetLicense() != nil {
		sig.License = repository.GetLicense().GetSPDXID()
	}

	// README 摘要（缺失本身就是一个健康度信号，不视为错误）
	readme, _, err := s.gh.Repositories.GetReadme(ctx, owner, repo, nil)
	sig.APICalls++
	if err == nil {
		if content, cerr := readme.GetContent(); cerr == nil {
			if len(content) > readmeExcerptLen {
				content = content[:readmeExcerptLen]
			}
			sig.ReadmeExcerpt = content
		}
	}

	// CI workflow 文件
	_, workflowDir, _, err := s.gh.Repositories.GetContents(ctx, owner, repo, ".github/workflows", nil)
	sig.APICalls++
	if err == nil {
		for _, entry := range workflowDir {
			sig.Workflows = append(sig.Workflows, entry.GetName())
		}
	}

	// 治理/安全文件存在性
	for _, path := range governanceFiles {
		fileContent, _, _, err := s.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
		sig.APICalls++
		if err == nil && fileContent != nil {
			sig.Governance = append(sig.Governance, path)
		}
	}

	if req.Mode != "deep" {
		return sig, nil
	}

	// deep 模式：完整文件树
	tree, _, err := s.gh.Git.GetTree(ctx, owner, repo, sig.DefaultBranch, true)
	sig.APICalls++
	if err == nil {
		maxFiles := req.MaxFiles
		if maxFiles <= 0 {
			maxFiles = s.defaultMaxFiles
		}
		for _, entry := range tree.Entries {
			if entry.GetType() != "blob" {
				continue
			}
			sig.FileCount++
			if len(sig.TopFiles) < maxFiles && !strings.Contains(entry.GetPath(), "/") {
				sig.TopFiles = append(sig.TopFiles, entry.GetPath())
			}
		}
	}

	// deep 模式：近期 workflow 运行结论
	runs, _, err := s.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, &github.ListWorkflowRunsOptions{
		ListOptions: github.ListOptions{PerPage: 10},
	})
	sig.APICalls++
	if err == nil {
		for _, run := range runs.WorkflowRuns {
			sig.RecentRuns = append(sig.RecentRuns,
				fmt.Sprintf("%s: %s/%s", run.GetName(), run.GetStatus(), run.GetConclusion()))
		}
	}

	return sig, nil
}

// digest 把信号拼成给模型看的事实清单
func (sig *repoSignals) digest(repoURL string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Repository: %s\n", repoURL)
	fmt.Fprintf(&b, "Description: %s\n", sig.Description)
	fmt.Fprintf(&b, "Stars: %d, Forks: %d, Open issues: %d\n", sig.Stars, sig.Forks, sig.OpenIssues)
	fmt.Fprintf(&b, "Default branch: %s\n", sig.DefaultBranch)
	fmt.Fprintf(&b, "Archived: %v\n", sig.Archived)

	if sig.License != "" {
		fmt.Fprintf(&b, "License: %s\n", sig.License)
	} else {
		b.WriteString("License: none detected\n")
	}

	if len(sig.Workflows) > 0 {
		fmt.Fprintf(&b, "CI workflows: %s\n", strings.Join(sig.Workflows, ", "))
	} else {
		b.WriteString("CI workflows: none\n")
	}

	if len(sig.Governance) > 0 {
		fmt.Fprintf(&b, "Governance files present: %s\n", strings.Join(sig.Governance, ", "))
	} else {
		b.WriteString("Governance files present: none\n")
	}

	if sig.FileCount > 0 {
		fmt.Fprintf(&b, "Files on default branch: %d\n", sig.FileCount)
		fmt.Fprintf(&b, "Root files: %s\n", strings.Join(sig.TopFiles, ", "))
	}
	if len(sig.RecentRuns) > 0 {
		fmt.Fprintf(&b, "Recent CI runs:\n  %s\n", strings.Join(sig.RecentRuns, "\n  "))
	}

	if sig.ReadmeExcerpt != "" {
		fmt.Fprintf(&b, "\nREADME excerpt:\n%s\n", sig.ReadmeExcerpt)
	} else {
		b.WriteString("\nREADME: missing\n")
	}

	return b.String()
}
