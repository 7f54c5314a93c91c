package redact

import (
	"regexp"
)

// Marker 替换敏感内容的固定标记
const Marker = "[REDACTED]"

// GitHub token 形态：经典 PAT（ghp_ 等前缀 + 36 位）与 fine-grained PAT
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`),
}

// String 将文本中所有凭证形态的子串替换为固定标记
func String(s string) string {
	for _, pattern := range tokenPatterns {
		s = pattern.ReplaceAllString(s, Marker)
	}
	return s
}

// Truncate 截断到 max 个字符，用于出程序边界前的消息限长
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
