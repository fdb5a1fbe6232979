package summary

import (
	"fmt"
	"strings"

	"ghtracker/internal/github"
	"ghtracker/internal/storage"
)

const systemPrompt = "你是一个专业的技术文档助手，擅长总结GitHub项目更新。"

const (
	prBodyPreviewLen      = 200
	releaseBodyPreviewLen = 300
)

// buildPrompt assembles the user prompt: project header, keyword emphasis,
// compressed history, the update lists, and the output instructions.
func buildPrompt(batch *github.UpdateBatch, history []storage.Summary) string {
	var content []string
	if len(batch.MergedPRs) > 0 {
		content = append(content, formatPRList(batch.MergedPRs, "已合并的PR"))
	}
	if len(batch.OpenPRs) > 0 {
		content = append(content, formatPRList(batch.OpenPRs, "新开放的PR"))
	}
	if len(batch.Releases) > 0 {
		content = append(content, formatReleaseList(batch.Releases))
	}

	keywords := ""
	if len(batch.Keywords) > 0 {
		keywords = fmt.Sprintf("\n**重点关注**: 请特别关注包含以下关键词的更新: %s\n",
			strings.Join(batch.Keywords, "、"))
	}

	return fmt.Sprintf(`你是一个专业的技术文档助手，负责总结 GitHub 项目的更新动态。

## 项目
%s
%s
%s

## 本次更新内容

%s

## 总结要求

请用中文生成一份结构清晰的更新总结，包含以下部分：

1. **历史回顾**（如有历史记录）：100字以内的极简回顾
2. **重要更新**：突出最重要的变化（新功能、重大修复、breaking changes等）
3. **PR概览**：
   - 已合并PR的主要改动
   - 新开放PR的关注点
4. **版本发布**（如有）：新版本的核心变化
5. **技术趋势**：从更新中观察到的项目发展方向

请保持总结简洁专业，使用Markdown格式，突出关键信息。对于PR和Release，请保留原始链接。
`, batch.RepoName, keywords, historyContext(history), strings.Join(content, "\n"))
}

func formatPRList(prs []github.PRInfo, kind string) string {
	lines := []string{fmt.Sprintf("### %s (%d个)\n", kind, len(prs))}
	for _, pr := range prs {
		labels := ""
		if len(pr.Labels) > 0 {
			labels = fmt.Sprintf(" [%s]", strings.Join(pr.Labels, ", "))
		}
		lines = append(lines, fmt.Sprintf("- **#%d** %s%s", pr.Number, pr.Title, labels))
		lines = append(lines, "  URL: "+pr.URL)
		if body := preview(pr.Body, prBodyPreviewLen); body != "" {
			lines = append(lines, "  描述: "+body)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func formatReleaseList(releases []github.ReleaseInfo) string {
	lines := []string{"### 新版本发布\n"}
	for _, rel := range releases {
		tag := ""
		if rel.Prerelease {
			tag = " (预发布)"
		}
		lines = append(lines, fmt.Sprintf("- **%s** %s%s", rel.Tag, rel.Name, tag))
		lines = append(lines, "  URL: "+rel.URL)
		if body := preview(rel.Body, releaseBodyPreviewLen); body != "" {
			lines = append(lines, "  更新内容: "+body)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func historyContext(history []storage.Summary) string {
	if len(history) == 0 {
		return ""
	}
	parts := make([]string, 0, len(history))
	for _, s := range history {
		parts = append(parts, fmt.Sprintf("[%s]\n%s", s.Date, s.Content))
	}
	return fmt.Sprintf(`
## 历史回顾
以下是该项目最近%d次的更新总结，请在总结时考虑这些背景信息，帮助用户理解项目的发展脉络：

%s

请将以上历史记录压缩为100字以内的极简回顾，作为本次总结的开头。
`, len(history), strings.Join(parts, "\n\n---\n\n"))
}

// preview flattens a body to one line capped at n runes.
func preview(body string, n int) string {
	r := []rune(body)
	if len(r) > n {
		body = string(r[:n]) + "..."
	}
	return strings.TrimSpace(strings.ReplaceAll(body, "\n", " "))
}

// buildDigestPrompt combines several per-repo summaries into one request for
// a short cross-project digest.
func buildDigestPrompt(repoNames, summaries []string) string {
	parts := make([]string, 0, len(summaries))
	for i, s := range summaries {
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", repoNames[i], s))
	}
	return fmt.Sprintf(`以下是多个GitHub项目的更新总结，请生成一份综合摘要：

%s

请用中文生成一份简洁的综合摘要（300字以内），突出所有项目中最重要的更新。
`, strings.Join(parts, "\n\n---\n\n"))
}
