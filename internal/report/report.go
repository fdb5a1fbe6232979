// Package report writes human-readable Markdown artifacts for each cycle.
// Reports are a convenience output: failures here never roll back tracker
// state.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ghtracker/internal/github"
)

// Writer persists reports under one directory.
type Writer struct {
	dir string
	now func() time.Time
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Entry is one repo's contribution to the daily digest.
type Entry struct {
	RepoName string
	Summary  string
	Batch    *github.UpdateBatch
}

// Info describes a report file on disk for the dashboard listing.
type Info struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Type     string `json:"type"` // "single" | "digest"
	Repo     string `json:"repo,omitempty"`
	Date     string `json:"date"`
	Size     int64  `json:"size"`
}

// Generate writes the per-repo report and returns its path.
func (w *Writer) Generate(repoName, summary string, batch *github.UpdateBatch) (string, error) {
	now := w.now()
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(repoName), now.Format("20060102"))
	path := filepath.Join(w.dir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s 更新报告\n\n生成时间: %s\n\n", repoName, now.Format("2006-01-02 15:04:05"))

	if batch != nil {
		if stats := batchStats(batch); stats != "" {
			fmt.Fprintf(&b, "**本次统计**: %s\n\n", stats)
		}
		if len(batch.Keywords) > 0 {
			fmt.Fprintf(&b, "**关注关键词**: %s\n\n", strings.Join(batch.Keywords, ", "))
		}
	}

	b.WriteString("---\n\n## AI 总结\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n---\n")

	if batch != nil {
		b.WriteString("\n## 原始数据\n")
		writePRSection(&b, "已合并的 Pull Requests", batch.MergedPRs)
		writePRSection(&b, "新开放的 Pull Requests", batch.OpenPRs)
		if len(batch.Releases) > 0 {
			b.WriteString("\n### 版本发布\n\n")
			for _, rel := range batch.Releases {
				pre := ""
				if rel.Prerelease {
					pre = " *(预发布)*"
				}
				fmt.Fprintf(&b, "- [%s - %s](%s)%s\n", rel.Tag, rel.Name, rel.URL, pre)
			}
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// GenerateDigest writes the combined daily digest report.
func (w *Writer) GenerateDigest(entries []Entry) (string, error) {
	now := w.now()
	path := filepath.Join(w.dir, fmt.Sprintf("daily_digest_%s.md", now.Format("20060102")))

	var b strings.Builder
	fmt.Fprintf(&b, "# GitHub 追踪日报\n\n生成时间: %s\n\n追踪项目数: %d\n\n---\n\n## 目录\n\n",
		now.Format("2006-01-02 15:04:05"), len(entries))
	for _, e := range entries {
		anchor := strings.ToLower(strings.NewReplacer("/", "", " ", "-").Replace(e.RepoName))
		fmt.Fprintf(&b, "- [%s](#%s)\n", e.RepoName, anchor)
	}
	b.WriteString("\n---\n")

	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s\n\n", e.RepoName)
		if e.Batch != nil {
			if stats := batchStats(e.Batch); stats != "" {
				fmt.Fprintf(&b, "*%s*\n\n", stats)
			}
		}
		b.WriteString(e.Summary)
		b.WriteString("\n\n---\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}
	return path, nil
}

// List returns report metadata, newest file first. An empty repoName lists
// everything.
func (w *Writer) List(repoName string) ([]Info, error) {
	names, err := filepath.Glob(filepath.Join(w.dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var out []Info
	for _, path := range names {
		filename := filepath.Base(path)
		info := Info{Filename: filename, Path: path}

		base := strings.TrimSuffix(filename, ".md")
		var dateStr string
		if rest, ok := strings.CutPrefix(base, "daily_digest_"); ok {
			info.Type = "digest"
			dateStr = rest
		} else {
			i := strings.LastIndex(base, "_")
			if i < 0 {
				continue
			}
			info.Type = "single"
			info.Repo = strings.ReplaceAll(base[:i], "_", "/")
			dateStr = base[i+1:]
		}

		if repoName != "" && info.Repo != repoName {
			continue
		}
		d, err := time.Parse("20060102", dateStr)
		if err != nil {
			continue
		}
		info.Date = d.Format("2006-01-02")
		if st, err := os.Stat(path); err == nil {
			info.Size = st.Size()
		}
		out = append(out, info)
	}
	return out, nil
}

func batchStats(batch *github.UpdateBatch) string {
	var stats []string
	if n := len(batch.MergedPRs); n > 0 {
		stats = append(stats, fmt.Sprintf("已合并PR: %d", n))
	}
	if n := len(batch.OpenPRs); n > 0 {
		stats = append(stats, fmt.Sprintf("新开放PR: %d", n))
	}
	if n := len(batch.Releases); n > 0 {
		stats = append(stats, fmt.Sprintf("新版本: %d", n))
	}
	return strings.Join(stats, " | ")
}

func writePRSection(b *strings.Builder, title string, prs []github.PRInfo) {
	if len(prs) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n\n", title)
	for _, pr := range prs {
		labels := ""
		if len(pr.Labels) > 0 {
			labels = fmt.Sprintf(" `%s`", strings.Join(pr.Labels, ", "))
		}
		fmt.Fprintf(b, "- [#%d %s](%s)%s\n", pr.Number, pr.Title, pr.URL, labels)
	}
}

func sanitizeFilename(name string) string {
	return strings.NewReplacer("/", "_", " ", "_").Replace(name)
}
