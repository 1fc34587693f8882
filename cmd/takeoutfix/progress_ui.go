package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/John-Robertt/takeoutfix/internal/app/run"
	"github.com/John-Robertt/takeoutfix/internal/config"
	"github.com/John-Robertt/takeoutfix/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 处理是顺序的，事件来自单一 goroutine，无需加锁
type progressUI struct {
	w         io.Writer
	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (不写标签/不移动)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] takeoutfix run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	if eff.Dest != "" {
		fmt.Fprintf(p.w, "  dest: %s\n", eff.Dest)
	} else {
		fmt.Fprintf(p.w, "  dest: （未配置，写完标签原地不动）\n")
	}
	fmt.Fprintf(p.w, "  truncate_len: %d\n", eff.TruncateLen)
	fmt.Fprintf(p.w, "  exiftool: %s\n", eff.ExifToolBin)
	fmt.Fprintf(p.w, "  exclude_dirs: %s + 固定排除 cache/\n", formatStringListJSON(eff.ExcludeDirs))
	if eff.Apply {
		fmt.Fprintf(p.w, "  report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
	}
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n\n", intField(fields, "files"), formatShortDuration(dur))
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnFileDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	status := strings.ToUpper(res.Status)
	switch res.Status {
	case domain.StatusProcessed:
		status = "OK"
	case domain.StatusSkipped:
		status = "SKIP"
	case domain.StatusFailed:
		status = "FAIL"
	case domain.StatusUnresolved:
		status = "MISS"
	}

	switch res.Status {
	case domain.StatusFailed:
		fmt.Fprintf(p.w, "[%d/%d] %s %s %s: %s (%s)\n",
			idx, total, res.Src, status, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusUnresolved:
		fmt.Fprintf(p.w, "[%d/%d] %s %s (找不到 sidecar) (%s)\n",
			idx, total, res.Src, status, formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] %s %s (无拍摄时间) (%s)\n",
			idx, total, res.Src, status, formatShortDuration(dur),
		)
	default:
		where := res.FileStatus
		if res.Dst != "" {
			where += " -> " + res.Dst
		}
		fmt.Fprintf(p.w, "[%d/%d] %s %s probe=%s %s (%s)\n",
			idx, total, res.Src, status, res.Probe, where, formatShortDuration(dur),
		)
	}
}

// printSummaryTable 在 stdout 是 TTY 时输出人类友好的汇总表。
func printSummaryTable(w io.Writer, rr domain.RunReport) {
	mode := "dry-run"
	if !rr.DryRun {
		mode = "apply"
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"模式", "processed", "skipped", "failed", "unresolved", "总计"})
	t.AppendRow(table.Row{
		mode,
		rr.Summary.Processed,
		rr.Summary.Skipped,
		rr.Summary.Failed,
		rr.Summary.Unresolved,
		len(rr.Items),
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	default:
		return 0
	}
}
