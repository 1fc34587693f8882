package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed  = "processed"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
	StatusUnresolved = "unresolved"
)

const (
	FileStatusPlanned     = "planned"
	FileStatusMoved       = "moved"
	FileStatusLeftInPlace = "left_in_place"
	FileStatusFailed      = "failed"
)

const (
	ErrCodeSidecarUnresolved  = "sidecar_unresolved"
	ErrCodeSidecarInvalid     = "sidecar_invalid"
	ErrCodeMissingCaptureTime = "missing_capture_time"
	ErrCodeTagWriteFailed     = "tag_write_failed"
	ErrCodeDestFailed         = "dest_failed"
	ErrCodeMoveFailed         = "move_failed"
	ErrCodeIOFailed           = "io_failed"
	ErrCodeInputMissing       = "input_missing"
	ErrCodeConfigNotFound     = "config_not_found"
	ErrCodeConfigInvalid      = "config_invalid"
	ErrCodeConfigMissingPath  = "config_missing_path"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	Dest   string `json:"dest"` // 空串表示“原地写标签，不移动”
	DryRun bool   `json:"dry_run"`
	RunID  string `json:"run_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed  int `json:"processed"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
	Unresolved int `json:"unresolved"`
}

// ItemResult 对应一个媒体文件的最终去向（每个文件恰好一条，状态机不回头）。
type ItemResult struct {
	Src     string `json:"src"`     // 相对输入根目录
	Sidecar string `json:"sidecar"` // 相对输入根目录；未命中为空
	Probe   string `json:"probe"`   // 命中的探测形态名；未命中为空
	TakenAt string `json:"taken_at"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Dst        string `json:"dst"` // 相对归档根目录；不移动为空
	FileStatus string `json:"file_status"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 src 字典序；src=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Src
		b := r.Items[j].Src
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnresolved:
			s.Unresolved++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
