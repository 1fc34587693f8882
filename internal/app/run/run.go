package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/takeoutfix/internal/app/planner"
	"github.com/John-Robertt/takeoutfix/internal/config"
	"github.com/John-Robertt/takeoutfix/internal/domain"
	"github.com/John-Robertt/takeoutfix/internal/infra/fsx"
	"github.com/John-Robertt/takeoutfix/internal/scan"
	"github.com/John-Robertt/takeoutfix/internal/sidecar"
	"github.com/John-Robertt/takeoutfix/internal/tagger"
)

// Execute 执行一轮（dry-run/apply），并返回对外稳定的 RunReport。
//
// 单文件错误一律“降级”为 item 级结果（一条失败不影响其他文件）；
// 只有输入目录缺失/扫描失败这类运行级错误会生成合成条目并提前结束。
//
// 处理是严格顺序的：一个文件完整走完 解析 sidecar → 写标签 → 归档移动，
// 才轮到下一个。外部写标签工具是阻塞调用，无超时（只碰本地文件）。
func Execute(ctx context.Context, eff config.EffectiveConfig, w tagger.Writer, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		Path:      eff.Path,
		Dest:      eff.Dest,
		DryRun:    !eff.Apply,
		RunID:     uuid.NewString(),
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, 128),
	}

	// 输入目录缺失是启动级错误：不处理任何文件。
	if fi, err := os.Stat(eff.Path); err != nil || !fi.IsDir() {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeInputMissing, fmt.Sprintf("输入目录不存在或不是目录：%q", eff.Path)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	scanStarted := time.Now()
	files, err := scan.ScanMedia(eff.Path, eff.Dest, eff.ExcludeDirs)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(files)}, time.Since(scanStarted))
	}

	// 同一轮内各目标目录的已占用名字集合：跨文件共享，
	// 保证两个源文件落进同一 <年>/<月> 时第二个拿到 _1 后缀。
	used := make(map[string]map[string]struct{}, 8)

	for i := range files {
		oneStarted := time.Now()
		res := processOne(ctx, eff, w, files[i], used)
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnFileDone(i+1, len(files), res, time.Since(oneStarted))
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// processOne 是单文件状态机：每条转移都是终态，任何失败都不回头、不重试。
func processOne(ctx context.Context, eff config.EffectiveConfig, w tagger.Writer, f domain.MediaFile, used map[string]map[string]struct{}) domain.ItemResult {
	res := domain.ItemResult{
		Src:    f.RelPath,
		Status: domain.StatusProcessed, // 失败时覆盖
	}

	scPath, probe, ok := sidecar.Resolve(f.Dir, f.Name, eff.TruncateLen)
	if !ok {
		res.Status = domain.StatusUnresolved
		res.ErrorCode = domain.ErrCodeSidecarUnresolved
		res.ErrorMsg = "四种命名形态都未命中 sidecar；跳过该文件"
		return res
	}
	res.Sidecar = relTo(eff.Path, scPath)
	res.Probe = probe

	meta, err := sidecar.Extract(scPath)
	if err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeSidecarInvalid
		res.ErrorMsg = err.Error()
		return res
	}
	if !meta.Usable() {
		res.Status = domain.StatusSkipped
		res.ErrorCode = domain.ErrCodeMissingCaptureTime
		res.ErrorMsg = "sidecar 没有有效拍摄时间；不写标签、不移动"
		return res
	}
	res.TakenAt = meta.TakenAt

	// 目标推导在写标签之前做：dry-run 也要给出确定的去向，且
	// 拍摄时间异常应在碰任何文件之前暴露。
	var dstDir string
	if eff.Dest != "" {
		d, e := planner.DestDir(eff.Dest, meta.TakenAt)
		if e != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeDestFailed
			res.ErrorMsg = e.Error()
			return res
		}
		dstDir = d
	}

	var dstAbs string
	if dstDir != "" {
		names := used[dstDir]
		if names == nil {
			st, e := planner.ReadDestState(dstDir)
			if e != nil {
				res.Status = domain.StatusFailed
				res.ErrorCode = domain.ErrCodeDestFailed
				res.ErrorMsg = fmt.Sprintf("读取归档目录失败：%v", e)
				return res
			}
			names = st
			used[dstDir] = names
		}

		dstName := planner.AllocName(f.Name, names)
		dstAbs = filepath.Join(dstDir, dstName)
		res.Dst = relTo(eff.Dest, dstAbs)

		// 轮内占用要立刻登记：dry-run 同样登记，保证模拟结果与 live 一致。
		names[dstName] = struct{}{}
	}

	// dry-run：解析与去向推导到此为止；不调外部工具、不建目录、不移动。
	if !eff.Apply {
		if dstAbs != "" {
			res.FileStatus = domain.FileStatusPlanned
		} else {
			res.FileStatus = domain.FileStatusLeftInPlace
		}
		return res
	}

	if err := w.Apply(ctx, f.AbsPath, tagger.BuildArgs(meta)); err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeTagWriteFailed
		res.ErrorMsg = err.Error()
		res.FileStatus = domain.FileStatusFailed
		res.Dst = "" // 标签都没写成，去向无意义
		return res
	}

	if dstAbs == "" {
		// 未配置归档根目录：写完标签留在原地，这是独立的成功终态。
		res.FileStatus = domain.FileStatusLeftInPlace
		return res
	}

	// 移动是最后一步。此处任何失败都意味着“标签已写入但文件未动”，
	// 必须在报告里醒目区分（dest_failed/move_failed），方便用户手工收尾。
	plan := domain.MovePlan{SrcAbs: f.AbsPath, DstAbs: dstAbs}
	if err := fsx.EnsureDir(dstDir); err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeDestFailed
		res.ErrorMsg = fmt.Sprintf("标签已写入但目录创建失败，文件留在原位：%v", err)
		res.FileStatus = domain.FileStatusFailed
		return res
	}
	if err := fsx.Rename(plan.SrcAbs, plan.DstAbs); err != nil {
		res.Status = domain.StatusFailed
		res.ErrorCode = domain.ErrCodeMoveFailed
		res.ErrorMsg = fmt.Sprintf("标签已写入但移动失败，文件留在原位：%v", err)
		res.FileStatus = domain.FileStatusFailed
		return res
	}

	res.FileStatus = domain.FileStatusMoved
	return res
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Src:       "",
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func relTo(base, abs string) string {
	if base == "" {
		return abs
	}
	if rel, err := filepath.Rel(base, abs); err == nil {
		return rel
	}
	// 兜底：输出原始 abs，至少可追溯。
	return abs
}
