package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/takeoutfix/internal/app/run"
	"github.com/John-Robertt/takeoutfix/internal/config"
	"github.com/John-Robertt/takeoutfix/internal/domain"
	"github.com/John-Robertt/takeoutfix/internal/infra/fsx"
	"github.com/John-Robertt/takeoutfix/internal/tagger"
	"github.com/John-Robertt/takeoutfix/internal/watch"
)

// exitCode 由子命令写入、main 统一消费：
// 不在 RunE 里直接 os.Exit，否则 defer（信号清理、watcher 关闭）不会执行。
var exitCode int

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "takeoutfix",
		Short: "修复 Google Takeout 导出媒体的元数据并按年月归档",
		Long: `takeoutfix 扫描 Takeout 导出目录，为每个媒体文件解析对应的 JSON sidecar
（四种命名形态逐一探测），把拍摄时间与 GPS 写回媒体文件本身，
并可选地移动到 <归档根>/<年>/<月>/ 下（重名自动加 _N 后缀）。

默认是 dry-run：只解析、只报告，不写标签也不移动。加 --apply 才真正执行。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.AddCommand(newRunCommand(), newWatchCommand())
	return root
}

func newRunCommand() *cobra.Command {
	var dest string
	var apply bool

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "对输入目录执行一轮（默认 dry-run）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				Dest:     dest,
				DestSet:  cmd.Flags().Changed("dest"),
				Apply:    apply,
				ApplySet: cmd.Flags().Changed("apply"),
			}
			if len(args) == 1 {
				cli.Path = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			exitCode = runOnce(ctx, cli)
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "归档根目录（留空则写完标签原地不动；--dest=\"\" 可显式关掉配置中的 dest）")
	cmd.Flags().BoolVar(&apply, "apply", false, "真正执行写标签与移动（默认 dry-run）；--apply=false 可覆盖配置中的 apply=true")
	return cmd
}

func newWatchCommand() *cobra.Command {
	var dest string
	var apply bool

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "监听输入目录，新文件静默片刻后自动触发一轮",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				Dest:     dest,
				DestSet:  cmd.Flags().Changed("dest"),
				Apply:    apply,
				ApplySet: cmd.Flags().Changed("apply"),
			}
			if len(args) == 1 {
				cli.Path = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			exitCode = watchLoop(ctx, cli)
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "归档根目录（留空则写完标签原地不动）")
	cmd.Flags().BoolVar(&apply, "apply", false, "真正执行写标签与移动（默认 dry-run）")
	return cmd
}

func runOnce(ctx context.Context, cli config.CLIArgs) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(reportForConfigError(cwd, cli, err))
		return 1
	}

	return executeAndEmit(ctx, eff)
}

// executeAndEmit 执行一轮并完成全部输出/落盘约定；返回进程退出码。
func executeAndEmit(ctx context.Context, eff config.EffectiveConfig) int {
	et := tagger.ExifTool{Bin: eff.ExifToolBin}
	// apply 前置检查：外部工具不可用时整轮都不该开始。
	if eff.Apply {
		if err := et.Preflight(); err != nil {
			rr := reportForRunError(eff, domain.ErrCodeTagWriteFailed, err)
			emitReport(rr)
			return 1
		}
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.Execute(ctx, eff, &et, obs)

	// apply：必须写入 <path>/cache/report.json；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Path, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
	}

	emitReport(rr)
	if interactive && eff.Apply {
		fmt.Fprintf(progressW, "report: %s\n", filepath.Join(eff.Path, "cache", "report.json"))
	}
	if rr.Summary.Failed == 0 && rr.Summary.Unresolved == 0 {
		return 0
	}
	return 1
}

func watchLoop(ctx context.Context, cli config.CLIArgs) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		emitReport(reportForConfigError(cwd, cli, err))
		return 1
	}

	// 启动即跑一轮：覆盖 watch 开始前就已存在的文件。
	code := executeAndEmit(ctx, eff)

	w, err := watch.New(eff.Path, time.Duration(eff.SettleSeconds)*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "启动目录监听失败：%v\n", err)
		return 1
	}
	defer w.Close()

	fmt.Fprintf(os.Stderr, "监听中：%s（静默窗口 %d 秒，Ctrl-C 退出）\n", eff.Path, eff.SettleSeconds)

	for {
		select {
		case <-ctx.Done():
			return code
		case batch, ok := <-w.Batches:
			if !ok {
				return code
			}
			fmt.Fprintf(os.Stderr, "检测到 %d 个新媒体文件，开始新一轮\n", len(batch))
			// 每批做全量扫描而非只处理 batch：sidecar 可能晚于媒体落盘，
			// 全量轮次天然把上一轮 unresolved 的文件再试一遍。
			code = executeAndEmit(ctx, eff)
		}
	}
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		printSummaryTable(os.Stdout, rr)
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed && it.Status != domain.StatusUnresolved {
				continue
			}
			key := it.Src
			if key == "" {
				key = "<run>"
			}
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：processed=%d skipped=%d failed=%d unresolved=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unresolved,
	)
}

func reportForConfigError(cwdAbs string, cli config.CLIArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       cwdAbs,
		DryRun:     !(cli.ApplySet && cli.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func reportForRunError(eff config.EffectiveConfig, code string, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Path:       eff.Path,
		Dest:       eff.Dest,
		DryRun:     !eff.Apply,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(root string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(root, "cache"), "report.json", b)
}

func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
