package run

import (
	"time"

	"github.com/John-Robertt/takeoutfix/internal/config"
	"github.com/John-Robertt/takeoutfix/internal/domain"
)

// Observer 用于把“运行进度/阶段/单文件结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 处理是顺序的，事件只来自一个 goroutine；实现无需加锁，但也不得阻塞太久
//   （每个事件都在文件处理的关键路径上）。
type Observer interface {
	// OnStart 在 Execute 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFileDone 在某个媒体文件处理完成时调用（用于每条结果的一行输出）。
	OnFileDone(idx, total int, res domain.ItemResult, dur time.Duration)
}
