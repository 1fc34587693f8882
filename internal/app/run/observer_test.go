package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/takeoutfix/internal/config"
	"github.com/John-Robertt/takeoutfix/internal/domain"
)

// recordObserver 记录所有事件，用于断言事件时序与数量。
type recordObserver struct {
	starts    int
	phases    []string
	fileDones []domain.ItemResult
	totals    []int
}

func (r *recordObserver) OnStart(config.EffectiveConfig) { r.starts++ }

func (r *recordObserver) OnPhaseDone(name string, _ map[string]any, _ time.Duration) {
	r.phases = append(r.phases, name)
}

func (r *recordObserver) OnFileDone(_, total int, res domain.ItemResult, _ time.Duration) {
	r.fileDones = append(r.fileDones, res)
	r.totals = append(r.totals, total)
}

func TestExecute_ObserverEvents(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.jpg"), "x")
	mustWrite(t, filepath.Join(root, "b.jpg"), "x")
	mustWrite(t, filepath.Join(root, "a.jpg.json"), `{"photoTakenTime":{"timestamp":"1686839400"}}`)

	obs := &recordObserver{}
	rr := Execute(context.Background(), effFor(root), &fakeWriter{}, obs)

	if obs.starts != 1 {
		t.Fatalf("OnStart 应恰好一次，实际 %d", obs.starts)
	}
	if len(obs.phases) != 1 || obs.phases[0] != "scan" {
		t.Fatalf("期望一次 scan 阶段事件，实际：%v", obs.phases)
	}
	if len(obs.fileDones) != 2 {
		t.Fatalf("期望 2 个文件事件，实际 %d", len(obs.fileDones))
	}
	for _, n := range obs.totals {
		if n != 2 {
			t.Fatalf("total 应为 2，实际：%v", obs.totals)
		}
	}
	if len(rr.Items) != 2 {
		t.Fatalf("报告条目数应与文件事件数一致：%d", len(rr.Items))
	}
}

func TestExecute_NilObserverOK(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.jpg"), "x")
	mustWrite(t, filepath.Join(root, "a.jpg.json"), `{"photoTakenTime":{"timestamp":"1686839400"}}`)

	rr := Execute(context.Background(), effFor(root), &fakeWriter{}, nil)
	if rr.Summary.Processed != 1 {
		t.Fatalf("nil Observer 不应影响执行结果：%+v", rr.Summary)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}

func effFor(root string) config.EffectiveConfig {
	return config.EffectiveConfig{
		Path:          root,
		Apply:         false,
		TruncateLen:   config.DefaultTruncateLen,
		ExifToolBin:   config.DefaultExifToolBin,
		SettleSeconds: config.DefaultSettleSeconds,
	}
}
