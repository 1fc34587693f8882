package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	w, err := New(root, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("创建监听失败：%v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func waitBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Batches:
		return batch
	case <-time.After(5 * time.Second):
		t.Fatalf("等待批次超时")
		return nil
	}
}

func TestWatcher_MediaFileTriggersBatch(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	path := filepath.Join(root, "IMG_0001.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	batch := waitBatch(t, w)
	if len(batch) != 1 || batch[0] != path {
		t.Fatalf("期望批次 [%q]，实际：%v", path, batch)
	}
}

func TestWatcher_NonMediaIgnored(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	select {
	case batch := <-w.Batches:
		t.Fatalf("非媒体文件不应触发批次：%v", batch)
	case <-time.After(600 * time.Millisecond):
	}
}

func TestWatcher_SettleMergesBurst(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	// 窗口内连续落盘多个文件，应合并为一批。
	var want []string
	for _, n := range []string{"a.jpg", "b.mp4", "c.heic"} {
		p := filepath.Join(root, n)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
		want = append(want, p)
		time.Sleep(20 * time.Millisecond)
	}

	batch := waitBatch(t, w)
	if len(batch) != len(want) {
		t.Fatalf("期望 %d 个文件合并成一批，实际：%v", len(want), batch)
	}
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	sub := filepath.Join(root, "Takeout", "Photos")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	// 给动态补挂留一点时间。
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(sub, "IMG_0002.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	batch := waitBatch(t, w)
	found := false
	for _, p := range batch {
		if p == path {
			found = true
		}
	}
	if !found {
		t.Fatalf("新子目录中的文件未被监听到：%v", batch)
	}
}
