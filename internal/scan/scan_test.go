package scan

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanMedia_ExcludeCacheAndDest(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "fixed")

	// 永久排除 cache/；dest 下的已归档产物不得再进入输入。
	touch(t, filepath.Join(root, "cache", "report.json"))
	touch(t, filepath.Join(dest, "2023", "06", "IMG_0001.jpg"))

	// 正常输入。
	touch(t, filepath.Join(root, "in", "IMG_0001.jpg"))
	touch(t, filepath.Join(root, "in", "IMG_0001.jpg.json"))
	touch(t, filepath.Join(root, "in", "notes.txt"))

	got, err := ScanMedia(root, dest, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个媒体文件，实际 %d：%+v", len(got), got)
	}
	wantRel := filepath.Join("in", "IMG_0001.jpg")
	if got[0].RelPath != wantRel {
		t.Fatalf("期望 rel=%q，实际=%q", wantRel, got[0].RelPath)
	}
	if got[0].Dir != filepath.Join(root, "in") || got[0].Name != "IMG_0001.jpg" {
		t.Fatalf("Dir/Name 拆分不正确：%+v", got[0])
	}
}

func TestScanMedia_ExcludeDirsFromConfig(t *testing.T) {
	root := t.TempDir()

	touch(t, filepath.Join(root, "temp", "A.jpg"))
	touch(t, filepath.Join(root, "ok", "B.heic"))

	got, err := ScanMedia(root, "", []string{"temp"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 {
		t.Fatalf("期望 1 个媒体文件，实际 %d", len(got))
	}
	wantRel := filepath.Join("ok", "B.heic")
	if got[0].RelPath != wantRel {
		t.Fatalf("期望 rel=%q，实际=%q", wantRel, got[0].RelPath)
	}
}

func TestScanMedia_ExtCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "X.JPG"))
	touch(t, filepath.Join(root, "Y.Mov"))
	touch(t, filepath.Join(root, "Z.gif")) // 不在支持列表

	got, err := ScanMedia(root, "", nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个媒体文件，实际 %d", len(got))
	}
	if got[0].Ext != ".jpg" || got[0].Name != "X.JPG" {
		t.Fatalf("扩展名应小写、文件名保留原始大小写：%+v", got[0])
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
