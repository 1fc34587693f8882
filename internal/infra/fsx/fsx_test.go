package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "report.json", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `{"ok":true}` {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	err := WriteFileAtomicReplace(dir, "report.json", []byte("x"))
	if err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
		if e.Name() == "report.json" {
			t.Fatalf("不应写出最终文件：%q", e.Name())
		}
	}
}

func TestEnsureDir_Idempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "2023", "06")

	if err := EnsureDir(target); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := EnsureDir(target); err != nil {
		t.Fatalf("重复创建应幂等：%v", err)
	}
	fi, err := os.Stat(target)
	if err != nil || !fi.IsDir() {
		t.Fatalf("目录未创建：%v", err)
	}
}

func TestEnsureDir_ConflictWithFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "2023")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	err := EnsureDir(target)
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if !IsPathTypeConflict(err) {
		t.Fatalf("期望 PathTypeConflictError，实际：%T %v", err, err)
	}
}
