package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/takeoutfix/internal/domain"
)

// DestDir 由拍摄时间推导归档目录：<destRoot>/<年>/<两位月>。
// takenAt 必须是 domain.TakenAtLayout 形态（Extract 产出保证）；
// 解析失败说明上游契约被破坏，返回错误由上层降级为单文件失败。
func DestDir(destRoot, takenAt string) (string, error) {
	ts, err := time.ParseInLocation(domain.TakenAtLayout, takenAt, time.Local)
	if err != nil {
		return "", fmt.Errorf("拍摄时间无法解析：%q：%w", takenAt, err)
	}
	return filepath.Join(destRoot, fmt.Sprintf("%04d", ts.Year()), fmt.Sprintf("%02d", int(ts.Month()))), nil
}

// ReadDestState 读取归档目录的现有文件名集合（只做 ReadDir，不读内容）。
// 目录不存在返回空集合且不报错——live 模式稍后才会创建它。
func ReadDestState(dir string) (map[string]struct{}, error) {
	names := map[string]struct{}{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, err
	}
	for _, e := range entries {
		names[e.Name()] = struct{}{}
	}
	return names, nil
}

// AllocName 在 used 集合内为 name 选一个不冲突的目标名。
//
// 冲突时按 <stem>_<N><ext>（N 从 1 起）线性探测，第一个未占用者胜出；
// 确定性、不设上限（整段计数序列被恶意预占不在正常运行范围内）。
// 调用方负责把同一轮 run 内已分配的名字也放进 used，保证轮内不互撞。
func AllocName(name string, used map[string]struct{}) string {
	if _, ok := used[name]; !ok {
		return name
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 1; ; n++ {
		cand := fmt.Sprintf("%s_%d%s", stem, n, ext)
		if _, ok := used[cand]; !ok {
			return cand
		}
	}
}
