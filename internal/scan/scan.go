package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/takeoutfix/internal/domain"
)

// 可处理的媒体扩展名（大小写不敏感）。sidecar（.json）不在此列：
// 它们只被解析，永远不会被当成待处理文件。
var mediaExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".heic": {},
	".mov": {}, ".mp4": {}, ".m4v": {},
}

// IsMediaExt 判断扩展名（须已小写，形如 ".jpg"）是否属于可处理媒体。
func IsMediaExt(ext string) bool {
	_, ok := mediaExts[ext]
	return ok
}

// ScanMedia 扫描 root 下的媒体文件，并应用目录排除规则。
//
// 规则（硬约束）：
// - 永久排除：<root>/cache/（report.json 所在地）
// - dest 非空时排除 dest：防止把上一轮已归档的产物当成新输入再处理一遍
// - excludeDirs：来自配置文件，均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容、不碰 sidecar。
func ScanMedia(root, dest string, excludeDirs []string) ([]domain.MediaFile, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, dest, excludeDirs)

	files := make([]domain.MediaFile, 0, 128)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// 统一的排除判断：目录用 SkipDir，文件则直接跳过。
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !IsMediaExt(ext) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, domain.MediaFile{
			AbsPath: path,
			RelPath: rel,
			Dir:     filepath.Dir(path),
			Name:    name,
			Ext:     ext,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func buildExcluded(root, dest string, excludeDirs []string) []string {
	excluded := make([]string, 0, 2+len(excludeDirs))
	excluded = append(excluded, filepath.Clean(filepath.Join(root, "cache")))

	if strings.TrimSpace(dest) != "" {
		// dest 在 root 之外时这条规则自然永远不命中，无需特判。
		excluded = append(excluded, filepath.Clean(dest))
	}

	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}

	// 排除列表排序后，isExcluded 的行为更可预测（且便于测试）。
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(filepath.Separator))
}
