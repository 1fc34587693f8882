package sidecar

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultTruncateLen 是截断修复探测的默认前缀长度。
// 这是对导出工具行为的经验常数（观测到 sidecar 名在 47–51 字符附近被截断），
// 与本机文件系统无关；可通过配置覆盖，但不要按文件系统推导。
const DefaultTruncateLen = 47

// 通过可替换的函数指针，让探测可以在测试里脱离真实文件系统。
var statFunc = os.Stat

// 重复标记形态：<base>(<N>)<ext>。
// base 贪婪匹配使 (N) 锚定在最终扩展名前的最后一个括号组；N 必须是 ASCII 十进制。
var dupMarkerRE = regexp.MustCompile(`^(.*)(\([0-9]+\))(\.[A-Za-z0-9]+)$`)

// Probe 是一条纯命名推导：给定媒体文件名，推导出 sidecar 候选名。
// ok=false 表示该形态对这个文件名不适用（例如名字里没有 (N) 标记）。
// 推导不碰文件系统，存在性判断统一由 Resolve 做。
type Probe struct {
	Name      string
	Candidate func(name string, truncLen int) (string, bool)
}

// Probes 按优先级排列，顺序是契约的一部分：更具体的命名形态必须先试，
// 第一个在磁盘上存在的候选即为结果。
//
// 1. exact_append  — <完整媒体名>.json（原样追加，保留媒体扩展名）
// 2. dup_reorder   — IMG_1234(1).JPG -> IMG_1234.JPG(1).json（导出工具对重复文件的 sidecar 会把标记挪到扩展名后）
// 3. truncate      — 取媒体名前 truncLen 个字符 + ".json"（sidecar 名被文件系统长度截断的修复）
// 4. ext_replace   — 媒体扩展名替换为 .json（无扩展名重复的媒体类型）
var Probes = []Probe{
	{Name: "exact_append", Candidate: exactAppend},
	{Name: "dup_reorder", Candidate: dupReorder},
	{Name: "truncate", Candidate: truncateRepair},
	{Name: "ext_replace", Candidate: extReplace},
}

// Resolve 在 dir 下为媒体文件名 name 定位 sidecar。
// 返回 sidecar 绝对路径、命中的探测名；四种形态都未命中时 ok=false
// （上层跳过该文件并记录，不得让错误越过这一边界）。
//
// truncLen<=0 时使用 DefaultTruncateLen。
func Resolve(dir, name string, truncLen int) (path string, probe string, ok bool) {
	if truncLen <= 0 {
		truncLen = DefaultTruncateLen
	}

	for _, p := range Probes {
		cand, applicable := p.Candidate(name, truncLen)
		if !applicable {
			continue
		}
		full := filepath.Join(dir, cand)
		if fi, err := statFunc(full); err == nil && fi.Mode().IsRegular() {
			return full, p.Name, true
		}
	}
	return "", "", false
}

func exactAppend(name string, _ int) (string, bool) {
	return name + ".json", true
}

func dupReorder(name string, _ int) (string, bool) {
	m := dupMarkerRE.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	// 标记（含括号）原样挪到扩展名之后。
	return m[1] + m[3] + m[2] + ".json", true
}

// truncateRepair 对短名会退化成 exact_append 的候选——仍然要独立尝试：
// 两者的后缀处理不同（这里是截断后追加，ext_replace 是替换最终扩展名），
// 探测顺序的语义不允许互相吞并。
func truncateRepair(name string, truncLen int) (string, bool) {
	r := []rune(name)
	if len(r) > truncLen {
		r = r[:truncLen]
	}
	return string(r) + ".json", true
}

func extReplace(name string, _ int) (string, bool) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".json", true
}
