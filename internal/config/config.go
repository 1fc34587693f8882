package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ErrCodeNotFound 表示无参运行但 cwd 下没有 takeoutfix.toml。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingPath 表示无参运行但配置文件缺少 path 字段。
	ErrCodeMissingPath = "config_missing_path"
)

const (
	// FileName 是配置文件的固定名字（位于输入目录或 cwd 下）。
	FileName = "takeoutfix.toml"

	// DefaultTruncateLen 是截断修复探测的默认前缀长度（经验常数，来自导出工具行为）。
	DefaultTruncateLen = 47
	// DefaultExifToolBin 是外部写标签工具的默认可执行名。
	DefaultExifToolBin = "exiftool"
	// DefaultSettleSeconds 是 watch 模式事件静默窗口的默认秒数。
	DefaultSettleSeconds = 5
)

// CLIArgs 只包含 CLI 暴露的入口（path/dest/apply），并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --apply=false 必须能覆盖 config.apply=true。
type CLIArgs struct {
	Path string

	Dest    string
	DestSet bool

	Apply    bool
	ApplySet bool
}

// FileConfig 对应 takeoutfix.toml 的解析结构。
type FileConfig struct {
	Path          string   `toml:"path"`
	Dest          string   `toml:"dest"`
	Apply         *bool    `toml:"apply"`
	TruncateLen   int      `toml:"truncate_len"`
	ExcludeDirs   []string `toml:"exclude_dirs"`
	ExifToolBin   string   `toml:"exiftool_bin"`
	SettleSeconds int      `toml:"settle_seconds"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	Path string
	Dest string // 空串表示“原地写标签，不移动”

	Apply bool

	TruncateLen   int
	ExcludeDirs   []string
	ExifToolBin   string
	SettleSeconds int
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 按约定发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 path：尝试读取 <path>/takeoutfix.toml（可选）
// 2) CLI 未提供 path：必须读取 <cwd>/takeoutfix.toml（必选），且其中必须包含 path
//
// 覆盖优先级（固定）：
// - path：CLI path > config path
// - dest：CLI --dest > config dest > 默认空（不移动）；--dest="" 可显式关掉 config 的 dest
// - apply：CLI --apply/--apply=false > config > 默认 false（dry-run）
// - 其他字段：仅由 config 控制（CLI 不暴露）
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.Path) != "" {
		// CLI 给了 path：配置文件可选，位置固定在 <path>/takeoutfix.toml。
		absPath := absCleanFrom(cwdAbs, cli.Path)
		cfgPath := filepath.Join(absPath, FileName)

		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		// 不存在也不报错。
		return merge(cwdAbs, absPath, cli, fc, cfgPath)
	}

	// CLI 没给 path：必须读取 <cwd>/takeoutfix.toml，且其中必须包含 path。
	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if strings.TrimSpace(fc.Path) == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}

	absPath := absCleanFrom(cwdAbs, fc.Path)
	return merge(cwdAbs, absPath, cli, fc, cfgPath)
}

func merge(cwdAbs, absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// dest：CLI > config > 默认空。相对路径以 cwd 为基准。
	dest := ""
	if cli.DestSet {
		dest = strings.TrimSpace(cli.Dest)
	} else if strings.TrimSpace(fc.Dest) != "" {
		dest = fc.Dest
	}
	if dest != "" {
		dest = absCleanFrom(cwdAbs, dest)
	}

	// apply：CLI > config > 默认 false。
	apply := false
	if cli.ApplySet {
		apply = cli.Apply
	} else if fc.Apply != nil {
		apply = *fc.Apply
	}

	truncLen := fc.TruncateLen
	if truncLen == 0 {
		truncLen = DefaultTruncateLen
	}
	if truncLen < 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("truncate_len 不能为负：%d", fc.TruncateLen)}
	}

	bin := strings.TrimSpace(fc.ExifToolBin)
	if bin == "" {
		bin = DefaultExifToolBin
	}

	settle := fc.SettleSeconds
	if settle == 0 {
		settle = DefaultSettleSeconds
	}
	// 约定范围 [1, 300]；超出截断。
	if settle < 1 {
		settle = 1
	}
	if settle > 300 {
		settle = 300
	}

	return EffectiveConfig{
		Path:          absPath,
		Dest:          dest,
		Apply:         apply,
		TruncateLen:   truncLen,
		ExcludeDirs:   append([]string(nil), fc.ExcludeDirs...),
		ExifToolBin:   bin,
		SettleSeconds: settle,
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
// - p 若已是绝对路径：直接 Clean
// - p 若是相对路径：Join(base, p) 后 Clean
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
