package tagger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/John-Robertt/takeoutfix/internal/domain"
)

// DefaultBin 是外部写标签工具的默认可执行名。
const DefaultBin = "exiftool"

// Writer 是“把一组标签赋值写进媒体文件”的最小能力接口。
//
// 约束：
// - args 由 BuildArgs 生成（纯函数），测试可用 fake 实现断言精确的标签集
// - 失败必须带可读的诊断文本；上层把失败降级为单文件跳过，不中断整轮
type Writer interface {
	Apply(ctx context.Context, path string, args []string) error
}

// BuildArgs 把规范化元数据映射为标签赋值参数（不含文件路径与全局开关）。
//
// 调用方必须先用 PhotoMeta.Usable() 把关：没有拍摄时间的记录不允许走到这里。
// GPS 标签遵守零值哨兵（见 PhotoMeta.GPSUsable）；海拔只随可用坐标写出，且 0 不写。
func BuildArgs(meta domain.PhotoMeta) []string {
	args := []string{
		"-DateTimeOriginal=" + meta.TakenAt,
		"-CreateDate=" + meta.TakenAt,
		"-ModifyDate=" + meta.TakenAt,
	}

	if meta.GPSUsable() {
		lat := formatCoord(meta.Latitude)
		lon := formatCoord(meta.Longitude)
		args = append(args,
			"-GPSLatitude="+lat,
			"-GPSLongitude="+lon,
			// Ref 直接给带符号数值：exiftool 会自行归一化为 N/S、E/W。
			"-GPSLatitudeRef="+lat,
			"-GPSLongitudeRef="+lon,
		)
		if meta.Altitude != 0 {
			args = append(args, "-GPSAltitude="+formatCoord(meta.Altitude))
		}
	}

	return args
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ExifTool 通过子进程调用 exiftool，把标签就地写入媒体文件。
//
// 阻塞调用、无超时：工具只处理本地文件，卡死意味着环境本身已坏，
// 由外部终止整个进程（契约如此，不做部分回滚）。
type ExifTool struct {
	Bin string // 空串时用 DefaultBin
}

var _ Writer = ExifTool{}

func (t ExifTool) bin() string {
	if strings.TrimSpace(t.Bin) == "" {
		return DefaultBin
	}
	return t.Bin
}

// Preflight 校验外部工具是否可用。apply 模式启动前调用，避免处理到一半才发现缺工具。
func (t ExifTool) Preflight() error {
	if _, err := exec.LookPath(t.bin()); err != nil {
		return fmt.Errorf("找不到写标签工具 %q：%w；请安装 exiftool 并确认在 PATH 中", t.bin(), err)
	}
	return nil
}

func (t ExifTool) Apply(ctx context.Context, path string, args []string) error {
	full := make([]string, 0, len(args)+2)
	full = append(full, "-overwrite_original")
	full = append(full, args...)
	full = append(full, path)

	cmd := exec.CommandContext(ctx, t.bin(), full...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// exiftool 的诊断都在 stderr；有就原样带上（比 exit status 1 有用得多）。
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("exiftool 失败：%s", msg)
		}
		return fmt.Errorf("exiftool 失败：%w", err)
	}
	return nil
}
