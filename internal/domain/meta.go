package domain

// TakenAtLayout 是拍摄时间的对外文本格式（exiftool 期望的形态）。
const TakenAtLayout = "2006:01:02 15:04:05"

// PhotoMeta 是从 sidecar 解析得到的规范化元数据（最小可用集）。
//
// 约束：
// - TakenAt 为空表示“没有拍摄时间”：整条记录不可用，禁止写标签、禁止移动
// - GPS 字段只有在 GPSUsable() 为 true 时才允许写出
// - Altitude 只随可用的经纬度一起出现才有意义
type PhotoMeta struct {
	TakenAt string // "YYYY:MM:DD HH:MM:SS"，本地时区

	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Usable 判断这条元数据是否足以驱动后续处理。
func (m PhotoMeta) Usable() bool { return m.TakenAt != "" }

// GPSUsable 判断经纬度是否允许写出为 GPS 标签。
//
// 沿用导出数据的既有语义：纬度或经度任一为 0 都视为“未记录位置”哨兵。
// 这会连带丢弃赤道/本初子午线上的真实坐标（例如 (0, 45)）——已知近似，
// 刻意保留，下游可能依赖该行为。
func (m PhotoMeta) GPSUsable() bool {
	return m.Latitude != 0 && m.Longitude != 0
}
