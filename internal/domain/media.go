package domain

// MediaFile 描述一次扫描得到的媒体文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - Dir/Name 是 AbsPath 的拆分缓存，避免逐文件处理时反复做 filepath 计算
// - 发现之后不可变；只有归档移动（成功的 rename）会让它消失
type MediaFile struct {
	AbsPath string
	RelPath string
	Dir     string // 父目录（绝对路径）；sidecar 只会在同一目录里找
	Name    string // 完整文件名（含扩展名，保留原始大小写）
	Ext     string // ".jpg"（已小写）
	Size    int64
}
