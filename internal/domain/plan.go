package domain

// MovePlan 描述一次归档移动（只描述 src/dst；真正执行必须遵守“移动是最后一步”）。
type MovePlan struct {
	SrcAbs string
	DstAbs string
}
