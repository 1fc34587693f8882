package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/John-Robertt/takeoutfix/internal/domain"
)

// sidecarDoc 只声明我们消费的字段；其余一律忽略。
// timestamp 在导出数据里既见过 JSON 字符串也见过数字，json.Number 两者都接。
type sidecarDoc struct {
	PhotoTakenTime struct {
		Timestamp json.Number `json:"timestamp"`
	} `json:"photoTakenTime"`
	GeoData struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Altitude  float64 `json:"altitude"`
	} `json:"geoData"`
}

// Extract 解析 sidecar 为规范化元数据。
//
// 错误语义：读取/解析失败返回 error，由上层降级为单文件失败（不中断整轮）。
// 字段缺失不是错误：timestamp 缺失时 TakenAt 留空（记录不可用，由上层判定），
// geoData 缺失时坐标保持零值（与“未记录位置”哨兵合流，见 PhotoMeta.GPSUsable）。
func Extract(path string) (domain.PhotoMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.PhotoMeta{}, fmt.Errorf("读取 sidecar 失败：%w", err)
	}

	var doc sidecarDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return domain.PhotoMeta{}, fmt.Errorf("解析 sidecar 失败：%w", err)
	}

	var meta domain.PhotoMeta

	if ts := strings.TrimSpace(doc.PhotoTakenTime.Timestamp.String()); ts != "" {
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return domain.PhotoMeta{}, fmt.Errorf("photoTakenTime.timestamp 无效：%q", ts)
		}
		// 本地时区：归档目录按用户所在时区的年月划分（与导出数据的既有消费方一致）。
		meta.TakenAt = time.Unix(sec, 0).Format(domain.TakenAtLayout)
	}

	meta.Latitude = doc.GeoData.Latitude
	meta.Longitude = doc.GeoData.Longitude
	meta.Altitude = doc.GeoData.Altitude

	return meta, nil
}
