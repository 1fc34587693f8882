package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Path:       "/abs/path",
		DryRun:     true,
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Src: "b/IMG_2.jpg", Status: StatusSkipped},
			{Src: "", Status: StatusFailed}, // config/input 等合成项
			{Src: "a/IMG_1.jpg", Status: StatusProcessed},
			{Src: "c/IMG_3.jpg", Status: StatusUnresolved},
		},
	}

	r.Finalize()

	// src=="" 必须排在最后；其余按字典序。
	order := []string{r.Items[0].Src, r.Items[1].Src, r.Items[2].Src, r.Items[3].Src}
	if order[0] != "a/IMG_1.jpg" || order[1] != "b/IMG_2.jpg" || order[2] != "c/IMG_3.jpg" || order[3] != "" {
		t.Fatalf("items 排序不符合契约：%v", order)
	}
	if r.Summary.Processed != 1 || r.Summary.Skipped != 1 || r.Summary.Failed != 1 || r.Summary.Unresolved != 1 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	// time.Time 在 UTC 下应输出 'Z' 后缀。
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestPhotoMeta_GPSUsable_ZeroSentinel(t *testing.T) {
	cases := []struct {
		name string
		meta PhotoMeta
		want bool
	}{
		{"两者都为零", PhotoMeta{Latitude: 0, Longitude: 0}, false},
		{"纬度为零", PhotoMeta{Latitude: 0, Longitude: 45}, false}, // 赤道真实坐标也被哨兵丢弃（刻意保留）
		{"经度为零", PhotoMeta{Latitude: 45, Longitude: 0}, false},
		{"正常坐标", PhotoMeta{Latitude: 35.6, Longitude: 139.7}, true},
		{"负坐标", PhotoMeta{Latitude: -33.8, Longitude: -70.6}, true},
	}
	for _, c := range cases {
		if got := c.meta.GPSUsable(); got != c.want {
			t.Fatalf("%s：期望 %v，实际 %v", c.name, c.want, got)
		}
	}
}
