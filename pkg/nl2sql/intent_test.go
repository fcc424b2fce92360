package nl2sql

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want QueryIntent
	}{
		{name: "chinese nearby", text: "查询坐标120.5,30.2附近500米的建筑", want: IntentNearby},
		{name: "chinese nearby zhouwei", text: "周围有哪些商店", want: IntentNearby},
		{name: "english nearby", text: "find schools near the station", want: IntentNearby},
		{name: "english within", text: "hospitals within 2km", want: IntentNearby},
		{name: "english around", text: "shops around this point", want: IntentNearby},
		{name: "chinese buffer", text: "为表:roads创建100米缓冲区", want: IntentBuffer},
		{name: "english buffer", text: "build a 50m buffer for rivers", want: IntentBuffer},
		{name: "chinese area", text: "计算各地块的面积", want: IntentArea},
		{name: "chinese area daxiao", text: "这些区域的大小是多少", want: IntentArea},
		{name: "english area", text: "what is the area of each parcel", want: IntentArea},
		{name: "chinese count", text: "统计表:buildings的数量", want: IntentCount},
		{name: "english count", text: "count the features in parks", want: IntentCount},
		{name: "english how many", text: "how many buildings are there", want: IntentCount},
		{name: "unrecognized", text: "找一下数据", want: IntentUnrecognized},
		{name: "empty", text: "", want: IntentUnrecognized},
		{name: "near not matched inside linear", text: "show linear features", want: IntentUnrecognized},
		{name: "case insensitive", text: "COUNT the rows", want: IntentCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

// TestClassify_Priority pins the rule order: a query carrying vocabulary
// for two intents must classify as the higher-priority one. Reordering the
// rules is a behavior change and must show up here.
func TestClassify_Priority(t *testing.T) {
	tests := []struct {
		name string
		text string
		want QueryIntent
	}{
		{name: "nearby beats buffer", text: "buffer zones near the river", want: IntentNearby},
		{name: "nearby beats area", text: "area of parcels within 1km", want: IntentNearby},
		{name: "nearby beats count", text: "count buildings nearby", want: IntentNearby},
		{name: "buffer beats area", text: "buffer area for roads", want: IntentBuffer},
		{name: "buffer beats count", text: "统计缓冲区数量", want: IntentBuffer},
		{name: "area beats count", text: "count parcels by area", want: IntentArea},
		{name: "chinese nearby beats buffer", text: "河流附近的缓冲区", want: IntentNearby},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
