package model

// 分类标签，由远程服务返回
const (
	LabelReal       = "REAL"
	LabelFake       = "FAKE"
	LabelSuspicious = "SUSPICIOUS"
)

// ResultMetadata 可选的解释性数据，缺失时为零值，下游不得崩溃
type ResultMetadata struct {
	Reason      string   `json:"reason,omitempty"`
	Regions     []string `json:"regions,omitempty"`
	Uncertainty string   `json:"uncertainty,omitempty"`
}

// AnalysisResult 任务完成后附加的分析结果，每个 Job 至多一个，写入后不可变。
// Score 在 forensic 客户端边界处已被夹取到 [0,1]，Label 已归一化，
// 下游（score/reveal）可以假定输入合法。
type AnalysisResult struct {
	JobID         string         `json:"job_id"`
	Label         string         `json:"label"`
	Score         float64        `json:"score"`
	FacesDetected int            `json:"faces_detected,omitempty"`
	HeatmapURL    string         `json:"heatmap_url,omitempty"`
	Metadata      ResultMetadata `json:"metadata"`
}
