package dto

// SubmitResponse 提交分析的响应
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobView 当前任务视图
type JobView struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	FileName    string `json:"file_name"`
	SubmittedAt string `json:"submitted_at,omitempty"`
}

// StageView 流水线单个阶段
type StageView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// ScoreView 校准后的风险评分
type ScoreView struct {
	Percent  int    `json:"percent"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// ResultView 分析结果视图
type ResultView struct {
	JobID       string   `json:"job_id"`
	Label       string   `json:"label"`
	Score       float64  `json:"score"`
	HeatmapURL  string   `json:"heatmap_url,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Regions     []string `json:"regions,omitempty"`
	Uncertainty string   `json:"uncertainty,omitempty"`
}

// ExplanationView 解释文本流的当前快照
type ExplanationView struct {
	Revealed string `json:"revealed"`
	Done     bool   `json:"done"`
}

// HistoryItem 历史列表条目
type HistoryItem struct {
	ID         int64   `json:"id"`
	JobID      string  `json:"job_id"`
	FileName   string  `json:"file_name"`
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	ArchiveURL string  `json:"archive_url,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// DashboardView 每次读取组合出的只读视图模型
type DashboardView struct {
	Job         *JobView        `json:"job,omitempty"`
	Result      *ResultView     `json:"result,omitempty"`
	Stages      []StageView     `json:"stages"`
	ScoreView   *ScoreView      `json:"score_view,omitempty"`
	Explanation ExplanationView `json:"explanation"`
	History     []HistoryItem   `json:"history_items"`
}
