package forensic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/model"
)

var (
	// ErrUploadFailed 提交失败，本次提交终止，需要用户重试
	ErrUploadFailed = errors.New("上传媒体到取证服务失败")
	// ErrJobNotFound 存活任务被服务端报告不存在，按终态失败处理
	ErrJobNotFound = errors.New("取证服务找不到该任务")
)

// TransientError 单次轮询的瞬时故障，下一个 tick 重试，不是终态
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("轮询瞬时失败: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient 判断是否可静默重试
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// StatusDocument 远程服务返回的任务状态文档。
// score/label/metadata 均不保证存在，归一化在 ToResult 中做一次。
type StatusDocument struct {
	JobID         string         `json:"job_id"`
	Status        string         `json:"status"`
	Score         *float64       `json:"score"`
	Label         string         `json:"label"`
	FacesDetected int            `json:"faces_detected"`
	HeatmapURL    string         `json:"heatmap_url"`
	Error         string         `json:"error"`
	Metadata      StatusMetadata `json:"metadata"`
}

// StatusMetadata 状态文档内的原始元数据，字段均为可选
type StatusMetadata struct {
	Reason      string      `json:"reason"`
	Regions     []string    `json:"regions"`
	Uncertainty interface{} `json:"uncertainty"` // 服务端有时给字符串有时给数字
}

// Client 远程取证分析服务的 HTTP 客户端
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(cfg *config.ForensicConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		http: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
	}
}

// Upload 提交媒体，成功返回服务端分配的任务 ID
// POST {endpoint}/analyze (multipart)
func (c *Client) Upload(ctx context.Context, filename string, media io.Reader) (string, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, media); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", pr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %s", ErrUploadFailed, resp.Status)
	}

	var body struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if body.JobID == "" {
		return "", fmt.Errorf("%w: response missing job_id", ErrUploadFailed)
	}

	return body.JobID, nil
}

// GetStatus 查询任务状态
// GET {endpoint}/status/{job_id}
func (c *Client) GetStatus(ctx context.Context, jobID string) (*StatusDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/status/"+jobID, nil)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	c.setAuth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	// 存活任务返回 404 属于协议违约，按终态失败处理
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrJobNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransientError{Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var doc StatusDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, &TransientError{Err: fmt.Errorf("decode status: %w", err)}
	}
	if doc.JobID == "" {
		doc.JobID = jobID
	}

	return &doc, nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// ToResult 在客户端边界做一次性归一化：分数夹取到 [0,1]，
// 缺失或未知的标签降级为 SUSPICIOUS，元数据缺失给零值。
// 畸形字段只记日志，不让下游崩溃。
func (doc *StatusDocument) ToResult() *model.AnalysisResult {
	score := 0.0
	if doc.Score != nil {
		score = *doc.Score
	} else {
		log.Printf("Job %s: completed without score, defaulting to 0", doc.JobID)
	}
	if score < 0 || score > 1 {
		log.Printf("Job %s: score %.4f outside [0,1], clamping", doc.JobID, score)
		if score < 0 {
			score = 0
		} else {
			score = 1
		}
	}

	label := doc.Label
	switch label {
	case model.LabelReal, model.LabelFake, model.LabelSuspicious:
	default:
		log.Printf("Job %s: missing or unknown label %q, defaulting to SUSPICIOUS", doc.JobID, doc.Label)
		label = model.LabelSuspicious
	}

	return &model.AnalysisResult{
		JobID:         doc.JobID,
		Label:         label,
		Score:         score,
		FacesDetected: doc.FacesDetected,
		HeatmapURL:    doc.HeatmapURL,
		Metadata: model.ResultMetadata{
			Reason:      doc.Metadata.Reason,
			Regions:     doc.Metadata.Regions,
			Uncertainty: stringifyUncertainty(doc.Metadata.Uncertainty),
		},
	}
}

func stringifyUncertainty(v interface{}) string {
	switch u := v.(type) {
	case nil:
		return ""
	case string:
		return u
	case float64:
		return fmt.Sprintf("%.4f", u)
	default:
		return fmt.Sprintf("%v", u)
	}
}
