package score

import (
	"errors"
	"math"

	"github.com/trustguard/forensic_server/internal/model"
)

// DefaultBoundary 标定脚本得出的 REAL 95 分位概率边界
const DefaultBoundary = 0.8926

// 评分档位
const (
	CategoryAuthentic  = "AUTHENTIC"
	CategorySuspicious = "SUSPICIOUS"
	CategorySynthetic  = "SYNTHETIC"
)

// 档位对应的固定颜色标记
var categoryColors = map[string]string{
	CategoryAuthentic:  "#10b981",
	CategorySuspicious: "#facc15",
	CategorySynthetic:  "#ef4444",
}

var ErrInvalidBoundary = errors.New("标定边界必须在 (0,1) 开区间内")

// View 校准后的评分视图，纯派生值，不可就地修改
type View struct {
	Percent  int    `json:"percent"`
	Category string `json:"category"`
	Color    string `json:"color"`
}

// Interpreter 把原始概率和粗粒度标签映射为可解读的百分比。
// 边界合法性在构造时校验一次，Interpret 内不再做除零检查。
type Interpreter struct {
	boundary float64
}

func NewInterpreter(boundary float64) (*Interpreter, error) {
	if boundary <= 0 || boundary >= 1 {
		return nil, ErrInvalidBoundary
	}
	return &Interpreter{boundary: boundary}, nil
}

// NewDefaultInterpreter 使用标定常量构造，常量已知合法
func NewDefaultInterpreter() *Interpreter {
	i, _ := NewInterpreter(DefaultBoundary)
	return i
}

// Interpret 对 (rawScore, label) 的确定性全映射。
// REAL 标签配高分是模型内部分歧的信号，固定显示 50%/SUSPICIOUS，
// 不得当作高置信真实结果展示。阈值 0.5 与输出 50 不得改动。
func (i *Interpreter) Interpret(rawScore float64, label string) View {
	s := clamp01(rawScore)

	if label == model.LabelReal {
		if s > 0.5 {
			return View{
				Percent:  50,
				Category: CategorySuspicious,
				Color:    categoryColors[CategorySuspicious],
			}
		}
		safety := (i.boundary - s) / i.boundary
		return View{
			Percent:  roundPercent(safety),
			Category: CategoryAuthentic,
			Color:    categoryColors[CategoryAuthentic],
		}
	}

	danger := (s - i.boundary) / (1 - i.boundary)
	return View{
		Percent:  roundPercent(danger),
		Category: CategorySynthetic,
		Color:    categoryColors[CategorySynthetic],
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func roundPercent(fraction float64) int {
	p := int(math.Round(math.Max(0, fraction*100)))
	if p > 100 {
		p = 100
	}
	return p
}
