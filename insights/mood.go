// Package insights 根据日记计算心情统计、标签相关性和建议
package insights

import (
	"math"
	"strconv"
	"strings"
)

// 心情统一映射到 1..5
var emojiScores = map[string]float64{
	"😭": 1, "😢": 1, "😞": 1,
	"😟": 2, "😔": 2, "🙁": 2, "😕": 2,
	"😐": 3, "😶": 3,
	"🙂": 4, "😌": 4,
	"😊": 5, "😄": 5, "😁": 5, "🤩": 5, "😃": 5,
}

var wordScores = map[string]float64{
	"awful": 1, "terrible": 1, "very bad": 1,
	"bad": 2, "sad": 2, "low": 2, "down": 2,
	"okay": 3, "ok": 3, "neutral": 3, "meh": 3, "fine": 3,
	"good": 4, "calm": 4,
	"great": 5, "amazing": 5, "happy": 5, "excellent": 5,
}

// MoodScore 数字字符串直接解析，表情和常见词按表映射；无法识别返回 false
func MoodScore(mood string) (float64, bool) {
	m := strings.TrimSpace(mood)
	if m == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(m, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v, true
	}
	// 去掉变体选择符，比如 "🙂️"
	m = strings.ReplaceAll(m, "\ufe0f", "")
	if v, ok := emojiScores[m]; ok {
		return v, true
	}
	if v, ok := wordScores[strings.ToLower(m)]; ok {
		return v, true
	}
	return 0, false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// pearson 任一变量方差为 0 时返回 0
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
