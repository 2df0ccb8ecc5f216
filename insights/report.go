package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/studieren/mindjournal/models"
)

const (
	DefaultMinSamples = 2
	gapDays           = 3
	lowMoodThreshold  = 2.5
	tagDeltaThreshold = 0.5
	streakMilestone   = 7
)

type Options struct {
	// MinSamples 标签至少出现在多少条有评分的日记里才参与相关性计算
	MinSamples int
}

type Summary struct {
	Entries       int        `json:"entries"`
	Scored        int        `json:"scored"`
	AverageMood   float64    `json:"averageMood"`
	CurrentStreak int        `json:"currentStreak"`
	LongestStreak int        `json:"longestStreak"`
	TopMood       string     `json:"topMood,omitempty"`
	LastEntry     *time.Time `json:"lastEntry,omitempty"`
}

type TagCorrelation struct {
	Tag         string  `json:"tag"`
	Count       int     `json:"count"`
	AverageMood float64 `json:"averageMood"`
	Delta       float64 `json:"delta"`
	Correlation float64 `json:"correlation"`
}

type Tip struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

type Report struct {
	Summary Summary          `json:"summary"`
	Tags    []TagCorrelation `json:"tags"`
	Tips    []Tip            `json:"tips"`
}

// Analyze now 用来计算连续天数和中断天数
func Analyze(rs []models.ReflectionView, now time.Time, opts Options) Report {
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}

	report := Report{
		Summary: summarize(rs, now),
		Tags:    correlate(rs, opts.MinSamples),
	}
	report.Tips = tips(report, now)
	return report
}

func summarize(rs []models.ReflectionView, now time.Time) Summary {
	s := Summary{Entries: len(rs)}
	var scores []float64
	moodCounts := map[string]int{}
	days := map[time.Time]bool{}
	for _, r := range rs {
		if v, ok := MoodScore(r.Mood); ok {
			scores = append(scores, v)
		}
		moodCounts[r.Mood]++
		d := models.NormalizeDate(r.Date)
		days[d] = true
		if s.LastEntry == nil || d.After(*s.LastEntry) {
			last := d
			s.LastEntry = &last
		}
	}
	s.Scored = len(scores)
	s.AverageMood = round(mean(scores), 2)

	best := 0
	for mood, n := range moodCounts {
		if n > best || (n == best && mood < s.TopMood) {
			best, s.TopMood = n, mood
		}
	}

	s.CurrentStreak = currentStreak(days, now)
	s.LongestStreak = longestStreak(days)
	return s
}

// currentStreak 以今天结尾；今天还没写的话从昨天算起
func currentStreak(days map[time.Time]bool, now time.Time) int {
	day := models.NormalizeDate(now)
	if !days[day] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for days[day] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

func longestStreak(days map[time.Time]bool) int {
	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 0, 0
	for i, d := range sorted {
		if i > 0 && sorted[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func correlate(rs []models.ReflectionView, minSamples int) []TagCorrelation {
	type scored struct {
		score float64
		tags  map[string]bool
	}
	var entries []scored
	counts := map[string]int{}
	for _, r := range rs {
		set := make(map[string]bool, len(r.Tags))
		for _, t := range r.Tags {
			set[t] = true
		}
		for t := range set {
			counts[t]++
		}
		if v, ok := MoodScore(r.Mood); ok {
			entries = append(entries, scored{score: v, tags: set})
		}
	}
	if len(entries) == 0 {
		return []TagCorrelation{}
	}

	ys := make([]float64, len(entries))
	for i, e := range entries {
		ys[i] = e.score
	}
	overall := mean(ys)

	out := []TagCorrelation{}
	for tag, count := range counts {
		xs := make([]float64, len(entries))
		var with []float64
		for i, e := range entries {
			if e.tags[tag] {
				xs[i] = 1
				with = append(with, e.score)
			}
		}
		if len(with) < minSamples {
			continue
		}
		avg := mean(with)
		out = append(out, TagCorrelation{
			Tag:         tag,
			Count:       count,
			AverageMood: round(avg, 2),
			Delta:       round(avg-overall, 2),
			Correlation: round(pearson(xs, ys), 3),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Correlation), math.Abs(out[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

func tips(r Report, now time.Time) []Tip {
	s := r.Summary
	out := []Tip{}
	if s.Entries == 0 {
		return append(out, Tip{
			Kind:    "start",
			Title:   "Start your journal",
			Message: "Write your first reflection to start seeing patterns in your mood.",
		})
	}

	if s.LastEntry != nil {
		gap := int(models.NormalizeDate(now).Sub(*s.LastEntry).Hours() / 24)
		if gap >= gapDays {
			out = append(out, Tip{
				Kind:    "gap",
				Title:   "Welcome back",
				Message: fmt.Sprintf("It has been %d days since your last reflection. A few lines today is enough.", gap),
			})
		}
	}

	if s.Scored >= 3 && s.AverageMood < lowMoodThreshold {
		out = append(out, Tip{
			Kind:    "support",
			Title:   "Be gentle with yourself",
			Message: "Your recent moods have been low. Consider reaching out to someone you trust or a mental-health professional.",
		})
	}

	var worst, best *TagCorrelation
	for i := range r.Tags {
		t := &r.Tags[i]
		if t.Delta <= -tagDeltaThreshold && (worst == nil || t.Delta < worst.Delta) {
			worst = t
		}
		if t.Delta >= tagDeltaThreshold && (best == nil || t.Delta > best.Delta) {
			best = t
		}
	}
	if worst != nil {
		out = append(out, Tip{
			Kind:    "trigger",
			Title:   fmt.Sprintf("Watch out for %q", worst.Tag),
			Message: fmt.Sprintf("Days tagged %q average %.1f compared to %.1f overall. Planning some recovery time around it may help.", worst.Tag, worst.AverageMood, s.AverageMood),
			Tag:     worst.Tag,
		})
	}
	if best != nil {
		out = append(out, Tip{
			Kind:    "booster",
			Title:   fmt.Sprintf("%q lifts your mood", best.Tag),
			Message: fmt.Sprintf("Days tagged %q average %.1f compared to %.1f overall. Try to make room for it this week.", best.Tag, best.AverageMood, s.AverageMood),
			Tag:     best.Tag,
		})
	}

	if s.CurrentStreak >= streakMilestone {
		out = append(out, Tip{
			Kind:    "streak",
			Title:   "Keep it going",
			Message: fmt.Sprintf("You have reflected %d days in a row.", s.CurrentStreak),
		})
	}
	return out
}
