package insights

import (
	"time"

	"github.com/studieren/mindjournal/models"
)

type Day struct {
	Date        time.Time               `json:"date"`
	AverageMood *float64                `json:"averageMood,omitempty"`
	Reflections []models.ReflectionView `json:"reflections"`
}

type Week struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  []Day     `json:"days"`
}

// WeekBounds 返回 anchor 所在周的周一和周日
func WeekBounds(anchor time.Time) (time.Time, time.Time) {
	day := models.NormalizeDate(anchor)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// BuildWeek 把日记按天分组，落在这周之外的忽略
func BuildWeek(anchor time.Time, rs []models.ReflectionView) Week {
	start, end := WeekBounds(anchor)
	w := Week{Start: start, End: end, Days: make([]Day, 7)}
	for i := range w.Days {
		w.Days[i] = Day{Date: start.AddDate(0, 0, i), Reflections: []models.ReflectionView{}}
	}

	for _, r := range rs {
		d := models.NormalizeDate(r.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		idx := int(d.Sub(start).Hours() / 24)
		w.Days[idx].Reflections = append(w.Days[idx].Reflections, r)
	}

	for i := range w.Days {
		var scores []float64
		for _, r := range w.Days[i].Reflections {
			if v, ok := MoodScore(r.Mood); ok {
				scores = append(scores, v)
			}
		}
		if len(scores) > 0 {
			avg := round(mean(scores), 2)
			w.Days[i].AverageMood = &avg
		}
	}
	return w
}
