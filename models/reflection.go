package models

import "time"

// DateLayout 日期参数的格式
const DateLayout = "2006-01-02"

// Reflection 某个用户某一天的日记
type Reflection struct {
	ID        uint      `gorm:"primarykey"`
	UserID    string    `gorm:"index;not null;size:191"`
	User      *User     `gorm:"foreignKey:UserID;references:ID"`
	Date      time.Time `gorm:"index;not null"`
	Mood      string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Tags []ReflectionTag `gorm:"foreignKey:ReflectionID;constraint:OnDelete:CASCADE"`
}

func (Reflection) TableName() string { return "reflections" }

// ReflectionTag 日记与标签的关联。自增 ID 决定标签顺序，同一标签允许出现多次
type ReflectionTag struct {
	ID           uint `gorm:"primarykey"`
	ReflectionID uint `gorm:"index;not null"`
	TagID        uint `gorm:"index;not null"`
	Tag          Tag  `gorm:"foreignKey:TagID"`
}

func (ReflectionTag) TableName() string { return "reflection_tags" }

// ReflectionView 对外返回的日记，标签已展平为名称列表
type ReflectionView struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`
	Mood      string    `json:"mood"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Flatten 把关联表展开成标签名列表，顺序与关联顺序一致
func (r *Reflection) Flatten() ReflectionView {
	tags := make([]string, 0, len(r.Tags))
	for _, rt := range r.Tags {
		tags = append(tags, rt.Tag.Name)
	}
	return ReflectionView{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      r.Date,
		Mood:      r.Mood,
		Content:   r.Content,
		Tags:      tags,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// FlattenAll 批量展平
func FlattenAll(rs []Reflection) []ReflectionView {
	out := make([]ReflectionView, 0, len(rs))
	for i := range rs {
		out = append(out, rs[i].Flatten())
	}
	return out
}

// NormalizeDate 截断到 UTC 零点
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate 接受 YYYY-MM-DD 或 RFC3339
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return NormalizeDate(t), nil
}
