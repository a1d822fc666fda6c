package models

import (
	"time"

	"gorm.io/datatypes"
)

// DemoAccessLog is one trial session for a (user, content category)
// pair. Rows are appended, never merged; eligibility reads the most
// recent row only.
type DemoAccessLog struct {
	ID              string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID          string    `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_category,priority:1" json:"user_id"`
	ContentCategory string    `gorm:"column:content_category;type:varchar(64);not null;index:idx_user_category,priority:2" json:"content_category"`
	AccessDate      time.Time `gorm:"column:access_date;not null;index" json:"access_date"`
	// QuestionsAttempted is the session's running total, not a delta.
	QuestionsAttempted int            `gorm:"column:questions_attempted;not null" json:"questions_attempted"`
	TimeSpentMinutes   int            `gorm:"column:time_spent_minutes;default:0" json:"time_spent_minutes"`
	DeviceContext      datatypes.JSON `gorm:"column:device_context;type:jsonb;default:'{}'" json:"device_context"`
	Completed          bool           `gorm:"column:completed;default:false" json:"completed"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (DemoAccessLog) TableName() string {
	return "demo_access_logs"
}
