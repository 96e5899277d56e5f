package models

import (
	"time"
)

// AdviceRecord is the persisted output of one weekly aggregation for one
// user. At most one exists per (UserID, WeekOf); it is never mutated.
type AdviceRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	WeekOf    time.Time `json:"week_of"`
	CreatedAt time.Time `json:"created_at"`
}
