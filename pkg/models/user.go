package models

import "time"

// DefaultDailyCalorieTarget is assigned to new users until they set their own.
const DefaultDailyCalorieTarget = 2000

// User is a messaging-platform identity. The ID is the platform user id
// (Telegram numeric id), not a generated value.
type User struct {
	ID                 int64     `db:"id"                   json:"id"`
	Username           string    `db:"username"             json:"username"`
	FirstName          string    `db:"first_name"           json:"first_name"`
	DailyCalorieTarget int       `db:"daily_calorie_target" json:"daily_calorie_target"`
	CreatedAt          time.Time `db:"created_at"           json:"created_at"`
}
