package models

import (
	"time"

	"github.com/google/uuid"
)

// Meal is a single logged food item with its AI-estimated nutrition.
type Meal struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	UserID      int64     `db:"user_id"      json:"user_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	WeightGrams *float64  `db:"weight_grams" json:"weight_grams,omitempty"`
	Calories    float64   `db:"calories"     json:"calories"`
	Protein     float64   `db:"protein"      json:"protein"`
	Fat         float64   `db:"fat"          json:"fat"`
	Carbs       float64   `db:"carbs"        json:"carbs"`
	FromPhoto   bool      `db:"from_photo"   json:"from_photo"`
	EatenAt     time.Time `db:"eaten_at"     json:"eaten_at"`
}

// DailySummary aggregates one user's meals for a calendar day.
type DailySummary struct {
	Date          string  `json:"date"`
	TotalCalories float64 `json:"total_calories"`
	TotalProtein  float64 `json:"total_protein"`
	TotalFat      float64 `json:"total_fat"`
	TotalCarbs    float64 `json:"total_carbs"`
	MealCount     int     `json:"meal_count"`
}
