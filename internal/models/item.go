package models

import "time"

// Item is the catalog view the booking engine needs: who owns it and what it costs.
type Item struct {
	ID          string    `yaml:"id" json:"id"`
	OwnerID     string    `yaml:"owner_id" json:"owner_id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description,omitempty"`
	DailyRate   int64     `yaml:"daily_rate" json:"daily_rate"`
	WeeklyRate  *int64    `yaml:"weekly_rate" json:"weekly_rate,omitempty"`
	MonthlyRate *int64    `yaml:"monthly_rate" json:"monthly_rate,omitempty"`
	IsActive    bool      `yaml:"is_active" json:"is_active"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}
