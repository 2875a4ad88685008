package models

import "time"

// Holiday marks a public holiday on which no lectures are logged.
type Holiday struct {
	ID          string    `db:"id" json:"id"`
	Date        time.Time `db:"holiday_date" json:"date"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HolidayRequest creates or updates a holiday. Date uses YYYY-MM-DD.
type HolidayRequest struct {
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}
