package entity

import "time"

type CourseContent struct {
	ID              uint64
	VideoID         int
	Title           string
	Description     string
	Duration        string
	Module          string
	VideoURL        string
	ReadingMaterial string
	UpdatedAt       time.Time
}
