package models

import "gorm.io/gorm"

// Attendance — отметка посещения студентом занятия по предмету.
// LessonSerialNumber — порядковый номер пары (1..32).
type Attendance struct {
	gorm.Model
	SubjectID          uint    `gorm:"not null;uniqueIndex:idx_attendance_lesson"`
	Subject            Subject `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
	StudentID          uint    `gorm:"not null;uniqueIndex:idx_attendance_lesson"`
	Student            User    `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	LessonSerialNumber int     `gorm:"not null;uniqueIndex:idx_attendance_lesson"`
	IsPresent          bool    `gorm:"not null;default:false"`
}
