package models

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username       string `gorm:"uniqueIndex;size:150;not null"`
	FirstName      string `gorm:"not null"`
	LastName       string `gorm:"not null"`
	PasswordHash   string `gorm:"not null"`
	PersonalCipher string `gorm:"uniqueIndex;size:16;not null"` // Личный шифр студента (короткий уникальный код)
	Role           Role   `gorm:"not null;default:1"`
}

// FullName возвращает полное имя для выдачи в списках очереди.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type Subject struct {
	gorm.Model
	Title  string `gorm:"uniqueIndex;size:128;not null"` // Название предмета
	Slug   string `gorm:"uniqueIndex;size:40;not null"`  // URL-идентификатор, пересчитывается из названия
	IsOpen bool   `gorm:"not null"`                      // Открыта ли запись в очередь
}

// BeforeSave пересчитывает slug из названия при каждом сохранении.
// Кириллица транслитерируется в ASCII, поэтому slug всегда валиден для URL.
func (s *Subject) BeforeSave(tx *gorm.DB) error {
	s.Slug = slug.Make(s.Title)
	return nil
}

type QueueEntry struct {
	gorm.Model
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_queue_subject_user"`
	Subject   Subject   `gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_queue_subject_user"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Timestamp time.Time `gorm:"autoCreateTime;index"` // Момент вступления в очередь, выставляется один раз
}
