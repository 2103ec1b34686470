package models

import "gorm.io/gorm"

type Poll struct {
	gorm.Model
	Title   string   `gorm:"size:200;not null"`
	Choices []Choice `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
}

type Choice struct {
	gorm.Model
	PollID uint   `gorm:"index;not null"`
	Text   string `gorm:"size:200;not null"`
	Votes  int    `gorm:"not null;default:0"` // Денормализованный счётчик голосов
}

// Vote фиксирует голос пользователя. Уникальность по (poll_id, user_id)
// гарантирует один голос на опрос.
type Vote struct {
	gorm.Model
	PollID   uint   `gorm:"not null;uniqueIndex:idx_vote_poll_user"`
	Poll     Poll   `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	ChoiceID uint   `gorm:"index;not null"`
	Choice   Choice `gorm:"foreignKey:ChoiceID;constraint:OnDelete:CASCADE"`
	UserID   uint   `gorm:"not null;uniqueIndex:idx_vote_poll_user"`
	User     User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
