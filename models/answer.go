package models

import "time"

// Answer is a reply attached to exactly one Question.
type Answer struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreateDate time.Time  `gorm:"index;not null" json:"create_date"`
	ModifyDate *time.Time `json:"modify_date"`
	QuestionID uint       `gorm:"index;not null" json:"question_id"`
	AuthorID   *uint      `gorm:"index" json:"author_id"`
	Author     *User      `json:"author,omitempty"`
	Voters     []User     `gorm:"many2many:answer_voters;" json:"-"`
}

// IsAuthoredBy reports whether username owns the answer.
func (a *Answer) IsAuthoredBy(username string) bool {
	return a.Author != nil && username != "" && a.Author.Username == username
}
