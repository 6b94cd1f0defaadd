package models

import "time"

// Question is a board thread. Author is nil for legacy rows without an owner.
type Question struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Subject    string     `gorm:"size:200;not null" json:"subject"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreateDate time.Time  `gorm:"index;not null" json:"create_date"`
	ModifyDate *time.Time `json:"modify_date"`
	AuthorID   *uint      `gorm:"index" json:"author_id"`
	Author     *User      `json:"author,omitempty"`
	Answers    []Answer   `json:"answers"`
	Voters     []User     `gorm:"many2many:question_voters;" json:"-"`
}

// IsAuthoredBy reports whether username owns the question.
func (q *Question) IsAuthoredBy(username string) bool {
	return q.Author != nil && username != "" && q.Author.Username == username
}
