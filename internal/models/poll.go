package models

import "time"

const (
	QuestionTextMaxLen = 200
	ChoiceTextMaxLen   = 200
)

// Question is a poll. TotalVotes mirrors the number of rows in question_voters.
type Question struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	QuestionText string    `gorm:"size:200;not null" json:"question_text"`
	PubDate      time.Time `gorm:"not null;index" json:"pub_date"`
	TotalVotes   int       `gorm:"not null;default:0" json:"total_votes"`
	Choices      []Choice  `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"choices,omitempty"`
	Voters       []User    `gorm:"many2many:question_voters;constraint:OnDelete:CASCADE" json:"-"`
}

// WasPublishedRecently reports whether the question was published within the day before now.
// Future publication dates are not recent.
func (q *Question) WasPublishedRecently(now time.Time) bool {
	return !q.PubDate.After(now) && !q.PubDate.Before(now.Add(-24*time.Hour))
}

func (q *Question) String() string {
	return q.QuestionText
}

// Choice is one answer option of a question.
type Choice struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	ChoiceText string `gorm:"size:200;not null" json:"choice_text"`
	Votes      int    `gorm:"not null;default:0" json:"votes"`
}

func (c *Choice) String() string {
	return c.ChoiceText
}

// Percent returns the share of total votes this choice received, rounded down.
func (c *Choice) Percent(total int) int {
	if total <= 0 {
		return 0
	}
	return c.Votes * 100 / total
}

// QuestionVoter is the join row recording that a user voted on a question.
// The composite primary key allows a single vote per user and question.
type QuestionVoter struct {
	QuestionID uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID     uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for QuestionVoter.
func (QuestionVoter) TableName() string {
	return "question_voters"
}
