package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Weekday is the day of a recurring trainer slot
type Weekday string

const (
	Monday    Weekday = "SENIN"
	Tuesday   Weekday = "SELASA"
	Wednesday Weekday = "RABU"
	Thursday  Weekday = "KAMIS"
	Friday    Weekday = "JUMAT"
	Saturday  Weekday = "SABTU"
	Sunday    Weekday = "MINGGU"
)

var weekdays = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// ParseWeekday accepts the stored names case-insensitively
func ParseWeekday(s string) (Weekday, bool) {
	d := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := weekdays[d]
	return d, ok
}

// WeekdayOf returns the slot day matching t
func WeekdayOf(t time.Time) Weekday {
	for d, wd := range weekdays {
		if wd == t.Weekday() {
			return d
		}
	}
	return ""
}

func (d Weekday) Valid() bool {
	_, ok := weekdays[d]
	return ok
}

// TrainerSlot is a weekly availability window of a personal trainer.
// A trainer cannot have two slots starting at the same time on the same day.
type TrainerSlot struct {
	gorm.Model
	TrainerID   uint    `gorm:"not null;uniqueIndex:idx_trainer_day_start" json:"trainer_id"`
	Trainer     *User   `gorm:"foreignKey:TrainerID" json:"trainer,omitempty"`
	Day         Weekday `gorm:"type:varchar(10);not null;uniqueIndex:idx_trainer_day_start" json:"day"`
	StartTime   string  `gorm:"type:varchar(5);not null;uniqueIndex:idx_trainer_day_start" json:"start_time"`
	EndTime     string  `gorm:"type:varchar(5);not null" json:"end_time"`
	IsAvailable bool    `gorm:"not null" json:"is_available"`
}

// SessionStatus tracks a booked personal training session
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionNoShow    SessionStatus = "no_show"
)

// PTSession is one booking of a trainer slot on a concrete date
type PTSession struct {
	gorm.Model
	MemberID    uint          `gorm:"not null;index" json:"member_id"`
	Member      *User         `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	TrainerID   uint          `gorm:"not null;uniqueIndex:idx_session_trainer_slot_date" json:"trainer_id"`
	SlotID      uint          `gorm:"not null;uniqueIndex:idx_session_trainer_slot_date" json:"slot_id"`
	Slot        *TrainerSlot  `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
	SessionDate time.Time     `gorm:"not null;uniqueIndex:idx_session_trainer_slot_date" json:"session_date"`
	Status      SessionStatus `gorm:"type:varchar(16);not null;default:scheduled" json:"status"`
	Notes       string        `json:"notes"`
}
