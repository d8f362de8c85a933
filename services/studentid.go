package services

import (
	"errors"
	"fmt"
	"time"

	"coachdesk_go/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StudentIDService hands out sequential student identifiers of the form
// PREFIX-YYYY-NNNN. The sequence lives in its own counter row per year and
// is incremented under a row lock, so concurrent admissions never see the
// same number even when earlier admissions were deleted.
type StudentIDService struct {
	Prefix string
}

func NewStudentIDService(prefix string) *StudentIDService {
	return &StudentIDService{Prefix: prefix}
}

// Next allocates the next identifier for the given year. Must run inside the
// caller's transaction so a rolled-back admission releases its number lock
// together with the rest of the write set.
func (s *StudentIDService) Next(tx *gorm.DB, year int) (string, error) {
	var seq models.StudentIDSequence
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("year = ?", year).
		First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First admission of the year. The unique index on year decides a
		// racing insert; the loser falls through to the locked read below.
		seq = models.StudentIDSequence{Year: year, LastSeq: 0}
		tx.Create(&seq)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ?", year).
			First(&seq).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	seq.LastSeq++
	if err := tx.Model(&seq).Update("last_seq", seq.LastSeq).Error; err != nil {
		return "", err
	}
	return FormatStudentID(s.Prefix, year, seq.LastSeq), nil
}

// NextForNow allocates an identifier for the current calendar year.
func (s *StudentIDService) NextForNow(tx *gorm.DB) (string, error) {
	return s.Next(tx, time.Now().Year())
}

// FormatStudentID renders PREFIX-YYYY-NNNN with the sequence zero-padded to
// four digits. Sequences past 9999 widen naturally.
func FormatStudentID(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}
