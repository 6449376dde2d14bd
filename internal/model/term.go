package model

// Term is an academic year and semester pair.
type Term struct {
	AcademicYear string `json:"academicYear"`
	Semester     string `json:"semester"`
}

// TermSetting is the singleton row naming the current term.
type TermSetting struct {
	ID           int64  `gorm:"primaryKey"`
	AcademicYear string `gorm:"size:16;not null"`
	Semester     string `gorm:"size:16;not null"`
}

// Term returns the pair stored in the setting row.
func (s TermSetting) Term() Term {
	return Term{AcademicYear: s.AcademicYear, Semester: s.Semester}
}
