package models

import "time"

// Attendance adalah satu catatan kehadiran. StudentName adalah salinan nama,
// bukan foreign key, supaya riwayat tetap utuh kalau student diganti namanya.
type Attendance struct {
	Id          int64     `gorm:"primaryKey" json:"id"`
	StudentName string    `gorm:"size:100;not null;uniqueIndex:idx_attendance_student_day,priority:1" json:"student_name"`
	AttendDate  string    `gorm:"size:10;not null;uniqueIndex:idx_attendance_student_day,priority:2" json:"attend_date"` // YYYY-MM-DD di zona absensi
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	Photo       []byte    `json:"-"`
}

func (Attendance) TableName() string {
	return "attendance"
}

func (a Attendance) HasPhoto() bool {
	return len(a.Photo) > 0
}
