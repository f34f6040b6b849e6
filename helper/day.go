package helper

import "time"

const DayKeyLayout = "2006-01-02"

// DayWindow mengembalikan hari kalender yang memuat t di zona loc sebagai
// [start, end], dengan end = instant terakhir di hari itu.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 59, 999999999, loc)
	return start, end
}

// DayKey tanggal t di zona loc, contoh "2024-03-09".
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}
