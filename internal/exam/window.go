package exam

import "time"

// Clock supplies the current time. Injectable so tests can pin the window.
type Clock func() time.Time

// EndAt returns the unix second at which the exam window closes.
func (e Exam) EndAt() int64 {
	return e.StartAt + int64(e.DurationMin)*60
}

// IsBefore reports whether now is before the exam window opens.
func IsBefore(now time.Time, e Exam) bool {
	return now.Unix() < e.StartAt
}

// IsDuring reports whether now falls inside [start, start+duration). This is
// the authority gating every write against an attempt.
func IsDuring(now time.Time, e Exam) bool {
	t := now.Unix()
	return t >= e.StartAt && t < e.EndAt()
}

// IsAfter reports whether the exam window has elapsed.
func IsAfter(now time.Time, e Exam) bool {
	return now.Unix() >= e.EndAt()
}

// RemainingMinutes returns whole minutes left in the window, rounded up, zero
// once the window has elapsed.
func RemainingMinutes(now time.Time, e Exam) int {
	left := e.EndAt() - now.Unix()
	if left <= 0 {
		return 0
	}
	return int((left + 59) / 60)
}
