package model

// Room is a schedulable space. Available is indexed [day][period]; an empty
// matrix means the room is available for the whole grid. ExamOnly rooms are
// skipped by the timetable solver and reserved for exam sittings.
type Room struct {
	ID          string
	Capacity    int
	Tags        []string
	ExamOnly    bool
	SeatColumns int
	Available   [][]bool
}

// Faculty is a teaching/invigilating staff member. MaxWeeklyLoad caps the
// number of periods assigned across the week, teaching and invigilation
// combined.
type Faculty struct {
	ID            string
	MaxWeeklyLoad int
	CanInvigilate bool
	Available     [][]bool
}

// Course groups sections and exams under one catalogue entry.
type Course struct {
	ID   string
	Name string
}

// Section is one teachable instance of a course requiring Duration
// contiguous periods in a single room with a single qualified faculty.
// Sections sharing a non-empty ExclusionGroup are mutually-exclusive
// elective siblings and must never overlap.
type Section struct {
	ID               string
	CourseID         string
	Duration         int
	RequiredTags     []string
	Enrolled         int
	QualifiedFaculty []string
	Students         []string
	ExclusionGroup   string
}

// Exam is one examination sitting for a course. Density is the number of
// seats consumed per student (2 leaves every other seat empty).
type Exam struct {
	ID       string
	CourseID string
	Duration int
	Density  int
	Students []string
}

// available reports a calendar cell, treating an empty calendar as fully open.
func available(calendar [][]bool, day, period int) bool {
	if len(calendar) == 0 {
		return true
	}
	if day >= len(calendar) || period >= len(calendar[day]) {
		return false
	}
	return calendar[day][period]
}

// RoomAvailable reports whether the room may be used for the whole range.
func (m *Model) RoomAvailable(room int, r SlotRange) bool {
	for p := r.Start; p < r.End(); p++ {
		if !available(m.Rooms[room].Available, r.Day, p) {
			return false
		}
	}
	return true
}

// FacultyAvailable reports whether the faculty may work the whole range.
func (m *Model) FacultyAvailable(faculty int, r SlotRange) bool {
	for p := r.Start; p < r.End(); p++ {
		if !available(m.Faculty[faculty].Available, r.Day, p) {
			return false
		}
	}
	return true
}
