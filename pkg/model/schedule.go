package model

// Assignment is the atomic solver decision: a section taught over a slot
// range in one room by one faculty. Indexes are dense model indexes.
type Assignment struct {
	Section int
	Slot    SlotRange
	Room    int
	Faculty int
}

// Schedule is the set of assignments for a planning cycle. It is partial
// during search and complete once every section has exactly one assignment.
type Schedule struct {
	Assignments []Assignment
	SoftCost    float64
}

// Clone returns a deep copy safe for concurrent read-only evaluation while
// the original keeps mutating.
func (s *Schedule) Clone() *Schedule {
	clone := &Schedule{
		Assignments: make([]Assignment, len(s.Assignments)),
		SoftCost:    s.SoftCost,
	}
	copy(clone.Assignments, s.Assignments)
	return clone
}

// Complete reports whether every section of the model has an assignment.
func (s *Schedule) Complete(m *Model) bool {
	seen := make([]bool, len(m.Sections))
	for _, a := range s.Assignments {
		seen[a.Section] = true
	}
	for _, ok := range seen {
		if !ok {
			return false
		}
	}
	return true
}

// ExamSitting places one exam at a slot range across one or more rooms.
type ExamSitting struct {
	Exam  int
	Slot  SlotRange
	Rooms []int
}

// SeatAssignment seats one student of an exam at a labelled seat in a room.
type SeatAssignment struct {
	Exam    int
	Room    int
	Seat    string
	Student int
}

// InvigilatorAssignment puts a faculty on duty in a room for a sitting.
type InvigilatorAssignment struct {
	Exam    int
	Room    int
	Slot    SlotRange
	Faculty int
}

// ExamSchedule is the committed output of the exam scheduler.
type ExamSchedule struct {
	Sittings     []ExamSitting
	Seats        []SeatAssignment
	Invigilators []InvigilatorAssignment
}
