package exam

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"campustt/pkg/model"
)

// seat partitions every sitting's students across its rooms. Students fill
// rooms in order; seat positions honor the exam's density (density 2 leaves
// every other seat empty). With the same-section-apart rule active, seats
// are filled so no two row neighbours share a section; otherwise seating
// order is simply by student id.
func (s *scheduler) seat(sittings []model.ExamSitting) ([]model.SeatAssignment, error) {
	var seats []model.SeatAssignment
	for _, sitting := range sittings {
		placed, err := s.seatSitting(sitting)
		if err != nil {
			return nil, err
		}
		seats = append(seats, placed...)
	}
	return seats, nil
}

func (s *scheduler) seatSitting(sitting model.ExamSitting) ([]model.SeatAssignment, error) {
	exam := sitting.Exam
	density := s.m.Exams[exam].Density
	ordered := s.orderedStudents(exam)

	// Density above one spaces students out, so adjacency never occurs.
	if s.cfg.Exams.SameSectionApart && density == 1 {
		return s.seatApart(sitting, ordered)
	}

	var seats []model.SeatAssignment
	cursor := 0
	for _, room := range sitting.Rooms {
		capacity := s.effectiveCapacity(room, density)
		columns := s.m.Rooms[room].SeatColumns
		for i := 0; i < capacity && cursor < len(ordered); i++ {
			seats = append(seats, model.SeatAssignment{
				Exam:    exam,
				Room:    room,
				Seat:    seatLabel(i*density, columns),
				Student: ordered[cursor],
			})
			cursor++
		}
	}
	if cursor < len(ordered) {
		return nil, s.unseated(exam, len(ordered)-cursor)
	}
	return seats, nil
}

// seatApart fills seats one by one, always drawing from the largest section
// group that differs from the row neighbour just seated. Row starts and room
// changes reset the neighbour, so a dominant section only fails when no
// contiguous arrangement can keep its students off adjacent seats.
func (s *scheduler) seatApart(sitting model.ExamSitting, ordered []int) ([]model.SeatAssignment, error) {
	exam := sitting.Exam
	sectionOf := s.sectionOf(exam)

	grouped := lo.GroupBy(ordered, func(student int) int { return sectionOf[student] })
	keys := lo.Keys(grouped)
	sort.Ints(keys)

	var seats []model.SeatAssignment
	remaining := len(ordered)
	for _, room := range sitting.Rooms {
		capacity := s.m.Rooms[room].Capacity
		columns := s.m.Rooms[room].SeatColumns
		previous := -2
		for i := 0; i < capacity && remaining > 0; i++ {
			if i%columns == 0 {
				previous = -2 // row start, no left neighbour
			}
			pick := -2
			for _, key := range keys {
				if key == previous || len(grouped[key]) == 0 {
					continue
				}
				if pick == -2 || len(grouped[key]) > len(grouped[pick]) {
					pick = key
				}
			}
			if pick == -2 {
				return nil, &model.InfeasibleError{
					Reason:    fmt.Sprintf("exam %s: one section dominates, adjacent same-section seating unavoidable", s.m.Exams[exam].ID),
					Conflicts: []string{s.m.Exams[exam].ID},
				}
			}
			seats = append(seats, model.SeatAssignment{
				Exam:    exam,
				Room:    room,
				Seat:    seatLabel(i, columns),
				Student: grouped[pick][0],
			})
			grouped[pick] = grouped[pick][1:]
			previous = pick
			remaining--
		}
	}
	if remaining > 0 {
		return nil, s.unseated(exam, remaining)
	}
	return seats, nil
}

func (s *scheduler) unseated(exam, count int) error {
	return &model.InfeasibleError{
		Reason:    fmt.Sprintf("exam %s: %d students left unseated", s.m.Exams[exam].ID, count),
		Conflicts: []string{s.m.Exams[exam].ID},
	}
}

func seatLabel(position, columns int) string {
	return fmt.Sprintf("R%dC%d", position/columns+1, position%columns+1)
}

// orderedStudents returns the exam's roster sorted by external student id.
func (s *scheduler) orderedStudents(exam int) []int {
	students := make([]int, len(s.m.ExamStudents[exam]))
	copy(students, s.m.ExamStudents[exam])
	sort.Slice(students, func(i, j int) bool {
		return s.m.Students[students[i]] < s.m.Students[students[j]]
	})
	return students
}

// sectionOf maps each of the exam's students to the section (of the exam's
// course) they belong to; -1 when the student sits the exam without a
// matching section enrollment.
func (s *scheduler) sectionOf(exam int) map[int]int {
	course, _ := s.m.CourseIndex(s.m.Exams[exam].CourseID)
	result := make(map[int]int)
	for _, student := range s.m.ExamStudents[exam] {
		result[student] = -1
	}
	for _, section := range s.m.CourseSections[course] {
		for _, student := range s.m.SectionStudents[section] {
			if _, ok := result[student]; ok {
				result[student] = section
			}
		}
	}
	return result
}
