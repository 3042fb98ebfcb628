package constraint

import (
	"fmt"

	"github.com/samber/lo"

	"campustt/pkg/model"
)

// Hard constraint 1: room capacity covers section enrollment.
func (e *evaluator) roomCapacity(s *model.Schedule) []Violation {
	var violations []Violation
	for _, a := range s.Assignments {
		section, room := e.m.Sections[a.Section], e.m.Rooms[a.Room]
		if room.Capacity < section.Enrolled {
			violations = append(violations, Violation{
				Kind:     KindRoomCapacity,
				Sections: []int{a.Section},
				Room:     a.Room,
				Faculty:  -1,
				Slot:     a.Slot,
				Message:  fmt.Sprintf("%s has %d students, room %s seats %d", e.describe(a.Section), section.Enrolled, room.ID, room.Capacity),
			})
		}
	}
	return violations
}

// Hard constraint 2: room capability tags cover the section's requirements.
func (e *evaluator) roomCapability(s *model.Schedule) []Violation {
	var violations []Violation
	for _, a := range s.Assignments {
		section, room := e.m.Sections[a.Section], e.m.Rooms[a.Room]
		if !lo.Every(room.Tags, section.RequiredTags) {
			violations = append(violations, Violation{
				Kind:     KindRoomCapability,
				Sections: []int{a.Section},
				Room:     a.Room,
				Faculty:  -1,
				Slot:     a.Slot,
				Message:  fmt.Sprintf("%s requires %v, room %s has %v", e.describe(a.Section), section.RequiredTags, room.ID, room.Tags),
			})
		}
	}
	return violations
}

// Hard constraint 3: no room double-booked across overlapping ranges.
func (e *evaluator) roomClash(s *model.Schedule) []Violation {
	var violations []Violation
	for i := 0; i < len(s.Assignments)-1; i++ {
		for j := i + 1; j < len(s.Assignments); j++ {
			a, b := s.Assignments[i], s.Assignments[j]
			if a.Room == b.Room && a.Slot.Overlaps(b.Slot) {
				violations = append(violations, Violation{
					Kind:     KindRoomClash,
					Sections: []int{a.Section, b.Section},
					Room:     a.Room,
					Faculty:  -1,
					Slot:     a.Slot,
					Message:  fmt.Sprintf("room %s double-booked: %s and %s", e.m.Rooms[a.Room].ID, e.describe(a.Section), e.describe(b.Section)),
				})
			}
		}
	}
	return violations
}

// Hard constraint 4a: no faculty double-booked across overlapping ranges.
func (e *evaluator) facultyClash(s *model.Schedule) []Violation {
	var violations []Violation
	for i := 0; i < len(s.Assignments)-1; i++ {
		for j := i + 1; j < len(s.Assignments); j++ {
			a, b := s.Assignments[i], s.Assignments[j]
			if a.Faculty == b.Faculty && a.Slot.Overlaps(b.Slot) {
				violations = append(violations, Violation{
					Kind:     KindFacultyClash,
					Sections: []int{a.Section, b.Section},
					Room:     -1,
					Faculty:  a.Faculty,
					Slot:     a.Slot,
					Message:  fmt.Sprintf("faculty %s double-booked: %s and %s", e.m.Faculty[a.Faculty].ID, e.describe(a.Section), e.describe(b.Section)),
				})
			}
		}
	}
	return violations
}

// Hard constraint 4b: faculty weekly load stays within the maximum.
func (e *evaluator) facultyLoad(s *model.Schedule) []Violation {
	loads := make([]int, len(e.m.Faculty))
	for _, a := range s.Assignments {
		loads[a.Faculty] += a.Slot.Length
	}

	var violations []Violation
	for faculty, load := range loads {
		if load > e.m.Faculty[faculty].MaxWeeklyLoad {
			violations = append(violations, Violation{
				Kind:    KindFacultyLoad,
				Room:    -1,
				Faculty: faculty,
				Message: fmt.Sprintf("faculty %s assigned %d periods, maximum is %d", e.m.Faculty[faculty].ID, load, e.m.Faculty[faculty].MaxWeeklyLoad),
			})
		}
	}
	return violations
}

// Hard constraint 5: assigned faculty must be in the qualified set.
func (e *evaluator) qualification(s *model.Schedule) []Violation {
	var violations []Violation
	for _, a := range s.Assignments {
		if !e.m.QualifiedFor(a.Section, a.Faculty) {
			violations = append(violations, Violation{
				Kind:     KindQualification,
				Sections: []int{a.Section},
				Room:     -1,
				Faculty:  a.Faculty,
				Slot:     a.Slot,
				Message:  fmt.Sprintf("faculty %s not qualified for %s", e.m.Faculty[a.Faculty].ID, e.describe(a.Section)),
			})
		}
	}
	return violations
}

// Hard constraints 6 and 7: sections linked in the clash graph (shared
// student or same elective exclusion group) never overlap.
func (e *evaluator) studentClash(s *model.Schedule) []Violation {
	var violations []Violation
	for i := 0; i < len(s.Assignments)-1; i++ {
		for j := i + 1; j < len(s.Assignments); j++ {
			a, b := s.Assignments[i], s.Assignments[j]
			if a.Section != b.Section && e.m.Clash[a.Section][b.Section] && a.Slot.Overlaps(b.Slot) {
				violations = append(violations, Violation{
					Kind:     KindStudentClash,
					Sections: []int{a.Section, b.Section},
					Room:     -1,
					Faculty:  -1,
					Slot:     a.Slot,
					Message:  fmt.Sprintf("%s and %s clash for enrolled students", e.describe(a.Section), e.describe(b.Section)),
				})
			}
		}
	}
	return violations
}

// Hard constraint 8: the slot range fits the grid and both the room's and
// the faculty's availability calendars.
func (e *evaluator) availability(s *model.Schedule) []Violation {
	var violations []Violation
	for _, a := range s.Assignments {
		if !a.Slot.Fits(e.m.Grid) || !e.m.RoomAvailable(a.Room, a.Slot) || !e.m.FacultyAvailable(a.Faculty, a.Slot) {
			violations = append(violations, Violation{
				Kind:     KindAvailability,
				Sections: []int{a.Section},
				Room:     a.Room,
				Faculty:  a.Faculty,
				Slot:     a.Slot,
				Message:  fmt.Sprintf("%s at %v outside room or faculty availability", e.describe(a.Section), a.Slot),
			})
		}
	}
	return violations
}
