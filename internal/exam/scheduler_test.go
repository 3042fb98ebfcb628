package exam

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"campustt/pkg/model"
)

func buildModel(t *testing.T, input model.ModelInput) *model.Model {
	t.Helper()
	m, err := input.Build()
	assert.Nil(t, err)
	return m
}

func testConfig() model.SolverConfig {
	cfg := model.DefaultConfig()
	cfg.TimeBudget = 0
	return cfg
}

// examInput gives two clashing exams (shared student s1), an exam-only hall,
// and two invigilation-capable faculty each teaching one course.
func examInput() model.ModelInput {
	return model.ModelInput{
		Grid:    model.GridInput{Days: 5, PeriodsPerDay: 9},
		Courses: []model.CourseInput{{ID: "MATH101"}, {ID: "PHYS101"}},
		Rooms: []model.RoomInput{
			{ID: "R1", Capacity: 40},
			{ID: "HALL", Capacity: 100, ExamOnly: true, SeatColumns: 5},
		},
		Faculty: []model.FacultyInput{
			{ID: "F1", CanInvigilate: true},
			{ID: "F2", CanInvigilate: true},
		},
		Sections: []model.SectionInput{
			{ID: "MATH101-A", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"},
				Students: []string{"s1", "s2", "s3", "s4"}},
			{ID: "PHYS101-A", CourseID: "PHYS101", Duration: 2, QualifiedFaculty: []string{"F2"},
				Students: []string{"s1", "s5"}},
		},
		Exams: []model.ExamInput{
			{ID: "MATH101-FINAL", CourseID: "MATH101", Duration: 2, Students: []string{"s1", "s2", "s3", "s4"}},
			{ID: "PHYS101-FINAL", CourseID: "PHYS101", Duration: 2, Students: []string{"s1", "s5"}},
		},
	}
}

// lateTimetable commits both sections to the final periods of the last day so
// teaching never blocks the earliest exam slots.
func lateTimetable(m *model.Model) *model.Schedule {
	math, _ := m.SectionIndex("MATH101-A")
	phys, _ := m.SectionIndex("PHYS101-A")
	r1, _ := m.RoomIndex("R1")
	f1, _ := m.FacultyIndex("F1")
	f2, _ := m.FacultyIndex("F2")
	return &model.Schedule{Assignments: []model.Assignment{
		{Section: math, Slot: model.SlotRange{Day: 4, Start: 7, Length: 2}, Room: r1, Faculty: f1},
		{Section: phys, Slot: model.SlotRange{Day: 4, Start: 5, Length: 2}, Room: r1, Faculty: f2},
	}}
}

func TestSolveExams(t *testing.T) {
	t.Run("Clashing exams get disjoint slots and every student a seat", func(t *testing.T) {
		// Arrange
		m := buildModel(t, examInput())
		s := New(m, lateTimetable(m), testConfig(), nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Sittings, 2)
		assert.False(t, result.Sittings[0].Slot.Overlaps(result.Sittings[1].Slot), "exams share student s1")

		seatedPerExam := map[int]map[int]bool{}
		for _, seat := range result.Seats {
			if seatedPerExam[seat.Exam] == nil {
				seatedPerExam[seat.Exam] = map[int]bool{}
			}
			assert.False(t, seatedPerExam[seat.Exam][seat.Student], "student seated twice")
			seatedPerExam[seat.Exam][seat.Student] = true
		}
		for exam, students := range m.ExamStudents {
			assert.Len(t, seatedPerExam[exam], len(students))
		}
	})

	t.Run("Instructors never invigilate their own course's exam", func(t *testing.T) {
		// Arrange
		m := buildModel(t, examInput())
		s := New(m, lateTimetable(m), testConfig(), nil)
		f1, _ := m.FacultyIndex("F1")
		f2, _ := m.FacultyIndex("F2")
		mathFinal, _ := m.ExamIndex("MATH101-FINAL")
		physFinal, _ := m.ExamIndex("PHYS101-FINAL")

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.NotEmpty(t, result.Invigilators)
		for _, inv := range result.Invigilators {
			switch inv.Exam {
			case mathFinal:
				assert.NotEqual(t, f1, inv.Faculty, "F1 teaches MATH101")
			case physFinal:
				assert.NotEqual(t, f2, inv.Faculty, "F2 teaches PHYS101")
			}
		}
	})

	t.Run("Sole eligible invigilator is the instructor: infeasible without fallback", func(t *testing.T) {
		// Arrange
		input := examInput()
		input.Faculty[1].CanInvigilate = false
		m := buildModel(t, input)
		s := New(m, lateTimetable(m), testConfig(), nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, result)
		assert.True(t, model.IsInfeasible(err))
		assert.False(t, model.IsBudgetExceeded(err))
	})

	t.Run("Own-course fallback relaxes the exclusion after a failed match", func(t *testing.T) {
		// Arrange
		input := examInput()
		input.Faculty[1].CanInvigilate = false
		m := buildModel(t, input)
		cfg := testConfig()
		cfg.Exams.OwnCourseFallback = true
		s := New(m, lateTimetable(m), cfg, nil)
		f1, _ := m.FacultyIndex("F1")

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		for _, inv := range result.Invigilators {
			assert.Equal(t, f1, inv.Faculty, "only F1 can invigilate")
		}
	})

	t.Run("Seated students scale the invigilator count", func(t *testing.T) {
		// Arrange
		m := buildModel(t, examInput())
		cfg := testConfig()
		cfg.Exams.StudentsPerInvigilator = 2 // MATH101-FINAL seats 4 students
		// A second non-instructor is needed per duty; disable the exclusion to
		// keep both faculty eligible.
		cfg.Exams.AllowOwnCourse = true
		s := New(m, lateTimetable(m), cfg, nil)
		mathFinal, _ := m.ExamIndex("MATH101-FINAL")

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		count := 0
		for _, inv := range result.Invigilators {
			if inv.Exam == mathFinal {
				count++
			}
		}
		assert.Equal(t, 2, count)
	})

	t.Run("Teaching rooms stay blocked during class hours", func(t *testing.T) {
		// Arrange
		input := examInput()
		input.Rooms = input.Rooms[:1] // only R1, also used for teaching
		m := buildModel(t, input)
		timetable := lateTimetable(m)
		s := New(m, timetable, testConfig(), nil)
		r1, _ := m.RoomIndex("R1")

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		for _, sitting := range result.Sittings {
			assert.Contains(t, sitting.Rooms, r1)
			for _, a := range timetable.Assignments {
				assert.False(t, sitting.Slot.Overlaps(a.Slot), "sitting overlaps teaching in R1")
			}
		}
	})

	t.Run("Per-day cap spreads one student's exams across days", func(t *testing.T) {
		// Arrange
		m := buildModel(t, examInput())
		cfg := testConfig()
		cfg.Exams.MaxPerDay = 1 // s1 sits both exams
		s := New(m, lateTimetable(m), cfg, nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Sittings, 2)
		assert.NotEqual(t, result.Sittings[0].Slot.Day, result.Sittings[1].Slot.Day)
	})

	t.Run("Chained overlaps reuse one faculty across disjoint duties", func(t *testing.T) {
		// Arrange: a single day forces CX-FINAL into periods 0-2 of the big
		// hall, CY-FINAL into periods 0-1 of the small one and CZ-FINAL into
		// periods 2-3, so the three duties chain into one overlap cluster that
		// only two faculty can cover.
		input := model.ModelInput{
			Grid:    model.GridInput{Days: 1, PeriodsPerDay: 5},
			Courses: []model.CourseInput{{ID: "CX"}, {ID: "CY"}, {ID: "CZ"}},
			Rooms: []model.RoomInput{
				{ID: "E1", Capacity: 10, ExamOnly: true},
				{ID: "E2", Capacity: 4, ExamOnly: true},
			},
			Faculty: []model.FacultyInput{
				{ID: "F1", CanInvigilate: true},
				{ID: "F2", CanInvigilate: true},
			},
			Exams: []model.ExamInput{
				{ID: "CX-FINAL", CourseID: "CX", Duration: 3, Students: []string{"x1", "x2", "x3", "x4", "x5"}},
				{ID: "CY-FINAL", CourseID: "CY", Duration: 2, Students: []string{"y1", "y2", "y3"}},
				{ID: "CZ-FINAL", CourseID: "CZ", Duration: 2, Students: []string{"z1", "z2"}},
			},
		}
		m := buildModel(t, input)
		s := New(m, nil, testConfig(), nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Invigilators, 3)
		for i := 0; i < len(result.Invigilators)-1; i++ {
			for j := i + 1; j < len(result.Invigilators); j++ {
				a, b := result.Invigilators[i], result.Invigilators[j]
				if a.Faculty == b.Faculty {
					assert.False(t, a.Slot.Overlaps(b.Slot), "faculty on two overlapping duties")
				}
			}
		}
	})

	t.Run("Large exam splits across rooms", func(t *testing.T) {
		// Arrange
		input := examInput()
		input.Rooms = []model.RoomInput{
			{ID: "E1", Capacity: 3, ExamOnly: true},
			{ID: "E2", Capacity: 3, ExamOnly: true},
		}
		input.Exams = input.Exams[:1] // MATH101-FINAL, 4 students
		m := buildModel(t, input)
		s := New(m, nil, testConfig(), nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Sittings, 1)
		assert.Len(t, result.Sittings[0].Rooms, 2)
		assert.Len(t, result.Seats, 4)
	})
}

func TestSeating(t *testing.T) {
	t.Run("Density two leaves every other seat empty", func(t *testing.T) {
		// Arrange
		input := examInput()
		input.Rooms = []model.RoomInput{{ID: "HALL", Capacity: 8, ExamOnly: true, SeatColumns: 2}}
		input.Exams = []model.ExamInput{
			{ID: "PHYS101-FINAL", CourseID: "PHYS101", Duration: 2, Density: 2, Students: []string{"s1", "s5"}},
		}
		m := buildModel(t, input)
		s := New(m, nil, testConfig(), nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Seats, 2)
		assert.Equal(t, "R1C1", result.Seats[0].Seat)
		assert.Equal(t, "R2C1", result.Seats[1].Seat, "position advances by density")
	})

	t.Run("Same-section-apart interleaves sections in seating order", func(t *testing.T) {
		// Arrange
		input := model.ModelInput{
			Grid:    model.GridInput{Days: 5, PeriodsPerDay: 9},
			Courses: []model.CourseInput{{ID: "MATH101"}},
			Rooms:   []model.RoomInput{{ID: "HALL", Capacity: 10, ExamOnly: true, SeatColumns: 3}},
			Faculty: []model.FacultyInput{{ID: "F1", CanInvigilate: true}, {ID: "F2", CanInvigilate: true}},
			Sections: []model.SectionInput{
				{ID: "MATH101-A", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"},
					Students: []string{"a1", "a2", "a3"}},
				{ID: "MATH101-B", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F2"},
					Students: []string{"b1", "b2", "b3"}},
			},
			Exams: []model.ExamInput{
				{ID: "MATH101-FINAL", CourseID: "MATH101", Duration: 2,
					Students: []string{"a1", "a2", "a3", "b1", "b2", "b3"}},
			},
		}
		m := buildModel(t, input)
		cfg := testConfig()
		cfg.Exams.SameSectionApart = true
		cfg.Exams.AllowOwnCourse = true // both faculty teach the course
		s := New(m, nil, cfg, nil)
		secA, _ := m.SectionIndex("MATH101-A")
		aStudents := map[int]bool{}
		for _, st := range m.SectionStudents[secA] {
			aStudents[st] = true
		}

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Seats, 6)
		for i := 1; i < len(result.Seats); i++ {
			assert.NotEqual(t, aStudents[result.Seats[i-1].Student], aStudents[result.Seats[i].Student],
				"neighbours must come from different sections")
		}
	})

	t.Run("Single-column room seats a dominant section row by row", func(t *testing.T) {
		// Arrange: one seat per row, so no seat ever has a row neighbour and
		// even four students of one section sit apart.
		input := model.ModelInput{
			Grid:    model.GridInput{Days: 5, PeriodsPerDay: 9},
			Courses: []model.CourseInput{{ID: "MATH101"}},
			Rooms:   []model.RoomInput{{ID: "HALL", Capacity: 10, ExamOnly: true, SeatColumns: 1}},
			Faculty: []model.FacultyInput{{ID: "F1", CanInvigilate: true}},
			Sections: []model.SectionInput{
				{ID: "MATH101-A", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"},
					Students: []string{"a1", "a2", "a3", "a4"}},
				{ID: "MATH101-B", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"},
					Students: []string{"b1"}},
			},
			Exams: []model.ExamInput{
				{ID: "MATH101-FINAL", CourseID: "MATH101", Duration: 2,
					Students: []string{"a1", "a2", "a3", "a4", "b1"}},
			},
		}
		m := buildModel(t, input)
		cfg := testConfig()
		cfg.Exams.SameSectionApart = true
		s := New(m, nil, cfg, nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.Len(t, result.Seats, 5)
		for i, seat := range result.Seats {
			assert.Equal(t, fmt.Sprintf("R%dC1", i+1), seat.Seat)
		}
	})

	t.Run("Dominant section makes adjacency-free seating infeasible", func(t *testing.T) {
		// Arrange
		input := model.ModelInput{
			Grid:    model.GridInput{Days: 5, PeriodsPerDay: 9},
			Courses: []model.CourseInput{{ID: "MATH101"}},
			Rooms:   []model.RoomInput{{ID: "HALL", Capacity: 10, ExamOnly: true}},
			Faculty: []model.FacultyInput{{ID: "F1", CanInvigilate: true}},
			Sections: []model.SectionInput{
				{ID: "MATH101-A", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"},
					Students: []string{"a1", "a2", "a3", "a4"}},
				{ID: "MATH101-B", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"},
					Students: []string{"b1"}},
			},
			Exams: []model.ExamInput{
				{ID: "MATH101-FINAL", CourseID: "MATH101", Duration: 2,
					Students: []string{"a1", "a2", "a3", "a4", "b1"}},
			},
		}
		m := buildModel(t, input)
		cfg := testConfig()
		cfg.Exams.SameSectionApart = true
		s := New(m, nil, cfg, nil)

		// Act
		result, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, result)
		assert.True(t, model.IsInfeasible(err))
		assert.Contains(t, err.Error(), "MATH101-FINAL")
	})
}
