package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"campustt/internal/constraint"
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

// tightInput gives two sections sharing the sole faculty and the sole room on
// a one-day grid with space for exactly two disjoint two-period blocks.
func tightInput() model.ModelInput {
	return model.ModelInput{
		Grid:    model.GridInput{Days: 1, PeriodsPerDay: 4},
		Courses: []model.CourseInput{{ID: "MATH101"}, {ID: "PHYS101"}},
		Rooms:   []model.RoomInput{{ID: "R1", Capacity: 40}},
		Faculty: []model.FacultyInput{{ID: "F1"}},
		Sections: []model.SectionInput{
			{ID: "MATH101-A", CourseID: "MATH101", Duration: 2, QualifiedFaculty: []string{"F1"}, Students: []string{"s1"}},
			{ID: "PHYS101-A", CourseID: "PHYS101", Duration: 2, QualifiedFaculty: []string{"F1"}, Students: []string{"s1"}},
		},
	}
}

func TestSolve(t *testing.T) {
	t.Run("Two sections share one faculty and one room across disjoint slots", func(t *testing.T) {
		// Arrange
		m := buildModel(t, tightInput())
		s := New(m, testConfig(), nil)

		// Act
		schedule, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.True(t, schedule.Complete(m))
		assert.True(t, constraint.NewEvaluator(m, model.Weights{}).Feasible(schedule))
		assert.False(t, schedule.Assignments[0].Slot.Overlaps(schedule.Assignments[1].Slot))
	})

	t.Run("Room too small for every placement is infeasible", func(t *testing.T) {
		// Arrange
		input := tightInput()
		input.Rooms[0].Capacity = 30
		input.Sections[0].Enrolled = 40
		m := buildModel(t, input)
		s := New(m, testConfig(), nil)

		// Act
		schedule, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, schedule)
		assert.True(t, model.IsInfeasible(err))
		assert.False(t, model.IsBudgetExceeded(err), "proven infeasibility, not budget")
		assert.Contains(t, err.Error(), "MATH101-A")
	})

	t.Run("Sole qualified faculty cannot teach three overlapping-only sections", func(t *testing.T) {
		// Arrange
		input := tightInput()
		input.Courses = append(input.Courses, model.CourseInput{ID: "CHEM101"})
		input.Sections = append(input.Sections, model.SectionInput{
			ID: "CHEM101-A", CourseID: "CHEM101", Duration: 2,
			QualifiedFaculty: []string{"F1"}, Students: []string{"s2"},
		})
		m := buildModel(t, input) // 4 periods hold at most two 2-period blocks
		s := New(m, testConfig(), nil)

		// Act
		schedule, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, schedule)
		assert.True(t, model.IsInfeasible(err))
	})

	t.Run("Identical seed gives identical schedule", func(t *testing.T) {
		// Arrange
		input := model.ModelInput{
			Grid:    model.GridInput{Days: 3, PeriodsPerDay: 6},
			Courses: []model.CourseInput{{ID: "C1"}, {ID: "C2"}, {ID: "C3"}},
			Rooms:   []model.RoomInput{{ID: "R1", Capacity: 40}, {ID: "R2", Capacity: 40}},
			Faculty: []model.FacultyInput{{ID: "F1"}, {ID: "F2"}},
			Sections: []model.SectionInput{
				{ID: "C1-A", CourseID: "C1", Duration: 2, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s1"}},
				{ID: "C2-A", CourseID: "C2", Duration: 2, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s1", "s2"}},
				{ID: "C3-A", CourseID: "C3", Duration: 3, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s2"}},
			},
		}
		cfg := testConfig()
		cfg.Seed = 42

		// Act
		first, err1 := New(buildModel(t, input), cfg, nil).Solve(context.Background())
		second, err2 := New(buildModel(t, input), cfg, nil).Solve(context.Background())

		// Assert
		assert.Nil(t, err1)
		assert.Nil(t, err2)
		assert.Equal(t, first.Assignments, second.Assignments)
		assert.Equal(t, first.SoftCost, second.SoftCost)
	})

	t.Run("Cancelled context reports budget exhaustion", func(t *testing.T) {
		// Arrange
		m := buildModel(t, tightInput())
		s := New(m, testConfig(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		schedule, err := s.Solve(ctx)

		// Assert
		assert.Nil(t, schedule)
		assert.True(t, model.IsBudgetExceeded(err))
	})

	t.Run("Exam-only rooms are never used for teaching", func(t *testing.T) {
		// Arrange
		input := tightInput()
		input.Rooms = append([]model.RoomInput{{ID: "HALL", Capacity: 400, ExamOnly: true}}, input.Rooms...)
		m := buildModel(t, input)
		s := New(m, testConfig(), nil)

		// Act
		schedule, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		hall, _ := m.RoomIndex("HALL")
		for _, a := range schedule.Assignments {
			assert.NotEqual(t, hall, a.Room)
		}
	})
}

func TestRefine(t *testing.T) {
	t.Run("Refinement preserves feasibility and never worsens the result", func(t *testing.T) {
		// Arrange
		input := model.ModelInput{
			Grid:    model.GridInput{Days: 5, PeriodsPerDay: 9},
			Courses: []model.CourseInput{{ID: "C1"}, {ID: "C2"}, {ID: "C3"}, {ID: "C4"}},
			Rooms:   []model.RoomInput{{ID: "R1", Capacity: 40}, {ID: "R2", Capacity: 40}},
			Faculty: []model.FacultyInput{{ID: "F1"}, {ID: "F2"}},
			Sections: []model.SectionInput{
				{ID: "C1-A", CourseID: "C1", Duration: 2, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s1", "s2"}},
				{ID: "C2-A", CourseID: "C2", Duration: 2, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s1"}},
				{ID: "C3-A", CourseID: "C3", Duration: 2, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s2"}},
				{ID: "C4-A", CourseID: "C4", Duration: 1, QualifiedFaculty: []string{"F1", "F2"}, Students: []string{"s1", "s2"}},
			},
		}
		m := buildModel(t, input)
		cfg := testConfig()
		cfg.MoveBudget = 500
		cfg.WorseMoveProbability = 0 // strictly improving for this assertion
		s := New(m, cfg, nil)

		// Act
		schedule, err := s.Solve(context.Background())

		// Assert
		assert.Nil(t, err)
		assert.True(t, schedule.Complete(m))
		eval := constraint.NewEvaluator(m, cfg.Weights)
		violations, cost := eval.Evaluate(schedule)
		assert.Empty(t, violations)
		assert.Equal(t, cost, schedule.SoftCost)
	})
}
