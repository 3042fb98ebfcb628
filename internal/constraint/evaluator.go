package constraint

import (
	"fmt"

	"campustt/pkg/model"
)

// Kind names a hard constraint so violations can be targeted for repair.
type Kind string

const (
	KindRoomCapacity   Kind = "room_capacity"
	KindRoomCapability Kind = "room_capability"
	KindRoomClash      Kind = "room_clash"
	KindFacultyClash   Kind = "faculty_clash"
	KindFacultyLoad    Kind = "faculty_load"
	KindQualification  Kind = "qualification"
	KindStudentClash   Kind = "student_clash"
	KindAvailability   Kind = "availability"
)

// Violation identifies the entities of one hard-constraint breach. Sections
// carries the dense indexes of the offending assignments (one or two); Room
// and Faculty are -1 when not implicated.
type Violation struct {
	Kind     Kind
	Sections []int
	Room     int
	Faculty  int
	Slot     model.SlotRange
	Message  string
}

// Evaluator reports hard violations and the soft cost of a schedule. It is a
// pure function of (schedule, model): no hidden state, identical inputs give
// identical outputs.
type Evaluator interface {
	Evaluate(s *model.Schedule) ([]Violation, float64)
	Feasible(s *model.Schedule) bool
}

// check is one hard constraint as data: a kind plus its evaluation function.
// The registry is built once per evaluator and passed explicitly, so
// concurrent solver instances with different configs never interfere.
type check struct {
	kind Kind
	run  func(s *model.Schedule) []Violation
}

type evaluator struct {
	m       *model.Model
	weights model.Weights
	checks  []check
}

// NewEvaluator builds the constraint registry for one model and weight set.
func NewEvaluator(m *model.Model, weights model.Weights) Evaluator {
	e := &evaluator{m: m, weights: weights}
	e.checks = []check{
		{KindRoomCapacity, e.roomCapacity},
		{KindRoomCapability, e.roomCapability},
		{KindRoomClash, e.roomClash},
		{KindFacultyClash, e.facultyClash},
		{KindFacultyLoad, e.facultyLoad},
		{KindQualification, e.qualification},
		{KindStudentClash, e.studentClash},
		{KindAvailability, e.availability},
	}
	return e
}

func (e *evaluator) Evaluate(s *model.Schedule) ([]Violation, float64) {
	violations := []Violation{}
	for _, c := range e.checks {
		violations = append(violations, c.run(s)...)
	}
	return violations, e.softCost(s)
}

func (e *evaluator) Feasible(s *model.Schedule) bool {
	for _, c := range e.checks {
		if len(c.run(s)) > 0 {
			return false
		}
	}
	return true
}

func (e *evaluator) describe(section int) string {
	return fmt.Sprintf("section %s", e.m.Sections[section].ID)
}
