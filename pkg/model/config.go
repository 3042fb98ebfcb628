package model

import "time"

// Weights are the soft-cost coefficients. A zero weight disables its term.
// GapPenalty is charged per idle period between classes in a day, for
// students and for faculty alike (contiguous faculty teaching blocks are
// rewarded by not being charged). ImbalancePenalty scales the variance of
// per-faculty assigned period counts. SelfStudyBonus is subtracted for every
// (student, day) with at least one free period. BreakBonus is subtracted for
// every teaching block followed immediately by a free period.
type Weights struct {
	GapPenalty       float64 `mapstructure:"gap_penalty"`
	ImbalancePenalty float64 `mapstructure:"imbalance_penalty"`
	SelfStudyBonus   float64 `mapstructure:"selfstudy_bonus"`
	BreakBonus       float64 `mapstructure:"break_bonus"`
	// LunchPenalty is charged per (student, day) whose lunch window is
	// taught end to end. LunchStart and LunchEnd bound the window in period
	// indexes, end-exclusive; an empty window disables the term.
	LunchPenalty float64 `mapstructure:"lunch_penalty"`
	LunchStart   int     `mapstructure:"lunch_start"`
	LunchEnd     int     `mapstructure:"lunch_end"`
}

// ExamRules configures seating and invigilation behaviour.
type ExamRules struct {
	// SameSectionApart forbids two students of the same section in adjacent
	// seats of one row.
	SameSectionApart bool `mapstructure:"same_section_apart"`
	// MinInvigilators is the floor of invigilators per room per sitting.
	MinInvigilators int `mapstructure:"min_invigilators"`
	// StudentsPerInvigilator adds one invigilator per N seated students.
	// Zero disables the scaling rule.
	StudentsPerInvigilator int `mapstructure:"students_per_invigilator"`
	// AllowOwnCourse permits a course's instructor to invigilate its exam.
	AllowOwnCourse bool `mapstructure:"allow_own_course"`
	// OwnCourseFallback relaxes the own-course exclusion only after
	// invigilator matching fails with it enforced. When false the scheduler
	// reports infeasibility instead.
	OwnCourseFallback bool `mapstructure:"own_course_fallback"`
	// MaxPerDay caps the exams any one student sits on a single day. Zero
	// disables the cap.
	MaxPerDay int `mapstructure:"max_per_day"`
}

// SolverConfig is the single explicit configuration structure passed to the
// engine. It is never read from ambient state.
type SolverConfig struct {
	Weights Weights `mapstructure:"weights"`
	// BacktrackBudget bounds total backtracks in the constructive phase.
	BacktrackBudget int `mapstructure:"backtrack_budget"`
	// RetryBudget bounds dead-ends per section before the solver falls back
	// from most-recent to chronological backtracking.
	RetryBudget int `mapstructure:"retry_budget"`
	// MoveBudget bounds refinement moves.
	MoveBudget int `mapstructure:"move_budget"`
	// TimeBudget bounds wall-clock time; zero means unbounded.
	TimeBudget time.Duration `mapstructure:"time_budget"`
	// Seed fixes all tie-breaking for reproducible schedules.
	Seed int64 `mapstructure:"seed"`
	// WorseMoveProbability bounds acceptance of non-improving refinement
	// moves, used to escape local minima.
	WorseMoveProbability float64 `mapstructure:"worse_move_probability"`

	Exams ExamRules `mapstructure:"exams"`
}

// DefaultConfig returns a SolverConfig suitable for institutional scale.
func DefaultConfig() SolverConfig {
	return SolverConfig{
		Weights: Weights{
			GapPenalty:       1.0,
			ImbalancePenalty: 0.5,
			SelfStudyBonus:   0.5,
			BreakBonus:       0.25,
		},
		BacktrackBudget:      20000,
		RetryBudget:          50,
		MoveBudget:           5000,
		TimeBudget:           30 * time.Second,
		Seed:                 1,
		WorseMoveProbability: 0.05,
		Exams: ExamRules{
			MinInvigilators:        1,
			StudentsPerInvigilator: 40,
		},
	}
}
