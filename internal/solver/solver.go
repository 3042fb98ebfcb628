package solver

import (
	"context"

	"go.uber.org/zap"

	"campustt/internal/constraint"
	"campustt/pkg/model"
)

// Solver produces a hard-feasible, soft-optimized timetable for one model.
// Distinct instances share nothing but the read-only model, so solver runs
// for different cycles or configs may execute in parallel.
type Solver interface {
	Solve(ctx context.Context) (*model.Schedule, error)
}

// New builds a solver over an immutable model with an explicit config.
func New(m *model.Model, cfg model.SolverConfig, log *zap.Logger) Solver {
	if log == nil {
		log = zap.NewNop()
	}
	return &solver{
		m:    m,
		cfg:  cfg,
		log:  log,
		eval: constraint.NewEvaluator(m, cfg.Weights),
	}
}

type solver struct {
	m    *model.Model
	cfg  model.SolverConfig
	log  *zap.Logger
	eval constraint.Evaluator
}

func (s *solver) Solve(ctx context.Context) (*model.Schedule, error) {
	if s.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TimeBudget)
		defer cancel()
	}

	schedule, err := s.construct(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("constructive phase complete", zap.Int("assignments", len(schedule.Assignments)))

	schedule = s.refine(ctx, schedule)
	s.log.Info("refinement complete", zap.Float64("soft_cost", schedule.SoftCost))

	return schedule, nil
}

// budgetExceeded turns a cancelled context into the BudgetExceeded flavor of
// infeasibility. The solver checks it between search steps so no step blocks
// past the budget.
func budgetExceeded(ctx context.Context) error {
	if ctx.Err() != nil {
		return &model.InfeasibleError{Reason: "budget_exceeded", Budget: true}
	}
	return nil
}
