package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"campustt/internal/csvio"
	"campustt/internal/exam"
	"campustt/internal/repository"
	"campustt/internal/solver"
	"campustt/pkg/config"
	"campustt/pkg/logger"
	"campustt/pkg/model"
)

func main() {
	var (
		inputPath = flag.String("input", "", "JSON model snapshot")
		csvDir    = flag.String("csv", "", "directory of CSV snapshot files")
		days      = flag.Int("days", 5, "grid days (CSV input only)")
		periods   = flag.Int("periods", 9, "grid periods per day (CSV input only)")
		outPath   = flag.String("out", "", "timetable CSV export path")
		seatsPath = flag.String("seats", "", "exam seating CSV export path")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	input, err := loadInput(*inputPath, *csvDir, *days, *periods)
	if err != nil {
		log.Fatal("cannot load input", zap.Error(err))
	}

	m, err := input.Build()
	if err != nil {
		log.Fatal("model rejected", zap.Error(err))
	}

	ctx := context.Background()

	timetable, err := solver.New(m, cfg.Solver, log).Solve(ctx)
	if err != nil {
		if model.IsBudgetExceeded(err) {
			log.Fatal("timetable search budget exhausted, retry with a larger budget", zap.Error(err))
		}
		log.Fatal("timetable infeasible", zap.Error(err))
	}

	var examSchedule *model.ExamSchedule
	if len(m.Exams) > 0 {
		examSchedule, err = exam.New(m, timetable, cfg.Solver, log).Solve(ctx)
		if err != nil {
			log.Fatal("exam schedule infeasible", zap.Error(err))
		}
	}

	committed := repository.Snapshot(m, timetable, examSchedule)

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal("cannot open repository", zap.Error(err))
	}
	if err := repo.Commit(ctx, committed); err != nil {
		log.Fatal("cannot commit schedule", zap.Error(err))
	}

	if *outPath != "" {
		if err := csvio.ExportSchedule(*outPath, committed); err != nil {
			log.Fatal("cannot export timetable", zap.Error(err))
		}
	}
	if *seatsPath != "" && examSchedule != nil {
		if err := csvio.ExportSeating(*seatsPath, committed); err != nil {
			log.Fatal("cannot export seating", zap.Error(err))
		}
	}

	fmt.Printf("cycle %s committed: %d assignments, %d exam sittings, soft cost %.2f\n",
		committed.CycleID, len(committed.Entries), len(committed.ExamEntries), committed.SoftCost)
}

func loadInput(inputPath, csvDir string, days, periods int) (model.ModelInput, error) {
	switch {
	case inputPath != "":
		return model.InputFromJSON(inputPath)
	case csvDir != "":
		return csvio.LoadModelInput(csvDir, days, periods)
	default:
		return model.ModelInput{}, fmt.Errorf("either -input or -csv is required")
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	if cfg.DatabaseURL == "" {
		return repository.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		return nil, err
	}
	return repository.NewPostgres(pool), nil
}
