package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	"campustt/pkg/model"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process-level configuration. The solver itself only ever
// sees the embedded model.SolverConfig, passed explicitly.
type Config struct {
	Env         string
	Port        int
	DatabaseURL string

	Log    LogConfig
	Solver model.SolverConfig
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment (and an optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			return nil, err
		}
	}

	cfg := &Config{
		Env:         v.GetString("ENV"),
		Port:        v.GetInt("PORT"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Solver: model.SolverConfig{
			Weights: model.Weights{
				GapPenalty:       v.GetFloat64("SOLVER_GAP_PENALTY"),
				ImbalancePenalty: v.GetFloat64("SOLVER_IMBALANCE_PENALTY"),
				SelfStudyBonus:   v.GetFloat64("SOLVER_SELFSTUDY_BONUS"),
				BreakBonus:       v.GetFloat64("SOLVER_BREAK_BONUS"),
				LunchPenalty:     v.GetFloat64("SOLVER_LUNCH_PENALTY"),
				LunchStart:       v.GetInt("SOLVER_LUNCH_START"),
				LunchEnd:         v.GetInt("SOLVER_LUNCH_END"),
			},
			BacktrackBudget:      v.GetInt("SOLVER_BACKTRACK_BUDGET"),
			RetryBudget:          v.GetInt("SOLVER_RETRY_BUDGET"),
			MoveBudget:           v.GetInt("SOLVER_MOVE_BUDGET"),
			TimeBudget:           parseDuration(v.GetString("SOLVER_TIME_BUDGET"), 30*time.Second),
			Seed:                 v.GetInt64("SOLVER_SEED"),
			WorseMoveProbability: v.GetFloat64("SOLVER_WORSE_MOVE_PROBABILITY"),
			Exams: model.ExamRules{
				SameSectionApart:       v.GetBool("EXAM_SAME_SECTION_APART"),
				MinInvigilators:        v.GetInt("EXAM_MIN_INVIGILATORS"),
				StudentsPerInvigilator: v.GetInt("EXAM_STUDENTS_PER_INVIGILATOR"),
				AllowOwnCourse:         v.GetBool("EXAM_ALLOW_OWN_COURSE"),
				OwnCourseFallback:      v.GetBool("EXAM_OWN_COURSE_FALLBACK"),
				MaxPerDay:              v.GetInt("EXAM_MAX_PER_DAY"),
			},
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := model.DefaultConfig()

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_GAP_PENALTY", defaults.Weights.GapPenalty)
	v.SetDefault("SOLVER_IMBALANCE_PENALTY", defaults.Weights.ImbalancePenalty)
	v.SetDefault("SOLVER_SELFSTUDY_BONUS", defaults.Weights.SelfStudyBonus)
	v.SetDefault("SOLVER_BREAK_BONUS", defaults.Weights.BreakBonus)
	v.SetDefault("SOLVER_LUNCH_PENALTY", defaults.Weights.LunchPenalty)
	v.SetDefault("SOLVER_LUNCH_START", defaults.Weights.LunchStart)
	v.SetDefault("SOLVER_LUNCH_END", defaults.Weights.LunchEnd)
	v.SetDefault("SOLVER_BACKTRACK_BUDGET", defaults.BacktrackBudget)
	v.SetDefault("SOLVER_RETRY_BUDGET", defaults.RetryBudget)
	v.SetDefault("SOLVER_MOVE_BUDGET", defaults.MoveBudget)
	v.SetDefault("SOLVER_TIME_BUDGET", "30s")
	v.SetDefault("SOLVER_SEED", defaults.Seed)
	v.SetDefault("SOLVER_WORSE_MOVE_PROBABILITY", defaults.WorseMoveProbability)

	v.SetDefault("EXAM_SAME_SECTION_APART", false)
	v.SetDefault("EXAM_MIN_INVIGILATORS", defaults.Exams.MinInvigilators)
	v.SetDefault("EXAM_STUDENTS_PER_INVIGILATOR", defaults.Exams.StudentsPerInvigilator)
	v.SetDefault("EXAM_ALLOW_OWN_COURSE", false)
	v.SetDefault("EXAM_OWN_COURSE_FALLBACK", false)
	v.SetDefault("EXAM_MAX_PER_DAY", defaults.Exams.MaxPerDay)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
