package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"campustt/internal/exam"
	"campustt/internal/repository"
	"campustt/internal/solver"
	"campustt/pkg/config"
	"campustt/pkg/model"
)

type server struct {
	repo repository.Repository
	cfg  *config.Config
	log  *zap.Logger
}

func newServer(repo repository.Repository, cfg *config.Config, log *zap.Logger) *server {
	return &server{repo: repo, cfg: cfg, log: log}
}

func (s *server) register(router *gin.Engine) {
	router.GET("/healthz", s.health)

	cycles := router.Group("/cycles")
	cycles.POST("", s.runCycle)
	cycles.GET("", s.listCycles)
	cycles.GET("/:id", s.getCycle)
	cycles.GET("/:id/faculty/:facultyId", s.byFaculty)
	cycles.GET("/:id/rooms/:roomId", s.byRoom)
	cycles.GET("/:id/students/:studentId", s.byStudent)
	cycles.GET("/:id/days/:day", s.byDay)

	router.GET("/diff", s.diff)
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runCycle accepts a planning snapshot, solves it, and commits the result as
// a new cycle. Infeasible inputs come back as 422 with the conflict set.
func (s *server) runCycle(c *gin.Context) {
	var input model.ModelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := input.Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	timetable, err := solver.New(m, s.cfg.Solver, s.log).Solve(ctx)
	if err != nil {
		s.renderSolveError(c, err)
		return
	}

	var examSchedule *model.ExamSchedule
	if len(m.Exams) > 0 {
		examSchedule, err = exam.New(m, timetable, s.cfg.Solver, s.log).Solve(ctx)
		if err != nil {
			s.renderSolveError(c, err)
			return
		}
	}

	committed := repository.Snapshot(m, timetable, examSchedule)
	if err := s.repo.Commit(ctx, committed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.log.Info("cycle committed",
		zap.String("cycle", committed.CycleID.String()),
		zap.Int("assignments", len(committed.Entries)),
		zap.Float64("softCost", committed.SoftCost),
	)
	c.JSON(http.StatusCreated, committed)
}

func (s *server) renderSolveError(c *gin.Context, err error) {
	var infeasible *model.InfeasibleError
	if errors.As(err, &infeasible) {
		status := http.StatusUnprocessableEntity
		if infeasible.Budget {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":     infeasible.Error(),
			"budget":    infeasible.Budget,
			"conflicts": infeasible.Conflicts,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *server) listCycles(c *gin.Context) {
	cycles, err := s.repo.Cycles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

func (s *server) getCycle(c *gin.Context) {
	cycle, ok := s.cycleID(c)
	if !ok {
		return
	}
	committed, err := s.repo.Get(c.Request.Context(), cycle)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, committed)
}

func (s *server) byFaculty(c *gin.Context) {
	s.entries(c, func(cycle uuid.UUID) ([]repository.Entry, error) {
		return s.repo.ByFaculty(c.Request.Context(), cycle, c.Param("facultyId"))
	})
}

func (s *server) byRoom(c *gin.Context) {
	s.entries(c, func(cycle uuid.UUID) ([]repository.Entry, error) {
		return s.repo.ByRoom(c.Request.Context(), cycle, c.Param("roomId"))
	})
}

func (s *server) byStudent(c *gin.Context) {
	s.entries(c, func(cycle uuid.UUID) ([]repository.Entry, error) {
		return s.repo.ByStudent(c.Request.Context(), cycle, c.Param("studentId"))
	})
}

func (s *server) byDay(c *gin.Context) {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must be an integer"})
		return
	}
	s.entries(c, func(cycle uuid.UUID) ([]repository.Entry, error) {
		return s.repo.ByDay(c.Request.Context(), cycle, day)
	})
}

func (s *server) diff(c *gin.Context) {
	from, err := uuid.Parse(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a cycle id"})
		return
	}
	to, err := uuid.Parse(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a cycle id"})
		return
	}
	diff, err := s.repo.Diff(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, diff)
}

func (s *server) entries(c *gin.Context, fetch func(uuid.UUID) ([]repository.Entry, error)) {
	cycle, ok := s.cycleID(c)
	if !ok {
		return
	}
	entries, err := fetch(cycle)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []repository.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *server) cycleID(c *gin.Context) (uuid.UUID, bool) {
	cycle, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cycle id must be a UUID"})
		return uuid.Nil, false
	}
	return cycle, true
}
