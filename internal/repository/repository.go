package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"campustt/pkg/model"
)

// Entry is one committed timetable assignment, resolved to external ids so
// collaborators never see dense indexes.
type Entry struct {
	SectionID string `json:"sectionId"`
	Day       int    `json:"day"`
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	RoomID    string `json:"roomId"`
	FacultyID string `json:"facultyId"`
}

// ExamEntry is one committed exam sitting.
type ExamEntry struct {
	ExamID  string   `json:"examId"`
	Day     int      `json:"day"`
	Start   int      `json:"start"`
	Length  int      `json:"length"`
	RoomIDs []string `json:"roomIds"`
}

// SeatEntry is one committed seat allocation.
type SeatEntry struct {
	ExamID    string `json:"examId"`
	RoomID    string `json:"roomId"`
	Seat      string `json:"seat"`
	StudentID string `json:"studentId"`
}

// InvigilatorEntry is one committed invigilation duty.
type InvigilatorEntry struct {
	ExamID    string `json:"examId"`
	RoomID    string `json:"roomId"`
	Day       int    `json:"day"`
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	FacultyID string `json:"facultyId"`
}

// Committed is the immutable record of one planning cycle's accepted
// schedules. Once stored it is never revised; a new cycle gets a new record.
type Committed struct {
	CycleID         uuid.UUID           `json:"cycleId"`
	CommittedAt     time.Time           `json:"committedAt"`
	SoftCost        float64             `json:"softCost"`
	Entries         []Entry             `json:"entries"`
	ExamEntries     []ExamEntry         `json:"examEntries"`
	Seats           []SeatEntry         `json:"seats"`
	Invigilators    []InvigilatorEntry  `json:"invigilators"`
	SectionStudents map[string][]string `json:"sectionStudents"`
}

// Snapshot resolves solver output into a Committed record.
func Snapshot(m *model.Model, timetable *model.Schedule, exams *model.ExamSchedule) *Committed {
	c := &Committed{
		CycleID:         uuid.New(),
		CommittedAt:     time.Now().UTC(),
		SectionStudents: make(map[string][]string),
	}
	if timetable != nil {
		c.SoftCost = timetable.SoftCost
		for _, a := range timetable.Assignments {
			c.Entries = append(c.Entries, Entry{
				SectionID: m.Sections[a.Section].ID,
				Day:       a.Slot.Day,
				Start:     a.Slot.Start,
				Length:    a.Slot.Length,
				RoomID:    m.Rooms[a.Room].ID,
				FacultyID: m.Faculty[a.Faculty].ID,
			})
		}
	}
	for section, students := range m.SectionStudents {
		ids := lo.Map(students, func(s int, _ int) string { return m.Students[s] })
		c.SectionStudents[m.Sections[section].ID] = ids
	}
	if exams != nil {
		for _, sitting := range exams.Sittings {
			c.ExamEntries = append(c.ExamEntries, ExamEntry{
				ExamID:  m.Exams[sitting.Exam].ID,
				Day:     sitting.Slot.Day,
				Start:   sitting.Slot.Start,
				Length:  sitting.Slot.Length,
				RoomIDs: lo.Map(sitting.Rooms, func(r int, _ int) string { return m.Rooms[r].ID }),
			})
		}
		for _, seat := range exams.Seats {
			c.Seats = append(c.Seats, SeatEntry{
				ExamID:    m.Exams[seat.Exam].ID,
				RoomID:    m.Rooms[seat.Room].ID,
				Seat:      seat.Seat,
				StudentID: m.Students[seat.Student],
			})
		}
		for _, inv := range exams.Invigilators {
			c.Invigilators = append(c.Invigilators, InvigilatorEntry{
				ExamID:    m.Exams[inv.Exam].ID,
				RoomID:    m.Rooms[inv.Room].ID,
				Day:       inv.Slot.Day,
				Start:     inv.Slot.Start,
				Length:    inv.Slot.Length,
				FacultyID: m.Faculty[inv.Faculty].ID,
			})
		}
	}
	return c
}

// Repository stores committed schedules per planning cycle and answers the
// read-only queries consumed by rendering and notification collaborators.
type Repository interface {
	Commit(ctx context.Context, c *Committed) error
	Get(ctx context.Context, cycle uuid.UUID) (*Committed, error)
	Cycles(ctx context.Context) ([]uuid.UUID, error)
	ByFaculty(ctx context.Context, cycle uuid.UUID, facultyID string) ([]Entry, error)
	ByRoom(ctx context.Context, cycle uuid.UUID, roomID string) ([]Entry, error)
	ByStudent(ctx context.Context, cycle uuid.UUID, studentID string) ([]Entry, error)
	ByDay(ctx context.Context, cycle uuid.UUID, day int) ([]Entry, error)
	Diff(ctx context.Context, from, to uuid.UUID) (*Diff, error)
}

// NewMemory returns the in-memory repository used within a single process.
func NewMemory() Repository {
	return &memory{records: make(map[uuid.UUID]*Committed)}
}

type memory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Committed
	order   []uuid.UUID
}

func (r *memory) Commit(_ context.Context, c *Committed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[c.CycleID]; exists {
		return fmt.Errorf("cycle %s already committed", c.CycleID)
	}
	r.records[c.CycleID] = c
	r.order = append(r.order, c.CycleID)
	return nil
}

func (r *memory) Get(_ context.Context, cycle uuid.UUID) (*Committed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.records[cycle]
	if !ok {
		return nil, fmt.Errorf("unknown cycle %s", cycle)
	}
	return c, nil
}

func (r *memory) Cycles(_ context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cycles := make([]uuid.UUID, len(r.order))
	copy(cycles, r.order)
	return cycles, nil
}

func (r *memory) ByFaculty(ctx context.Context, cycle uuid.UUID, facultyID string) ([]Entry, error) {
	return r.filter(ctx, cycle, func(e Entry) bool { return e.FacultyID == facultyID })
}

func (r *memory) ByRoom(ctx context.Context, cycle uuid.UUID, roomID string) ([]Entry, error) {
	return r.filter(ctx, cycle, func(e Entry) bool { return e.RoomID == roomID })
}

func (r *memory) ByDay(ctx context.Context, cycle uuid.UUID, day int) ([]Entry, error) {
	return r.filter(ctx, cycle, func(e Entry) bool { return e.Day == day })
}

func (r *memory) ByStudent(ctx context.Context, cycle uuid.UUID, studentID string) ([]Entry, error) {
	c, err := r.Get(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return filterByStudent(c, studentID), nil
}

func (r *memory) Diff(ctx context.Context, from, to uuid.UUID) (*Diff, error) {
	a, err := r.Get(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := r.Get(ctx, to)
	if err != nil {
		return nil, err
	}
	return ComputeDiff(a, b), nil
}

func (r *memory) filter(ctx context.Context, cycle uuid.UUID, keep func(Entry) bool) ([]Entry, error) {
	c, err := r.Get(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return lo.Filter(c.Entries, func(e Entry, _ int) bool { return keep(e) }), nil
}

func filterByStudent(c *Committed, studentID string) []Entry {
	var entries []Entry
	for _, e := range c.Entries {
		if lo.Contains(c.SectionStudents[e.SectionID], studentID) {
			entries = append(entries, e)
		}
	}
	return entries
}
