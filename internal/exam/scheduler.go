package exam

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"campustt/pkg/model"
)

// Scheduler assigns exams to (day, slot, rooms), seats every enrolled
// student, and puts invigilators on duty. The committed timetable's room and
// faculty allocations are hard constraints here: resources already teaching
// cannot be double-booked for exams, except rooms flagged exam-only.
type Scheduler interface {
	Solve(ctx context.Context) (*model.ExamSchedule, error)
}

// New builds an exam scheduler over the model and the committed timetable.
func New(m *model.Model, committed *model.Schedule, cfg model.SolverConfig, log *zap.Logger) Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &scheduler{m: m, committed: committed, cfg: cfg, log: log, byStudent: examsByStudent(m)}
}

type scheduler struct {
	m         *model.Model
	committed *model.Schedule
	cfg       model.SolverConfig
	log       *zap.Logger
	byStudent [][]int
}

func examsByStudent(m *model.Model) [][]int {
	result := make([][]int, len(m.Students))
	for exam, students := range m.ExamStudents {
		for _, student := range students {
			result[student] = append(result[student], exam)
		}
	}
	return result
}

// sittingCandidate is one (slot, rooms) choice for an exam.
type sittingCandidate struct {
	slot  model.SlotRange
	rooms []int
}

type sittingDecision struct {
	exam       int
	candidates []sittingCandidate
	next       int
}

func (s *scheduler) Solve(ctx context.Context) (*model.ExamSchedule, error) {
	if s.cfg.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.TimeBudget)
		defer cancel()
	}

	sittings, err := s.assignSittings(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("exam sittings assigned", zap.Int("sittings", len(sittings)))

	seats, err := s.seat(sittings)
	if err != nil {
		return nil, err
	}

	invigilators, err := s.invigilate(ctx, sittings, seats)
	if err != nil {
		return nil, err
	}

	return &model.ExamSchedule{
		Sittings:     sittings,
		Seats:        seats,
		Invigilators: invigilators,
	}, nil
}

// assignSittings mirrors the timetable solver's explicit-stack backtracking
// over exams: largest enrollment first, candidates filtered by room and
// student availability, budget-bounded.
func (s *scheduler) assignSittings(ctx context.Context) ([]model.ExamSitting, error) {
	order := s.examOrder()
	roomTeaching := s.teachingRoomBusy()
	roomExam := make([][]bool, len(s.m.Rooms))
	for i := range roomExam {
		roomExam[i] = make([]bool, s.m.Grid.Slots())
	}
	examSlot := make([]model.SlotRange, len(s.m.Exams))
	placed := make([]bool, len(s.m.Exams))

	stack := make([]*sittingDecision, 0, len(order))
	backtracks := 0
	var pending *sittingDecision

	occupy := func(c sittingCandidate, busy bool) {
		for _, room := range c.rooms {
			for p := c.slot.Start; p < c.slot.End(); p++ {
				roomExam[room][s.m.Grid.Index(c.slot.Day, p)] = busy
			}
		}
	}

	for {
		if ctx.Err() != nil {
			return nil, &model.InfeasibleError{Reason: "budget_exceeded", Budget: true}
		}

		if pending == nil {
			if len(stack) == len(order) {
				break
			}
			exam := order[len(stack)]
			pending = &sittingDecision{exam: exam, candidates: s.enumerateSittings(exam, roomTeaching, roomExam, examSlot, placed)}
		}

		if pending.next < len(pending.candidates) {
			c := pending.candidates[pending.next]
			pending.next++
			occupy(c, true)
			examSlot[pending.exam] = c.slot
			placed[pending.exam] = true
			stack = append(stack, pending)
			pending = nil
			continue
		}

		if len(stack) == 0 {
			return nil, &model.InfeasibleError{
				Reason:    fmt.Sprintf("no feasible sitting for exam %s", s.m.Exams[pending.exam].ID),
				Conflicts: []string{s.m.Exams[pending.exam].ID},
			}
		}
		if backtracks++; backtracks > s.cfg.BacktrackBudget {
			return nil, &model.InfeasibleError{
				Reason:    fmt.Sprintf("backtrack budget exhausted at exam %s", s.m.Exams[pending.exam].ID),
				Budget:    true,
				Conflicts: []string{s.m.Exams[pending.exam].ID},
			}
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		occupy(top.candidates[top.next-1], false)
		placed[top.exam] = false
		pending = top
	}

	sittings := make([]model.ExamSitting, 0, len(stack))
	for _, d := range stack {
		c := d.candidates[d.next-1]
		sittings = append(sittings, model.ExamSitting{Exam: d.exam, Slot: c.slot, Rooms: c.rooms})
	}
	sort.Slice(sittings, func(i, j int) bool { return sittings[i].Exam < sittings[j].Exam })
	return sittings, nil
}

// examOrder sorts exams largest-enrollment-first; big exams have the fewest
// workable room combinations.
func (s *scheduler) examOrder() []int {
	order := make([]int, len(s.m.Exams))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(s.m.ExamStudents[order[i]]) > len(s.m.ExamStudents[order[j]])
	})
	return order
}

// teachingRoomBusy marks the committed timetable's room occupancy. Exam-only
// rooms never appear in the timetable; ordinary rooms stay blocked while
// teaching happens in them.
func (s *scheduler) teachingRoomBusy() [][]bool {
	busy := make([][]bool, len(s.m.Rooms))
	for i := range busy {
		busy[i] = make([]bool, s.m.Grid.Slots())
	}
	if s.committed == nil {
		return busy
	}
	for _, a := range s.committed.Assignments {
		for p := a.Slot.Start; p < a.Slot.End(); p++ {
			busy[a.Room][s.m.Grid.Index(a.Slot.Day, p)] = true
		}
	}
	return busy
}

// enumerateSittings lists (slot, rooms) candidates for an exam: earliest
// slots first, rooms chosen greedily largest effective capacity first.
func (s *scheduler) enumerateSittings(exam int, roomTeaching, roomExam [][]bool, examSlot []model.SlotRange, placed []bool) []sittingCandidate {
	duration := s.m.Exams[exam].Duration
	needed := len(s.m.ExamStudents[exam])

	var candidates []sittingCandidate
	for day := 0; day < s.m.Grid.Days; day++ {
		for start := 0; start+duration <= s.m.Grid.PeriodsPerDay; start++ {
			slot := model.SlotRange{Day: day, Start: start, Length: duration}
			if s.studentClash(exam, slot, examSlot, placed) {
				continue
			}
			if s.dayCapExceeded(exam, day, examSlot, placed) {
				continue
			}
			rooms := s.pickRooms(exam, slot, needed, roomTeaching, roomExam)
			if rooms == nil {
				continue
			}
			candidates = append(candidates, sittingCandidate{slot: slot, rooms: rooms})
		}
	}
	return candidates
}

// studentClash reports whether a clashing exam (shared student) is already
// placed at an overlapping range.
func (s *scheduler) studentClash(exam int, slot model.SlotRange, examSlot []model.SlotRange, placed []bool) bool {
	for other, linked := range s.m.ExamClash[exam] {
		if linked && other != exam && placed[other] && examSlot[other].Overlaps(slot) {
			return true
		}
	}
	return false
}

// dayCapExceeded reports whether placing the exam on the given day would push
// any of its students past the per-day exam limit.
func (s *scheduler) dayCapExceeded(exam, day int, examSlot []model.SlotRange, placed []bool) bool {
	limit := s.cfg.Exams.MaxPerDay
	if limit <= 0 {
		return false
	}
	for _, student := range s.m.ExamStudents[exam] {
		count := 1
		for _, other := range s.byStudent[student] {
			if other != exam && placed[other] && examSlot[other].Day == day {
				count++
			}
		}
		if count > limit {
			return true
		}
	}
	return false
}

// pickRooms greedily covers the exam's enrollment with free rooms, largest
// effective capacity first. Returns nil when coverage is impossible.
func (s *scheduler) pickRooms(exam int, slot model.SlotRange, needed int, roomTeaching, roomExam [][]bool) []int {
	density := s.m.Exams[exam].Density

	usable := make([]int, 0, len(s.m.Rooms))
	for room := range s.m.Rooms {
		if !s.m.RoomAvailable(room, slot) {
			continue
		}
		free := true
		for p := slot.Start; p < slot.End(); p++ {
			flat := s.m.Grid.Index(slot.Day, p)
			if roomTeaching[room][flat] || roomExam[room][flat] {
				free = false
				break
			}
		}
		if free && s.effectiveCapacity(room, density) > 0 {
			usable = append(usable, room)
		}
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return s.effectiveCapacity(usable[i], density) > s.effectiveCapacity(usable[j], density)
	})

	var rooms []int
	remaining := needed
	for _, room := range usable {
		if remaining <= 0 {
			break
		}
		rooms = append(rooms, room)
		remaining -= s.effectiveCapacity(room, density)
	}
	if remaining > 0 {
		return nil
	}
	sort.Ints(rooms)
	return rooms
}

func (s *scheduler) effectiveCapacity(room, density int) int {
	if density <= 0 {
		density = 1
	}
	return s.m.Rooms[room].Capacity / density
}
