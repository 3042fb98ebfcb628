package solver

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"

	"go.uber.org/zap"

	"campustt/pkg/model"
)

// candidate is one (slot, room, faculty) triple under consideration for a
// section, ranked by how much it restricts the remaining sections.
type candidate struct {
	slot    model.SlotRange
	room    int
	faculty int
	score   int
}

// decision is one explicit search-frontier entry: the section, its ranked
// candidates, and how many have been tried. Holding the frontier as data
// instead of call-stack depth lets the solver budget-check, pause, and
// backtrack chronologically.
type decision struct {
	section    int
	candidates []candidate
	next       int
}

// board tracks cumulative occupancy during the constructive phase.
type board struct {
	roomBusy [][]bool // room × flat slot index
	facBusy  [][]bool
	facLoad  []int
	placed   []model.SlotRange // per section
	has      []bool
}

func newBoard(m *model.Model) *board {
	b := &board{
		roomBusy: make([][]bool, len(m.Rooms)),
		facBusy:  make([][]bool, len(m.Faculty)),
		facLoad:  make([]int, len(m.Faculty)),
		placed:   make([]model.SlotRange, len(m.Sections)),
		has:      make([]bool, len(m.Sections)),
	}
	for i := range b.roomBusy {
		b.roomBusy[i] = make([]bool, m.Grid.Slots())
	}
	for i := range b.facBusy {
		b.facBusy[i] = make([]bool, m.Grid.Slots())
	}
	return b
}

func (b *board) place(grid model.Grid, section int, c candidate) {
	for p := c.slot.Start; p < c.slot.End(); p++ {
		slot := grid.Index(c.slot.Day, p)
		b.roomBusy[c.room][slot] = true
		b.facBusy[c.faculty][slot] = true
	}
	b.facLoad[c.faculty] += c.slot.Length
	b.placed[section] = c.slot
	b.has[section] = true
}

func (b *board) unplace(grid model.Grid, section int, c candidate) {
	for p := c.slot.Start; p < c.slot.End(); p++ {
		slot := grid.Index(c.slot.Day, p)
		b.roomBusy[c.room][slot] = false
		b.facBusy[c.faculty][slot] = false
	}
	b.facLoad[c.faculty] -= c.slot.Length
	b.has[section] = false
}

// construct runs the backtracking constructive phase: sections in
// most-constrained-first order, candidates filtered by the static hard
// constraints and current occupancy, most-recent backtracking with a
// chronological fallback once a section exceeds its retry budget.
func (s *solver) construct(ctx context.Context) (*model.Schedule, error) {
	rng := rand.New(rand.NewSource(s.cfg.Seed))
	order := s.priorityOrder()
	b := newBoard(s.m)

	stack := make([]*decision, 0, len(order))
	deadEnds := make([]int, len(s.m.Sections))
	backtracks := 0
	var pending *decision

	for {
		if err := budgetExceeded(ctx); err != nil {
			return nil, err
		}

		if pending == nil {
			if len(stack) == len(order) {
				break
			}
			section := order[len(stack)]
			pending = &decision{section: section, candidates: s.enumerate(section, b, rng)}
		}

		if pending.next < len(pending.candidates) {
			c := pending.candidates[pending.next]
			pending.next++
			b.place(s.m.Grid, pending.section, c)
			stack = append(stack, pending)
			pending = nil
			continue
		}

		// Dead end: no candidate left for this section.
		deadEnds[pending.section]++
		if len(stack) == 0 {
			return nil, &model.InfeasibleError{
				Reason:    fmt.Sprintf("no feasible candidate for section %s", s.m.Sections[pending.section].ID),
				Conflicts: []string{s.m.Sections[pending.section].ID},
			}
		}
		if backtracks++; backtracks > s.cfg.BacktrackBudget {
			return nil, &model.InfeasibleError{
				Reason:    fmt.Sprintf("backtrack budget exhausted at section %s", s.m.Sections[pending.section].ID),
				Budget:    true,
				Conflicts: []string{s.m.Sections[pending.section].ID},
			}
		}

		k := len(stack) - 1
		if deadEnds[pending.section] > s.cfg.RetryBudget {
			// Chronological fallback: jump to the oldest decision that still
			// has an untried alternative to bound thrashing cost.
			k = 0
			for i, d := range stack {
				if d.next < len(d.candidates) {
					k = i
					break
				}
			}
		}
		for i := len(stack) - 1; i >= k; i-- {
			d := stack[i]
			b.unplace(s.m.Grid, d.section, d.candidates[d.next-1])
		}
		pending = stack[k]
		stack = stack[:k]
	}

	s.log.Debug("constructive search finished", zap.Int("backtracks", backtracks))

	schedule := &model.Schedule{Assignments: make([]model.Assignment, 0, len(stack))}
	for _, d := range stack {
		c := d.candidates[d.next-1]
		schedule.Assignments = append(schedule.Assignments, model.Assignment{
			Section: d.section,
			Slot:    c.slot,
			Room:    c.room,
			Faculty: c.faculty,
		})
	}
	return schedule, nil
}

// priorityOrder sorts sections most-constrained-first: smallest product of
// qualified faculty, fitting rooms, and statically feasible slot positions.
func (s *solver) priorityOrder() []int {
	domain := make([]int, len(s.m.Sections))
	for section := range s.m.Sections {
		rooms := 0
		for room := range s.m.Rooms {
			if !s.m.Rooms[room].ExamOnly && s.m.RoomFits(section, room) {
				rooms++
			}
		}
		slots := 0
		duration := s.m.Sections[section].Duration
		for day := 0; day < s.m.Grid.Days; day++ {
			for start := 0; start+duration <= s.m.Grid.PeriodsPerDay; start++ {
				slots++
			}
		}
		domain[section] = len(s.m.Qualified[section]) * rooms * slots
	}

	order := make([]int, len(s.m.Sections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return domain[order[i]] < domain[order[j]]
	})
	return order
}

// enumerate lists feasible candidates for a section against the current
// board, filtered by hard constraints 1, 2, 5, 8 and the occupancy derived
// from constraints 3, 4, 6, 7, ranked least-restricting-first with a seeded
// shuffle breaking score ties.
func (s *solver) enumerate(section int, b *board, rng *rand.Rand) []candidate {
	duration := s.m.Sections[section].Duration
	candidates := make([]candidate, 0, 64)

	for _, faculty := range s.m.Qualified[section] {
		if b.facLoad[faculty]+duration > s.m.Faculty[faculty].MaxWeeklyLoad {
			continue
		}
		for room := range s.m.Rooms {
			if s.m.Rooms[room].ExamOnly || !s.m.RoomFits(section, room) {
				continue
			}
			for day := 0; day < s.m.Grid.Days; day++ {
				for start := 0; start+duration <= s.m.Grid.PeriodsPerDay; start++ {
					slot := model.SlotRange{Day: day, Start: start, Length: duration}
					if !s.m.RoomAvailable(room, slot) || !s.m.FacultyAvailable(faculty, slot) {
						continue
					}
					if !s.free(b, room, faculty, slot) || s.clashes(b, section, slot) {
						continue
					}
					candidates = append(candidates, candidate{
						slot:    slot,
						room:    room,
						faculty: faculty,
						score:   s.restriction(b, section, faculty, room),
					})
				}
			}
		}
	}

	// Seeded shuffle, then stable sort: equal-score candidates come out in a
	// seed-determined but reproducible order.
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})
	return candidates
}

func (s *solver) free(b *board, room, faculty int, slot model.SlotRange) bool {
	for p := slot.Start; p < slot.End(); p++ {
		flat := s.m.Grid.Index(slot.Day, p)
		if b.roomBusy[room][flat] || b.facBusy[faculty][flat] {
			return false
		}
	}
	return true
}

// clashes consults the precomputed clash graph: O(neighbors) per candidate,
// never raw enrollment data.
func (s *solver) clashes(b *board, section int, slot model.SlotRange) bool {
	for neighbor, linked := range s.m.Clash[section] {
		if linked && neighbor != section && b.has[neighbor] && b.placed[neighbor].Overlaps(slot) {
			return true
		}
	}
	return false
}

// restriction is the forward-checking score: how many unassigned sections
// compete for this faculty or room. Lower means the choice leaves more room
// for the rest.
func (s *solver) restriction(b *board, section, faculty, room int) int {
	score := 0
	for other := range s.m.Sections {
		if other == section || b.has[other] {
			continue
		}
		if slices.Contains(s.m.Qualified[other], faculty) {
			score++
		}
		if s.m.RoomFits(other, room) {
			score++
		}
	}
	return score
}
