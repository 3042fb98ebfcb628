package solver

import (
	"context"
	"math/rand"
	"sync"

	"campustt/pkg/model"
)

// maxAlternatives caps the candidate moves evaluated per refinement step.
const maxAlternatives = 24

// move replaces the assignments of the named sections. A single-section
// move carries one replacement; a faculty move carries one per section the
// faculty teaches.
type move struct {
	replace []model.Assignment
}

type moveResult struct {
	schedule   *model.Schedule
	violations int
	cost       float64
}

// refine runs the local-search phase: candidate moves are evaluated in
// parallel against a read-only snapshot, but acceptance is serialized in
// this loop so no two accepted moves can conflict. Moves that introduce any
// hard violation are rejected outright; non-improving moves are accepted
// with bounded probability to escape local minima. All randomness flows
// from the config seed, so identical inputs refine identically.
func (s *solver) refine(ctx context.Context, schedule *model.Schedule) *model.Schedule {
	current := schedule
	_, cost := s.eval.Evaluate(current)

	if len(current.Assignments) == 0 || s.cfg.MoveBudget <= 0 {
		current.SoftCost = cost
		return current
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))

	for step := 0; step < s.cfg.MoveBudget; step++ {
		if ctx.Err() != nil {
			break
		}

		moves := s.proposeMoves(current, rng)
		if len(moves) == 0 {
			continue
		}

		results := s.evaluateMoves(current, moves)

		best := -1
		for i, r := range results {
			if r.violations > 0 {
				continue
			}
			if best < 0 || r.cost < results[best].cost {
				best = i
			}
		}
		if best < 0 {
			continue
		}

		if results[best].cost < cost || rng.Float64() < s.cfg.WorseMoveProbability {
			current = results[best].schedule
			cost = results[best].cost
		}
	}

	current.SoftCost = cost
	return current
}

// proposeMoves picks a target (one section, or occasionally every section of
// one faculty) and enumerates capped alternative assignments for it.
func (s *solver) proposeMoves(current *model.Schedule, rng *rand.Rand) []move {
	if rng.Intn(4) == 0 {
		if moves := s.facultyMoves(current, rng); len(moves) > 0 {
			return moves
		}
	}

	target := current.Assignments[rng.Intn(len(current.Assignments))]
	return s.sectionMoves(current, target, rng)
}

// sectionMoves proposes relocations of one assignment to other feasible
// (slot, room, faculty) triples.
func (s *solver) sectionMoves(current *model.Schedule, target model.Assignment, rng *rand.Rand) []move {
	section := target.Section
	duration := s.m.Sections[section].Duration

	var all []move
	for _, faculty := range s.m.Qualified[section] {
		for room := range s.m.Rooms {
			if s.m.Rooms[room].ExamOnly || !s.m.RoomFits(section, room) {
				continue
			}
			for day := 0; day < s.m.Grid.Days; day++ {
				for start := 0; start+duration <= s.m.Grid.PeriodsPerDay; start++ {
					slot := model.SlotRange{Day: day, Start: start, Length: duration}
					if slot == target.Slot && room == target.Room && faculty == target.Faculty {
						continue
					}
					if !s.m.RoomAvailable(room, slot) || !s.m.FacultyAvailable(faculty, slot) {
						continue
					}
					all = append(all, move{replace: []model.Assignment{{
						Section: section,
						Slot:    slot,
						Room:    room,
						Faculty: faculty,
					}}})
				}
			}
		}
	}
	return sample(all, rng)
}

// facultyMoves proposes handing one faculty's whole block of sections to
// another faculty qualified for all of them.
func (s *solver) facultyMoves(current *model.Schedule, rng *rand.Rand) []move {
	from := rng.Intn(len(s.m.Faculty))

	var block []model.Assignment
	for _, a := range current.Assignments {
		if a.Faculty == from {
			block = append(block, a)
		}
	}
	if len(block) == 0 {
		return nil
	}

	var all []move
	for to := range s.m.Faculty {
		if to == from {
			continue
		}
		ok := true
		replace := make([]model.Assignment, 0, len(block))
		for _, a := range block {
			if !s.m.QualifiedFor(a.Section, to) || !s.m.FacultyAvailable(to, a.Slot) {
				ok = false
				break
			}
			moved := a
			moved.Faculty = to
			replace = append(replace, moved)
		}
		if ok {
			all = append(all, move{replace: replace})
		}
	}
	return sample(all, rng)
}

func sample(all []move, rng *rand.Rand) []move {
	if len(all) <= maxAlternatives {
		return all
	}
	picked := make([]move, 0, maxAlternatives)
	for _, i := range rng.Perm(len(all))[:maxAlternatives] {
		picked = append(picked, all[i])
	}
	return picked
}

// evaluateMoves scores every candidate move in parallel against the current
// snapshot. Results come back positionally, so the caller's pick is
// deterministic regardless of goroutine interleaving.
func (s *solver) evaluateMoves(current *model.Schedule, moves []move) []moveResult {
	results := make([]moveResult, len(moves))

	var wg sync.WaitGroup
	for i, mv := range moves {
		wg.Add(1)
		go func(i int, mv move) {
			defer wg.Done()
			candidate := applyMove(current, mv)
			violations, cost := s.eval.Evaluate(candidate)
			results[i] = moveResult{schedule: candidate, violations: len(violations), cost: cost}
		}(i, mv)
	}
	wg.Wait()

	return results
}

func applyMove(current *model.Schedule, mv move) *model.Schedule {
	candidate := current.Clone()
	for _, replacement := range mv.replace {
		for i, a := range candidate.Assignments {
			if a.Section == replacement.Section {
				candidate.Assignments[i] = replacement
				break
			}
		}
	}
	return candidate
}
