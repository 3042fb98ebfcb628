package exam

import (
	"context"
	"fmt"
	"sort"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"go.uber.org/zap"

	"campustt/pkg/model"
)

// duty is one required invigilator slot in one room of one sitting.
type duty struct {
	exam int
	room int
	slot model.SlotRange
}

// invigilate covers every sitting's rooms with faculty: at least
// MinInvigilators per room, plus one per StudentsPerInvigilator seated
// students. Duties that overlap in time form a conflict cluster; within a
// cluster each faculty serves at most once, enforced by a maximum bipartite
// matching over (duty, eligible faculty) pairs. Instructors never invigilate
// their own course's exam unless the rules allow it, or the fallback policy
// relaxes the exclusion after a failed match.
func (s *scheduler) invigilate(ctx context.Context, sittings []model.ExamSitting, seats []model.SeatAssignment) ([]model.InvigilatorAssignment, error) {
	duties := s.collectDuties(sittings, seats)
	clusters := clusterDuties(duties)

	teaching := s.teachingFacultyBusy()
	instructors := s.instructorsByCourse()

	invigLoad := make([]int, len(s.m.Faculty))
	invigBusy := make([][]model.SlotRange, len(s.m.Faculty))

	var assignments []model.InvigilatorAssignment
	for _, cluster := range clusters {
		if ctx.Err() != nil {
			return nil, &model.InfeasibleError{Reason: "budget_exceeded", Budget: true}
		}

		matched, err := s.coverCluster(cluster, teaching, instructors, invigLoad, invigBusy, false)
		if err != nil {
			if !s.cfg.Exams.OwnCourseFallback || s.cfg.Exams.AllowOwnCourse {
				return nil, err
			}
			s.log.Warn("relaxing own-course invigilation exclusion", zap.String("reason", err.Error()))
			matched, err = s.coverCluster(cluster, teaching, instructors, invigLoad, invigBusy, true)
			if err != nil {
				return nil, err
			}
		}

		for i, faculty := range matched {
			d := cluster[i]
			assignments = append(assignments, model.InvigilatorAssignment{
				Exam:    d.exam,
				Room:    d.room,
				Slot:    d.slot,
				Faculty: faculty,
			})
			invigLoad[faculty] += d.slot.Length
			invigBusy[faculty] = append(invigBusy[faculty], d.slot)
		}
	}

	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Exam != assignments[j].Exam {
			return assignments[i].Exam < assignments[j].Exam
		}
		return assignments[i].Room < assignments[j].Room
	})
	return assignments, nil
}

// collectDuties expands sittings into per-room duty slots.
func (s *scheduler) collectDuties(sittings []model.ExamSitting, seats []model.SeatAssignment) []duty {
	seated := make(map[[2]int]int)
	for _, seat := range seats {
		seated[[2]int{seat.Exam, seat.Room}]++
	}

	var duties []duty
	for _, sitting := range sittings {
		for _, room := range sitting.Rooms {
			required := s.cfg.Exams.MinInvigilators
			if required < 1 {
				required = 1
			}
			if per := s.cfg.Exams.StudentsPerInvigilator; per > 0 {
				students := seated[[2]int{sitting.Exam, room}]
				if scaled := (students + per - 1) / per; scaled > required {
					required = scaled
				}
			}
			for i := 0; i < required; i++ {
				duties = append(duties, duty{exam: sitting.Exam, room: room, slot: sitting.Slot})
			}
		}
	}
	return duties
}

// clusterDuties groups duties into connected components of time overlap.
func clusterDuties(duties []duty) [][]duty {
	n := len(duties)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			if duties[i].slot.Overlaps(duties[j].slot) {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := make(map[int][]duty)
	order := make([]int, 0)
	for i, d := range duties {
		root := find(i)
		if _, seen := groups[root]; !seen {
			order = append(order, root)
		}
		groups[root] = append(groups[root], d)
	}

	clusters := make([][]duty, 0, len(groups))
	for _, root := range order {
		clusters = append(clusters, groups[root])
	}
	return clusters
}

// coverCluster assigns a faculty to every duty of one cluster. The maximum
// bipartite matching is the fast path; it requires a distinct faculty per
// duty, which is stricter than necessary when the cluster chains duties that
// do not pairwise overlap, so a failed matching falls back to an exhaustive
// assignment that only keeps truly overlapping duties on different faculty.
func (s *scheduler) coverCluster(cluster []duty, teaching [][]bool, instructors map[string]map[int]bool, invigLoad []int, invigBusy [][]model.SlotRange, relaxOwnCourse bool) ([]int, error) {
	eligible := s.eligibility(teaching, instructors, invigLoad, invigBusy, relaxOwnCourse)

	matched, err := s.matchCluster(cluster, eligible)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		matched = s.searchCluster(cluster, eligible)
	}
	if matched == nil {
		conflicts := map[string]bool{}
		for _, d := range cluster {
			conflicts[s.m.Exams[d.exam].ID] = true
		}
		ids := make([]string, 0, len(conflicts))
		for id := range conflicts {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, &model.InfeasibleError{
			Reason:    fmt.Sprintf("cannot cover %d invigilation duties with eligible faculty", len(cluster)),
			Conflicts: ids,
		}
	}
	return matched, nil
}

// eligibility builds the duty/faculty admissibility predicate against the
// committed teaching occupancy and the invigilation duties accepted so far.
func (s *scheduler) eligibility(teaching [][]bool, instructors map[string]map[int]bool, invigLoad []int, invigBusy [][]model.SlotRange, relaxOwnCourse bool) func(duty, int) bool {
	return func(d duty, faculty int) bool {
		f := s.m.Faculty[faculty]
		if !f.CanInvigilate {
			return false
		}
		if !s.m.FacultyAvailable(faculty, d.slot) {
			return false
		}
		if s.teachingLoad(faculty)+invigLoad[faculty]+d.slot.Length > f.MaxWeeklyLoad {
			return false
		}
		for p := d.slot.Start; p < d.slot.End(); p++ {
			if teaching[faculty][s.m.Grid.Index(d.slot.Day, p)] {
				return false
			}
		}
		for _, busy := range invigBusy[faculty] {
			if busy.Overlaps(d.slot) {
				return false
			}
		}
		if !s.cfg.Exams.AllowOwnCourse && !relaxOwnCourse {
			if instructors[s.m.Exams[d.exam].CourseID][faculty] {
				return false
			}
		}
		return true
	}
}

// matchCluster finds a maximum matching between the cluster's duties and
// eligible faculty. Returns nil when the matching cannot cover every duty.
func (s *scheduler) matchCluster(cluster []duty, eligible func(duty, int) bool) ([]int, error) {
	dutiesAny := make([]any, len(cluster))
	for i := range cluster {
		dutiesAny[i] = i
	}
	facultyAny := make([]any, len(s.m.Faculty))
	for i := range s.m.Faculty {
		facultyAny[i] = i
	}

	neighbours := func(left any, right any) (bool, error) {
		return eligible(cluster[left.(int)], right.(int)), nil
	}

	graph, err := bipartitegraph.NewBipartiteGraph(dutiesAny, facultyAny, neighbours)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()
	if len(matching) < len(cluster) {
		return nil, nil
	}

	matched := make([]int, len(cluster))
	for _, edge := range matching {
		matched[edge.Node1] = edge.Node2 - len(cluster)
	}
	return matched, nil
}

// searchCluster covers the duties by depth-first assignment, reusing a
// faculty across duties whose ranges stay disjoint. Clusters span a single
// overlap window, so the search space stays small.
func (s *scheduler) searchCluster(cluster []duty, eligible func(duty, int) bool) []int {
	matched := make([]int, len(cluster))
	var assign func(int) bool
	assign = func(i int) bool {
		if i == len(cluster) {
			return true
		}
		for faculty := range s.m.Faculty {
			if !eligible(cluster[i], faculty) {
				continue
			}
			free := true
			for j := 0; j < i; j++ {
				if matched[j] == faculty && cluster[j].slot.Overlaps(cluster[i].slot) {
					free = false
					break
				}
			}
			if !free {
				continue
			}
			matched[i] = faculty
			if assign(i + 1) {
				return true
			}
		}
		return false
	}
	if !assign(0) {
		return nil
	}
	return matched
}

// teachingFacultyBusy marks the committed timetable's faculty occupancy.
func (s *scheduler) teachingFacultyBusy() [][]bool {
	busy := make([][]bool, len(s.m.Faculty))
	for i := range busy {
		busy[i] = make([]bool, s.m.Grid.Slots())
	}
	if s.committed == nil {
		return busy
	}
	for _, a := range s.committed.Assignments {
		for p := a.Slot.Start; p < a.Slot.End(); p++ {
			busy[a.Faculty][s.m.Grid.Index(a.Slot.Day, p)] = true
		}
	}
	return busy
}

func (s *scheduler) teachingLoad(faculty int) int {
	if s.committed == nil {
		return 0
	}
	load := 0
	for _, a := range s.committed.Assignments {
		if a.Faculty == faculty {
			load += a.Slot.Length
		}
	}
	return load
}

// instructorsByCourse derives, from the committed timetable, which faculty
// teach each course; those are the own-course exclusion targets.
func (s *scheduler) instructorsByCourse() map[string]map[int]bool {
	result := make(map[string]map[int]bool)
	if s.committed == nil {
		return result
	}
	for _, a := range s.committed.Assignments {
		course := s.m.Sections[a.Section].CourseID
		if result[course] == nil {
			result[course] = make(map[int]bool)
		}
		result[course][a.Faculty] = true
	}
	return result
}
