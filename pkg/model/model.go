package model

import (
	"slices"

	"github.com/samber/lo"
)

// Model is the fully resolved, immutable domain snapshot for one planning
// cycle. Entities are addressed by dense indexes; string ids are kept for
// the external interfaces. The clash graphs are precomputed once here so
// the solvers never touch raw enrollment data during search.
type Model struct {
	Grid     Grid
	Courses  []Course
	Rooms    []Room
	Faculty  []Faculty
	Sections []Section
	Exams    []Exam
	Students []string

	// Qualified holds, per section, the dense faculty indexes allowed to
	// teach it, in input order.
	Qualified [][]int
	// SectionStudents / ExamStudents hold dense student indexes.
	SectionStudents [][]int
	ExamStudents    [][]int
	// CourseSections holds, per course, the dense section indexes.
	CourseSections [][]int
	// Clash is the section clash graph: true when two sections share a
	// student or belong to the same elective exclusion group.
	Clash [][]bool
	// ExamClash is the analogous graph over exams (shared student).
	ExamClash [][]bool

	roomIndex    map[string]int
	facultyIndex map[string]int
	courseIndex  map[string]int
	sectionIndex map[string]int
	examIndex    map[string]int
	studentIndex map[string]int
}

func (m *Model) RoomIndex(id string) (int, bool) {
	i, ok := m.roomIndex[id]
	return i, ok
}

func (m *Model) FacultyIndex(id string) (int, bool) {
	i, ok := m.facultyIndex[id]
	return i, ok
}

func (m *Model) CourseIndex(id string) (int, bool) {
	i, ok := m.courseIndex[id]
	return i, ok
}

func (m *Model) SectionIndex(id string) (int, bool) {
	i, ok := m.sectionIndex[id]
	return i, ok
}

func (m *Model) ExamIndex(id string) (int, bool) {
	i, ok := m.examIndex[id]
	return i, ok
}

func (m *Model) StudentIndex(id string) (int, bool) {
	i, ok := m.studentIndex[id]
	return i, ok
}

// QualifiedFor reports whether the faculty may teach the section.
func (m *Model) QualifiedFor(section, faculty int) bool {
	return slices.Contains(m.Qualified[section], faculty)
}

// RoomFits reports whether the room satisfies the section's capacity and
// capability requirements (hard constraints 1 and 2).
func (m *Model) RoomFits(section, room int) bool {
	if m.Rooms[room].Capacity < m.Sections[section].Enrolled {
		return false
	}
	return lo.Every(m.Rooms[room].Tags, m.Sections[section].RequiredTags)
}

// buildClashGraph links every pair of sections that must never overlap:
// pairs sharing an enrolled student and elective siblings in the same
// exclusion group.
func buildClashGraph(sections []Section, sectionStudents [][]int) [][]bool {
	graph := make([][]bool, len(sections))
	for i := range graph {
		graph[i] = make([]bool, len(sections))
		graph[i][i] = true
	}

	for i := 0; i < len(sections)-1; i++ {
		for j := i + 1; j < len(sections); j++ {
			sameGroup := sections[i].ExclusionGroup != "" && sections[i].ExclusionGroup == sections[j].ExclusionGroup
			if sameGroup || shareStudent(sectionStudents[i], sectionStudents[j]) {
				graph[i][j] = true
				graph[j][i] = true
			}
		}
	}
	return graph
}

func buildExamClashGraph(examStudents [][]int) [][]bool {
	graph := make([][]bool, len(examStudents))
	for i := range graph {
		graph[i] = make([]bool, len(examStudents))
		graph[i][i] = true
	}
	for i := 0; i < len(examStudents)-1; i++ {
		for j := i + 1; j < len(examStudents); j++ {
			if shareStudent(examStudents[i], examStudents[j]) {
				graph[i][j] = true
				graph[j][i] = true
			}
		}
	}
	return graph
}

func shareStudent(a, b []int) bool {
	return lo.SomeBy(a, func(s int) bool { return slices.Contains(b, s) })
}
