package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// ModelInput is the raw snapshot handed over by the data-loading
// collaborator. Build resolves it into an immutable Model, failing fast
// with a ModelError on any referential or structural defect.
type ModelInput struct {
	Grid     GridInput      `mapstructure:"grid" validate:"required"`
	Courses  []CourseInput  `mapstructure:"courses" validate:"dive"`
	Rooms    []RoomInput    `mapstructure:"rooms" validate:"dive"`
	Faculty  []FacultyInput `mapstructure:"faculty" validate:"dive"`
	Sections []SectionInput `mapstructure:"sections" validate:"dive"`
	Exams    []ExamInput    `mapstructure:"exams" validate:"dive"`
}

type GridInput struct {
	Days          int `mapstructure:"days" validate:"gt=0"`
	PeriodsPerDay int `mapstructure:"periodsPerDay" validate:"gt=0"`
}

type CourseInput struct {
	ID   string `mapstructure:"id" validate:"required"`
	Name string `mapstructure:"name"`
}

type RoomInput struct {
	ID          string   `mapstructure:"id" validate:"required"`
	Capacity    int      `mapstructure:"capacity" validate:"gt=0"`
	Tags        []string `mapstructure:"tags"`
	ExamOnly    bool     `mapstructure:"examOnly"`
	SeatColumns int      `mapstructure:"seatColumns"`
	Available   [][]bool `mapstructure:"available"`
}

type FacultyInput struct {
	ID            string   `mapstructure:"id" validate:"required"`
	MaxWeeklyLoad int      `mapstructure:"maxWeeklyLoad" validate:"gte=0"`
	CanInvigilate bool     `mapstructure:"canInvigilate"`
	Available     [][]bool `mapstructure:"available"`
}

type SectionInput struct {
	ID               string   `mapstructure:"id" validate:"required"`
	CourseID         string   `mapstructure:"courseId" validate:"required"`
	Duration         int      `mapstructure:"duration" validate:"gt=0"`
	RequiredTags     []string `mapstructure:"requiredTags"`
	Enrolled         int      `mapstructure:"enrolled" validate:"gte=0"`
	QualifiedFaculty []string `mapstructure:"qualifiedFaculty" validate:"min=1"`
	Students         []string `mapstructure:"students"`
	ExclusionGroup   string   `mapstructure:"exclusionGroup"`
}

type ExamInput struct {
	ID       string   `mapstructure:"id" validate:"required"`
	CourseID string   `mapstructure:"courseId" validate:"required"`
	Duration int      `mapstructure:"duration" validate:"gt=0"`
	Density  int      `mapstructure:"density" validate:"gte=0"`
	Students []string `mapstructure:"students" validate:"min=1"`
}

// InputFromJSON reads a snapshot file produced by the loading collaborator.
func InputFromJSON(file string) (ModelInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ModelInput{}, err
	}

	var inputJSON map[string]any
	if err := json.Unmarshal(bytes, &inputJSON); err != nil {
		return ModelInput{}, err
	}

	var input ModelInput
	if err := mapstructure.Decode(inputJSON, &input); err != nil {
		return ModelInput{}, err
	}
	return input, nil
}

// Build validates the snapshot and resolves it into a Model. All ids must
// resolve; calendars must match the grid; durations must fit one day.
func (input ModelInput) Build() (*Model, error) {
	if err := validator.New().Struct(input); err != nil {
		return nil, &ModelError{Entity: "input", Reason: err.Error()}
	}

	grid := Grid{Days: input.Grid.Days, PeriodsPerDay: input.Grid.PeriodsPerDay}

	m := &Model{
		Grid:         grid,
		roomIndex:    make(map[string]int),
		facultyIndex: make(map[string]int),
		courseIndex:  make(map[string]int),
		sectionIndex: make(map[string]int),
		examIndex:    make(map[string]int),
		studentIndex: make(map[string]int),
	}

	for _, c := range input.Courses {
		if _, dup := m.courseIndex[c.ID]; dup {
			return nil, &ModelError{Entity: "course", ID: c.ID, Reason: "duplicate id"}
		}
		m.courseIndex[c.ID] = len(m.Courses)
		m.Courses = append(m.Courses, Course{ID: c.ID, Name: c.Name})
	}

	for _, r := range input.Rooms {
		if _, dup := m.roomIndex[r.ID]; dup {
			return nil, &ModelError{Entity: "room", ID: r.ID, Reason: "duplicate id"}
		}
		if err := checkCalendar(grid, r.Available); err != nil {
			return nil, &ModelError{Entity: "room", ID: r.ID, Reason: err.Error()}
		}
		columns := r.SeatColumns
		if columns <= 0 {
			columns = 6
		}
		m.roomIndex[r.ID] = len(m.Rooms)
		m.Rooms = append(m.Rooms, Room{
			ID:          r.ID,
			Capacity:    r.Capacity,
			Tags:        r.Tags,
			ExamOnly:    r.ExamOnly,
			SeatColumns: columns,
			Available:   r.Available,
		})
	}

	for _, f := range input.Faculty {
		if _, dup := m.facultyIndex[f.ID]; dup {
			return nil, &ModelError{Entity: "faculty", ID: f.ID, Reason: "duplicate id"}
		}
		if err := checkCalendar(grid, f.Available); err != nil {
			return nil, &ModelError{Entity: "faculty", ID: f.ID, Reason: err.Error()}
		}
		load := f.MaxWeeklyLoad
		if load == 0 {
			load = grid.Slots()
		}
		m.facultyIndex[f.ID] = len(m.Faculty)
		m.Faculty = append(m.Faculty, Faculty{
			ID:            f.ID,
			MaxWeeklyLoad: load,
			CanInvigilate: f.CanInvigilate,
			Available:     f.Available,
		})
	}

	m.CourseSections = make([][]int, len(m.Courses))

	for _, s := range input.Sections {
		if _, dup := m.sectionIndex[s.ID]; dup {
			return nil, &ModelError{Entity: "section", ID: s.ID, Reason: "duplicate id"}
		}
		course, ok := m.courseIndex[s.CourseID]
		if !ok {
			return nil, &ModelError{Entity: "section", ID: s.ID, Reason: fmt.Sprintf("unknown course %q", s.CourseID)}
		}
		if s.Duration > grid.PeriodsPerDay {
			return nil, &ModelError{Entity: "section", ID: s.ID, Reason: "duration exceeds periods per day"}
		}

		qualified := make([]int, 0, len(s.QualifiedFaculty))
		for _, id := range s.QualifiedFaculty {
			faculty, ok := m.facultyIndex[id]
			if !ok {
				return nil, &ModelError{Entity: "section", ID: s.ID, Reason: fmt.Sprintf("unknown faculty %q", id)}
			}
			qualified = append(qualified, faculty)
		}

		students := m.internStudents(s.Students)
		enrolled := s.Enrolled
		if enrolled == 0 {
			enrolled = len(students)
		}

		index := len(m.Sections)
		m.sectionIndex[s.ID] = index
		m.CourseSections[course] = append(m.CourseSections[course], index)
		m.Sections = append(m.Sections, Section{
			ID:               s.ID,
			CourseID:         s.CourseID,
			Duration:         s.Duration,
			RequiredTags:     s.RequiredTags,
			Enrolled:         enrolled,
			QualifiedFaculty: s.QualifiedFaculty,
			Students:         s.Students,
			ExclusionGroup:   s.ExclusionGroup,
		})
		m.Qualified = append(m.Qualified, qualified)
		m.SectionStudents = append(m.SectionStudents, students)
	}

	for _, e := range input.Exams {
		if _, dup := m.examIndex[e.ID]; dup {
			return nil, &ModelError{Entity: "exam", ID: e.ID, Reason: "duplicate id"}
		}
		if _, ok := m.courseIndex[e.CourseID]; !ok {
			return nil, &ModelError{Entity: "exam", ID: e.ID, Reason: fmt.Sprintf("unknown course %q", e.CourseID)}
		}
		if e.Duration > grid.PeriodsPerDay {
			return nil, &ModelError{Entity: "exam", ID: e.ID, Reason: "duration exceeds periods per day"}
		}
		density := e.Density
		if density == 0 {
			density = 1
		}

		m.examIndex[e.ID] = len(m.Exams)
		m.Exams = append(m.Exams, Exam{
			ID:       e.ID,
			CourseID: e.CourseID,
			Duration: e.Duration,
			Density:  density,
			Students: e.Students,
		})
		m.ExamStudents = append(m.ExamStudents, m.internStudents(e.Students))
	}

	m.Clash = buildClashGraph(m.Sections, m.SectionStudents)
	m.ExamClash = buildExamClashGraph(m.ExamStudents)

	return m, nil
}

func (m *Model) internStudents(ids []string) []int {
	dense := make([]int, 0, len(ids))
	for _, id := range ids {
		index, ok := m.studentIndex[id]
		if !ok {
			index = len(m.Students)
			m.studentIndex[id] = index
			m.Students = append(m.Students, id)
		}
		dense = append(dense, index)
	}
	return dense
}

func checkCalendar(grid Grid, calendar [][]bool) error {
	if len(calendar) == 0 {
		return nil
	}
	if len(calendar) != grid.Days {
		return fmt.Errorf("availability has %d days, grid has %d", len(calendar), grid.Days)
	}
	for day, periods := range calendar {
		if len(periods) != grid.PeriodsPerDay {
			return fmt.Errorf("availability day %d has %d periods, grid has %d", day, len(periods), grid.PeriodsPerDay)
		}
	}
	return nil
}
