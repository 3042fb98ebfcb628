package csvio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"campustt/pkg/model"
)

// List-valued CSV columns are semicolon-separated.
const listSeparator = ";"

type courseRow struct {
	ID   string `csv:"id"`
	Name string `csv:"name"`
}

type roomRow struct {
	ID          string `csv:"id"`
	Capacity    int    `csv:"capacity"`
	Tags        string `csv:"tags"`
	ExamOnly    bool   `csv:"exam_only"`
	SeatColumns int    `csv:"seat_columns"`
	ClosedDays  string `csv:"closed_days"`
}

type facultyRow struct {
	ID            string `csv:"id"`
	MaxWeeklyLoad int    `csv:"max_weekly_load"`
	CanInvigilate bool   `csv:"can_invigilate"`
	BusyDays      string `csv:"busy_days"`
}

type sectionRow struct {
	ID               string `csv:"id"`
	CourseID         string `csv:"course_id"`
	Duration         int    `csv:"duration"`
	RequiredTags     string `csv:"required_tags"`
	QualifiedFaculty string `csv:"qualified_faculty"`
	ExclusionGroup   string `csv:"exclusion_group"`
}

type enrollmentRow struct {
	StudentID string `csv:"student_id"`
	SectionID string `csv:"section_id"`
}

type examRow struct {
	ID       string `csv:"id"`
	CourseID string `csv:"course_id"`
	Duration int    `csv:"duration"`
	Density  int    `csv:"density"`
}

// LoadModelInput reads the planning snapshot from a directory of CSV files
// (courses.csv, rooms.csv, faculty.csv, sections.csv, enrollments.csv,
// exams.csv). Exam enrollment is derived from section enrollment of the
// exam's course.
func LoadModelInput(dir string, days, periodsPerDay int) (model.ModelInput, error) {
	input := model.ModelInput{
		Grid: model.GridInput{Days: days, PeriodsPerDay: periodsPerDay},
	}

	var courses []courseRow
	if err := readCSV(filepath.Join(dir, "courses.csv"), &courses); err != nil {
		return input, err
	}
	for _, row := range courses {
		input.Courses = append(input.Courses, model.CourseInput{ID: row.ID, Name: row.Name})
	}

	var rooms []roomRow
	if err := readCSV(filepath.Join(dir, "rooms.csv"), &rooms); err != nil {
		return input, err
	}
	for _, row := range rooms {
		closed, err := parseDays(row.ClosedDays, days)
		if err != nil {
			return input, fmt.Errorf("rooms.csv %s: %w", row.ID, err)
		}
		input.Rooms = append(input.Rooms, model.RoomInput{
			ID:          row.ID,
			Capacity:    row.Capacity,
			Tags:        splitList(row.Tags),
			ExamOnly:    row.ExamOnly,
			SeatColumns: row.SeatColumns,
			Available:   availabilityFromClosedDays(closed, days, periodsPerDay),
		})
	}

	var faculty []facultyRow
	if err := readCSV(filepath.Join(dir, "faculty.csv"), &faculty); err != nil {
		return input, err
	}
	for _, row := range faculty {
		busy, err := parseDays(row.BusyDays, days)
		if err != nil {
			return input, fmt.Errorf("faculty.csv %s: %w", row.ID, err)
		}
		input.Faculty = append(input.Faculty, model.FacultyInput{
			ID:            row.ID,
			MaxWeeklyLoad: row.MaxWeeklyLoad,
			CanInvigilate: row.CanInvigilate,
			Available:     availabilityFromClosedDays(busy, days, periodsPerDay),
		})
	}

	var enrollments []enrollmentRow
	if err := readCSV(filepath.Join(dir, "enrollments.csv"), &enrollments); err != nil {
		return input, err
	}
	studentsBySection := make(map[string][]string)
	for _, row := range enrollments {
		studentsBySection[row.SectionID] = append(studentsBySection[row.SectionID], row.StudentID)
	}

	var sections []sectionRow
	if err := readCSV(filepath.Join(dir, "sections.csv"), &sections); err != nil {
		return input, err
	}
	studentsByCourse := make(map[string]map[string]bool)
	for _, row := range sections {
		students := studentsBySection[row.ID]
		if studentsByCourse[row.CourseID] == nil {
			studentsByCourse[row.CourseID] = make(map[string]bool)
		}
		for _, s := range students {
			studentsByCourse[row.CourseID][s] = true
		}
		input.Sections = append(input.Sections, model.SectionInput{
			ID:               row.ID,
			CourseID:         row.CourseID,
			Duration:         row.Duration,
			RequiredTags:     splitList(row.RequiredTags),
			QualifiedFaculty: splitList(row.QualifiedFaculty),
			Students:         students,
			ExclusionGroup:   row.ExclusionGroup,
		})
	}

	var exams []examRow
	if err := readCSV(filepath.Join(dir, "exams.csv"), &exams); err != nil {
		if os.IsNotExist(err) {
			return input, nil // exams are optional in a snapshot
		}
		return input, err
	}
	for _, row := range exams {
		students := make([]string, 0, len(studentsByCourse[row.CourseID]))
		for s := range studentsByCourse[row.CourseID] {
			students = append(students, s)
		}
		sort.Strings(students) // map order must not leak into the model
		input.Exams = append(input.Exams, model.ExamInput{
			ID:       row.ID,
			CourseID: row.CourseID,
			Duration: row.Duration,
			Density:  row.Density,
			Students: students,
		})
	}

	return input, nil
}

func readCSV(path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gocsv.UnmarshalFile(file, out)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, listSeparator)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseDays(raw string, days int) ([]int, error) {
	var parsed []int
	for _, part := range splitList(raw) {
		day, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad day index %q", part)
		}
		if day < 0 || day >= days {
			return nil, fmt.Errorf("day index %d outside grid", day)
		}
		parsed = append(parsed, day)
	}
	return parsed, nil
}

func availabilityFromClosedDays(closed []int, days, periodsPerDay int) [][]bool {
	if len(closed) == 0 {
		return nil
	}
	calendar := make([][]bool, days)
	for day := range calendar {
		calendar[day] = make([]bool, periodsPerDay)
		for p := range calendar[day] {
			calendar[day][p] = true
		}
	}
	for _, day := range closed {
		for p := range calendar[day] {
			calendar[day][p] = false
		}
	}
	return calendar
}
