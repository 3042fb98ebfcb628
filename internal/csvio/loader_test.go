package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"campustt/internal/repository"
)

func writeSnapshot(t *testing.T, dir string, withExams bool) {
	t.Helper()
	files := map[string]string{
		"courses.csv": "id,name\nMATH101,Calculus I\nPHYS101,Mechanics\n",
		"rooms.csv": "id,capacity,tags,exam_only,seat_columns,closed_days\n" +
			"R1,40,,false,0,\n" +
			"LAB1,25,lab;projector,false,4,2\n",
		"faculty.csv": "id,max_weekly_load,can_invigilate,busy_days\n" +
			"F1,0,true,\n" +
			"F2,10,true,4\n",
		"sections.csv": "id,course_id,duration,required_tags,qualified_faculty,exclusion_group\n" +
			"MATH101-A,MATH101,2,,F1,\n" +
			"PHYS101-A,PHYS101,2,lab,F2,\n",
		"enrollments.csv": "student_id,section_id\n" +
			"s1,MATH101-A\ns2,MATH101-A\ns2,PHYS101-A\ns3,PHYS101-A\n",
	}
	if withExams {
		files["exams.csv"] = "id,course_id,duration,density\nMATH101-FINAL,MATH101,3,2\n"
	}
	for name, content := range files {
		assert.Nil(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestLoadModelInput(t *testing.T) {
	t.Run("Full snapshot loads and builds", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		writeSnapshot(t, dir, true)

		// Act
		input, err := LoadModelInput(dir, 5, 9)

		// Assert
		assert.Nil(t, err)
		m, buildErr := input.Build()
		assert.Nil(t, buildErr)
		assert.Len(t, m.Courses, 2)
		assert.Len(t, m.Sections, 2)
		assert.Equal(t, []string{"lab", "projector"}, m.Rooms[1].Tags)
		assert.Equal(t, 4, m.Rooms[1].SeatColumns)
		assert.Equal(t, 10, m.Faculty[1].MaxWeeklyLoad)
	})

	t.Run("Closed days block the whole day", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		writeSnapshot(t, dir, false)

		// Act
		input, err := LoadModelInput(dir, 5, 9)

		// Assert
		assert.Nil(t, err)
		lab := input.Rooms[1]
		assert.Len(t, lab.Available, 5)
		assert.False(t, lab.Available[2][0], "LAB1 closed on day 2")
		assert.True(t, lab.Available[1][0])
		assert.Empty(t, input.Rooms[0].Available, "no closed days means fully open")
	})

	t.Run("Exam rosters derive from course enrollment, sorted", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		writeSnapshot(t, dir, true)

		// Act
		input, err := LoadModelInput(dir, 5, 9)

		// Assert
		assert.Nil(t, err)
		assert.Len(t, input.Exams, 1)
		assert.Equal(t, []string{"s1", "s2"}, input.Exams[0].Students)
		assert.Equal(t, 2, input.Exams[0].Density)
	})

	t.Run("Missing exams.csv is tolerated", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		writeSnapshot(t, dir, false)

		// Act
		input, err := LoadModelInput(dir, 5, 9)

		// Assert
		assert.Nil(t, err)
		assert.Empty(t, input.Exams)
	})

	t.Run("Day index outside the grid is rejected", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		writeSnapshot(t, dir, false)
		assert.Nil(t, os.WriteFile(filepath.Join(dir, "rooms.csv"),
			[]byte("id,capacity,tags,exam_only,seat_columns,closed_days\nR1,40,,false,0,7\n"), 0o644))

		// Act
		_, err := LoadModelInput(dir, 5, 9)

		// Assert
		assert.NotNil(t, err)
		assert.Contains(t, err.Error(), "outside grid")
	})
}

func TestExport(t *testing.T) {
	t.Run("Exported timetable round-trips through the CSV reader", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		path := filepath.Join(dir, "timetable.csv")
		c := &repository.Committed{
			CycleID: uuid.New(),
			Entries: []repository.Entry{
				{SectionID: "MATH101-A", Day: 0, Start: 0, Length: 2, RoomID: "R1", FacultyID: "F1"},
				{SectionID: "PHYS101-A", Day: 1, Start: 3, Length: 2, RoomID: "LAB1", FacultyID: "F2"},
			},
		}

		// Act
		err := ExportSchedule(path, c)

		// Assert
		assert.Nil(t, err)
		var rows []entryRow
		assert.Nil(t, readCSV(path, &rows))
		assert.Len(t, rows, 2)
		assert.Equal(t, "MATH101-A", rows[0].SectionID)
		assert.Equal(t, 3, rows[1].Start)
	})

	t.Run("Exported seating carries seat labels", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		path := filepath.Join(dir, "seating.csv")
		c := &repository.Committed{
			CycleID: uuid.New(),
			Seats: []repository.SeatEntry{
				{ExamID: "MATH101-FINAL", RoomID: "HALL", Seat: "R1C1", StudentID: "s1"},
				{ExamID: "MATH101-FINAL", RoomID: "HALL", Seat: "R1C3", StudentID: "s2"},
			},
		}

		// Act
		err := ExportSeating(path, c)

		// Assert
		assert.Nil(t, err)
		var rows []seatRow
		assert.Nil(t, readCSV(path, &rows))
		assert.Len(t, rows, 2)
		assert.Equal(t, "R1C3", rows[1].Seat)
	})
}
