package csvio

import (
	"os"

	"github.com/gocarina/gocsv"

	"campustt/internal/repository"
)

type entryRow struct {
	SectionID string `csv:"section_id"`
	Day       int    `csv:"day"`
	Start     int    `csv:"start"`
	Length    int    `csv:"length"`
	RoomID    string `csv:"room_id"`
	FacultyID string `csv:"faculty_id"`
}

type seatRow struct {
	ExamID    string `csv:"exam_id"`
	RoomID    string `csv:"room_id"`
	Seat      string `csv:"seat"`
	StudentID string `csv:"student_id"`
}

// ExportSchedule writes the committed timetable for the rendering
// collaborator.
func ExportSchedule(path string, c *repository.Committed) error {
	rows := make([]entryRow, 0, len(c.Entries))
	for _, e := range c.Entries {
		rows = append(rows, entryRow{
			SectionID: e.SectionID,
			Day:       e.Day,
			Start:     e.Start,
			Length:    e.Length,
			RoomID:    e.RoomID,
			FacultyID: e.FacultyID,
		})
	}
	return writeCSV(path, &rows)
}

// ExportSeating writes the committed exam seating plan.
func ExportSeating(path string, c *repository.Committed) error {
	rows := make([]seatRow, 0, len(c.Seats))
	for _, s := range c.Seats {
		rows = append(rows, seatRow{
			ExamID:    s.ExamID,
			RoomID:    s.RoomID,
			Seat:      s.Seat,
			StudentID: s.StudentID,
		})
	}
	return writeCSV(path, &rows)
}

func writeCSV(path string, rows any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gocsv.MarshalFile(rows, file)
}
