// Seeder populates a development database with a demo teacher profile, a
// subject catalog and a spread of attendance records for dashboard work.
package main

import (
	"context"
	"log"
	"time"

	"attendtrack/backend/internal/identity"
	"attendtrack/backend/internal/records"
	"attendtrack/backend/internal/shared"
	"attendtrack/backend/internal/teacher"
)

func main() {
	shared.LoadEnv("")
	config, err := shared.LoadAppConfig()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	_, db, err := shared.ConnectMongoDB(&config.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := shared.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("FATAL: index creation failed: %v", err)
	}

	recordService := records.NewService(records.NewMongoStore(db))
	teacherService := teacher.NewService(teacher.NewMongoProfileStore(db), recordService)

	demo := &identity.Principal{
		UID:   "demo-teacher-001",
		Email: "demo.teacher@example.edu",
		Name:  "Demo Teacher",
	}

	if _, err := teacherService.Sync(ctx, demo); err != nil {
		log.Fatalf("FATAL: sync demo profile: %v", err)
	}

	subjects := []struct {
		stream   string
		semester int32
		subject  string
	}{
		{"CSE", 3, "DBMS"},
		{"CSE", 3, "OS"},
		{"ECE", 5, "VLSI"},
	}
	for _, s := range subjects {
		if _, err := teacherService.CreateSubject(ctx, demo, s.stream, s.semester, s.subject); err != nil {
			log.Printf("WARNING: create subject %s: %v", s.subject, err)
		}
	}

	// A week of records per subject with varying turnout.
	students := []string{"1AT21CS001", "1AT21CS002", "1AT21CS003", "1AT21CS004", "1AT21CS005"}
	for day := 0; day < 5; day++ {
		date := time.Now().AddDate(0, 0, -day).Format(shared.DateLayout)
		for i, s := range subjects {
			present := students[:len(students)-(day+i)%3]
			_, err := recordService.Record(ctx, records.Input{
				Date:                  date,
				Stream:                s.stream,
				Semester:              s.semester,
				Subject:               s.subject,
				StudentsPresent:       present,
				StudentsTotal:         int32(len(students)),
				TotalPossibleStudents: int32(len(students)) + 2,
				TeacherEmail:          demo.Email,
			})
			if err != nil {
				log.Printf("WARNING: seed record %s %s: %v", date, s.subject, err)
			}
		}
	}

	log.Println("INFO: seed complete")
}
