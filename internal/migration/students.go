// students.go student table import
package migration

import (
	"strconv"
	"strings"
	"time"

	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

// placeholderLastName is used when a legacy name has no second token.
const placeholderLastName = "Unknown"

// splitName takes the first whitespace token as the first name and the
// remainder as the last name.
func splitName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", placeholderLastName
	}
	if len(fields) == 1 {
		return fields[0], placeholderLastName
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// classForYear looks up the class assignment for an admission year,
// defaulting when no assignment matches.
func (e *Engine) classForYear(year int) string {
	if year > 0 {
		if class, ok := e.settings.Migration.ClassAssignments[strconv.Itoa(year)]; ok {
			return class
		}
	}
	if e.settings.Migration.DefaultClass != "" {
		return e.settings.Migration.DefaultClass
	}
	return "other"
}

// admissionYear extracts the admission year from the record's year column
// or, failing that, from a 4-digit prefix of the admission number.
func admissionYear(record legacy.Record, yearCol, admissionNumber string) int {
	if year, ok := record.Int(yearCol); ok && year > 1900 {
		return year
	}
	if len(admissionNumber) >= 4 {
		if year, err := strconv.Atoi(admissionNumber[:4]); err == nil && year > 1900 && year < 2200 {
			return year
		}
	}
	return 0
}

// importStudents migrates the detected student table, deduplicating by
// admission number.
func (e *Engine) importStudents(det *TableDetection, onProgress ProgressFunc) (*BatchResult, error) {
	admissionCol := det.SourceColumn("admission_number")
	nameCol := det.SourceColumn("name")
	firstCol := det.SourceColumn("first_name")
	lastCol := det.SourceColumn("last_name")
	dobCol := det.SourceColumn("date_of_birth")
	classCol := det.SourceColumn("class")
	yearCol := det.SourceColumn("year")
	emailCol := det.SourceColumn("email")
	phoneCol := det.SourceColumn("phone")

	transform := func(record legacy.Record) Outcome {
		legacyID, hasLegacyID := record.Int(det.PrimaryKey)
		legacyKey := ""
		if hasLegacyID {
			legacyKey = strconv.Itoa(legacyID)
		}

		admissionNumber := record.Str(admissionCol)
		if admissionNumber == "" {
			return Skipped(ReasonMissingField, legacyKey, record.Str(nameCol))
		}

		existing, err := e.store.StudentByAdmissionNumber(admissionNumber)
		if err != nil {
			return Errored(err, legacyKey, admissionNumber)
		}
		if existing != nil {
			e.resolver.Register(EntityStudent, legacyKey, existing.ID)
			return Imported()
		}

		firstName := record.Str(firstCol)
		lastName := record.Str(lastCol)
		if firstName == "" {
			firstName, lastName = splitName(record.Str(nameCol))
		} else if lastName == "" {
			lastName = placeholderLastName
		}
		if firstName == "" {
			return Skipped(ReasonMissingField, legacyKey, admissionNumber)
		}

		year := admissionYear(record, yearCol, admissionNumber)

		student := datastore.Student{
			AdmissionNumber: admissionNumber,
			FirstName:       firstName,
			LastName:        lastName,
			Email:           record.Str(emailCol),
			Phone:           record.Str(phoneCol),
			Status:          "active",
			EnrollmentDate:  enrollmentDate(year),
		}

		// Invalid dates normalize to absent rather than rejecting the record.
		if dob, ok := parseLegacyDate(record.Str(dobCol)); ok {
			student.DateOfBirth = &dob
		}

		if class := record.Str(classCol); class != "" {
			student.ClassGrade = class
		} else {
			student.ClassGrade = e.classForYear(year)
		}

		if hasLegacyID {
			student.Notes = datastore.NewLegacyAnnotation(legacyID)
			student.LegacyStudentID = &legacyID
		}

		if err := e.store.InsertStudent(&student); err != nil {
			return Errored(err, legacyKey, admissionNumber)
		}

		e.resolver.Register(EntityStudent, legacyKey, student.ID)
		return Imported()
	}

	return runBatches(e.source, det.SourceTable, e.settings.Migration.BatchSize, transform, onProgress)
}

// enrollmentDate derives an enrollment date from the admission year, or
// falls back to today for unknown years.
func enrollmentDate(year int) time.Time {
	if year > 0 {
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Now()
}
