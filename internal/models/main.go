// Package models defines the core data structures for school-portal accounts,
// students, and their grade records.
package models

import (
	"database/sql"
	"time"
)

// Account represents a school-portal account owned by a user.
// Credentials are stored only in envelope-encrypted form; this process never
// persists them in plaintext.
type Account struct {
	// ID is the unique identifier for the account.
	ID string
	// EncryptedCredentials is the JSON-serialized envelope secret holding
	// the portal username and password.
	EncryptedCredentials string
	// ScheduleSlot is the quarter-hour offset (0, 15, 30, or 45) at which
	// this account is due for synchronization.
	ScheduleSlot int
	// Verified reports whether the account's portal credentials have been
	// confirmed by the provisioning flow. Only verified accounts sync.
	Verified bool
	// LastSyncAt is the time of the last completed sync pass, if any.
	LastSyncAt sql.NullTime
	// Students are the students enrolled under this account.
	Students []Student
}

// Student represents one child enrolled under an Account.
type Student struct {
	// ID is the unique identifier for the student.
	ID string
	// AccountID is the identifier of the owning Account.
	AccountID string
	// EncryptedIdentity is the JSON-serialized envelope secret holding the
	// student's external portal identifier.
	EncryptedIdentity string
}

// CurrentGrade is the latest known state of one course for one student.
// There is at most one row per (StudentID, CourseTitle); every sync pass
// overwrites it with the freshly fetched values.
type CurrentGrade struct {
	// ID is the unique identifier for the row.
	ID string
	// StudentID identifies the student the grade belongs to.
	StudentID string
	// CourseTitle is the course name as reported by the portal.
	CourseTitle string
	// Teacher is the staff name for the course.
	Teacher string
	// Room is the room designation for the course.
	Room string
	// Period is the class period for the course.
	Period string
	// CalculatedScore is the portal's calculated score string (e.g. "92.4 A-").
	CalculatedScore string
	// LastUpdated is the time of the most recent sync that touched this row.
	LastUpdated time.Time
}

// GradeHistoryEntry is an immutable audit record of one score transition.
// An entry is appended on the first sighting of a course and on every
// subsequent score change; entries are never mutated or deleted.
type GradeHistoryEntry struct {
	// ID is the unique identifier for the entry.
	ID string
	// StudentID identifies the student the entry belongs to.
	StudentID string
	// CourseTitle is the course name as reported by the portal.
	CourseTitle string
	// Teacher is the staff name at the time of recording.
	Teacher string
	// Room is the room designation at the time of recording.
	Room string
	// Period is the class period at the time of recording.
	Period string
	// CalculatedScore is the score string that triggered this entry.
	CalculatedScore string
	// RecordedAt is the time the transition was observed.
	RecordedAt time.Time
}
