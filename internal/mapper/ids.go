package mapper

import "fmt"

// Composite identifiers are pure functions of parent-scoped source IDs, so a
// re-import of the same source entity always lands on the same row.

// ClassroomID returns the canonical classroom identifier.
func ClassroomID(courseID string) string {
	return courseID
}

// AssignmentID returns the canonical assignment identifier.
func AssignmentID(courseID, courseWorkID string) string {
	return courseID + "_" + courseWorkID
}

// SubmissionID returns the canonical identifier of a submission lineage.
func SubmissionID(courseID, courseWorkID, submissionID string) string {
	return courseID + "_" + courseWorkID + "_" + submissionID
}

// SubmissionVersionID derives the identifier of a given version within a
// lineage. Version 1 keeps the base identifier.
func SubmissionVersionID(baseID string, version int) string {
	if version <= 1 {
		return baseID
	}
	return fmt.Sprintf("%s_v%d", baseID, version)
}

// EnrollmentID returns the canonical enrollment identifier.
func EnrollmentID(courseID, userID string) string {
	return courseID + "_" + userID
}
