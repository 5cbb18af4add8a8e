package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/codepet/classroom-sync-api/internal/models"
	"github.com/codepet/classroom-sync-api/internal/schema"
)

// Entities is the full canonical entity set derived from one snapshot.
type Entities struct {
	Classrooms  []models.Classroom
	Assignments []models.Assignment
	Submissions []models.Submission
	Enrollments []models.Enrollment
}

// Map transforms a validated snapshot of either generation into canonical
// entities. It performs no I/O and is deterministic for a given input.
func Map(res *schema.Result, ownerID string) *Entities {
	if res.Kind == schema.KindOptimized {
		return mapOptimized(res.Optimized, ownerID)
	}
	return mapLegacy(res.Legacy, ownerID)
}

func mapOptimized(snap *models.OptimizedSnapshot, ownerID string) *Entities {
	out := &Entities{}
	for _, c := range snap.Entities.Classrooms {
		out.Classrooms = append(out.Classrooms, mapClassroom(c, ownerID))
	}
	for _, a := range snap.Entities.Assignments {
		out.Assignments = append(out.Assignments, mapAssignment(a, a.CourseID, ownerID))
	}
	for _, s := range snap.Entities.Submissions {
		out.Submissions = append(out.Submissions, mapSubmission(s, s.CourseID, ownerID))
	}
	for _, e := range snap.Entities.Enrollments {
		out.Enrollments = append(out.Enrollments, mapEnrollment(e, e.CourseID, ownerID))
	}
	return out
}

func mapLegacy(snap *models.LegacySnapshot, ownerID string) *Entities {
	out := &Entities{}
	for _, c := range snap.Classrooms {
		out.Classrooms = append(out.Classrooms, mapClassroom(c.ClassroomInput, ownerID))
		for _, a := range c.Assignments {
			out.Assignments = append(out.Assignments, mapAssignment(a, c.ID, ownerID))
		}
		for _, s := range c.Submissions {
			out.Submissions = append(out.Submissions, mapSubmission(s, c.ID, ownerID))
		}
		for _, e := range c.Enrollments {
			out.Enrollments = append(out.Enrollments, mapEnrollment(e, c.ID, ownerID))
		}
	}
	return out
}

func mapClassroom(in models.ClassroomInput, ownerID string) models.Classroom {
	payload := models.Attributes{}
	putString(payload, "description", in.Description)
	putString(payload, "room", in.Room)
	putString(payload, "course_group_email", in.CourseGroupEmail)
	putString(payload, "alternate_link", in.AlternateLink)
	putString(payload, "course_state", in.CourseState)

	return models.Classroom{
		ID:      ClassroomID(in.ID),
		OwnerID: ownerID,
		Name:    in.Name,
		Section: in.Section,
		Payload: payload,
	}
}

func mapAssignment(in models.AssignmentInput, courseID, ownerID string) models.Assignment {
	if in.CourseID != "" {
		courseID = in.CourseID
	}
	maxPoints := in.MaxPoints
	if maxPoints <= 0 {
		maxPoints = models.DefaultMaxPoints
	}

	payload := models.Attributes{}
	putString(payload, "description", in.Description)
	putString(payload, "work_type", in.WorkType)
	putString(payload, "state", in.State)
	putString(payload, "alternate_link", in.AlternateLink)
	if in.QuizData != nil {
		payload["quiz_data"] = toMap(in.QuizData)
	}

	return models.Assignment{
		ID:          AssignmentID(courseID, in.ID),
		ClassroomID: ClassroomID(courseID),
		OwnerID:     ownerID,
		Title:       in.Title,
		MaxPoints:   maxPoints,
		DueDate:     normalizeTime(in.DueDate),
		IsQuiz:      in.QuizData != nil && in.QuizData.IsQuiz,
		Payload:     payload,
	}
}

func mapSubmission(in models.SubmissionInput, courseID, ownerID string) models.Submission {
	if in.CourseID != "" {
		courseID = in.CourseID
	}

	payload := models.Attributes{}
	putString(payload, "content", in.Content)
	putString(payload, "alternate_link", in.AlternateLink)
	if in.UpdatedAt != nil {
		payload["updated_at"] = in.UpdatedAt.UTC().Format(time.RFC3339)
	}
	payload["late"] = in.Late
	if len(in.Attachments) > 0 {
		payload["attachments"] = toMap(in.Attachments)
	}
	if in.Grade != nil {
		payload["grade"] = toMap(in.Grade)
	}

	sub := models.Submission{
		ID:           SubmissionID(courseID, in.CourseWorkID, in.ID),
		AssignmentID: AssignmentID(courseID, in.CourseWorkID),
		ClassroomID:  ClassroomID(courseID),
		OwnerID:      ownerID,
		StudentID:    in.StudentID,
		StudentName:  in.StudentName,
		StudentEmail: in.StudentEmail,
		Status:       models.ParseSubmissionStatus(in.Status),
		Version:      1,
		IsLatest:     true,
		SubmittedAt:  normalizeTime(in.SubmittedAt),
		Payload:      payload,
	}
	sub.ContentHash = submissionContentHash(in)
	return sub
}

func mapEnrollment(in models.EnrollmentInput, courseID, ownerID string) models.Enrollment {
	if in.CourseID != "" {
		courseID = in.CourseID
	}

	payload := models.Attributes{}
	putString(payload, "photo_url", in.PhotoURL)
	if in.JoinedAt != nil {
		payload["joined_at"] = in.JoinedAt.UTC().Format(time.RFC3339)
	}

	return models.Enrollment{
		ID:           EnrollmentID(courseID, in.UserID),
		ClassroomID:  ClassroomID(courseID),
		OwnerID:      ownerID,
		StudentID:    in.UserID,
		StudentName:  in.Name,
		StudentEmail: in.Email,
		Status:       models.EnrollmentStatusActive,
		Payload:      payload,
	}
}

// submissionContentHash fingerprints the content-bearing fields of a source
// submission. Map marshalling sorts keys, so the hash is order-independent.
func submissionContentHash(in models.SubmissionInput) string {
	content := map[string]interface{}{
		"status":  models.ParseSubmissionStatus(in.Status),
		"content": in.Content,
		"late":    in.Late,
	}
	if in.SubmittedAt != nil {
		content["submitted_at"] = in.SubmittedAt.UTC().Format(time.RFC3339)
	}
	if len(in.Attachments) > 0 {
		content["attachments"] = in.Attachments
	}
	if in.Grade != nil {
		content["grade"] = in.Grade
	}
	raw, _ := json.Marshal(content)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func putString(payload models.Attributes, key, value string) {
	if value != "" {
		payload[key] = value
	}
}

// toMap round-trips a struct through JSON so payload values stay inside the
// JSON type domain regardless of where they were produced.
func toMap(v interface{}) interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func normalizeTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
