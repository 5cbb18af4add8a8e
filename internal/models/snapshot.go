package models

import "time"

// TeacherInfo identifies the owner declared inside a snapshot.
type TeacherInfo struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// SnapshotMetadata carries collector bookkeeping. fetchedAt and expiresAt are
// volatile and never participate in content equality.
type SnapshotMetadata struct {
	FetchedAt time.Time `json:"fetchedAt" validate:"required"`
	ExpiresAt time.Time `json:"expiresAt"`
	Source    string    `json:"source" validate:"required"`
	Version   string    `json:"version"`
}

// GlobalStats are collector-side totals. They are informational only; the
// import derives its own counts from the persisted rows.
type GlobalStats struct {
	TotalClassrooms     int `json:"totalClassrooms"`
	TotalStudents       int `json:"totalStudents"`
	TotalAssignments    int `json:"totalAssignments"`
	TotalSubmissions    int `json:"totalSubmissions"`
	UngradedSubmissions int `json:"ungradedSubmissions"`
}

// ClassroomInput is one course as exported by the collector.
type ClassroomInput struct {
	ID               string `json:"id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Section          string `json:"section"`
	Description      string `json:"description"`
	Room             string `json:"room"`
	CourseGroupEmail string `json:"courseGroupEmail"`
	AlternateLink    string `json:"alternateLink"`
	CourseState      string `json:"courseState"`
	StudentCount     int    `json:"studentCount"`
}

// QuizData describes the optional quiz block attached to an assignment.
type QuizData struct {
	FormID                string  `json:"formId"`
	FormURL               string  `json:"formUrl"`
	Title                 string  `json:"title"`
	IsQuiz                bool    `json:"isQuiz"`
	TotalQuestions        int     `json:"totalQuestions"`
	TotalPoints           float64 `json:"totalPoints"`
	AutoGradableQuestions int     `json:"autoGradableQuestions"`
	ManualGradingRequired bool    `json:"manualGradingRequired"`
	CollectEmailAddresses bool    `json:"collectEmailAddresses"`
	AllowResponseEditing  bool    `json:"allowResponseEditing"`
	RequireSignIn         bool    `json:"requireSignIn"`
}

// AssignmentInput is one piece of course work.
type AssignmentInput struct {
	ID            string     `json:"id" validate:"required"`
	CourseID      string     `json:"courseId"`
	Title         string     `json:"title" validate:"required"`
	Description   string     `json:"description"`
	WorkType      string     `json:"workType"`
	State         string     `json:"state"`
	MaxPoints     float64    `json:"maxPoints"`
	DueDate       *time.Time `json:"dueDate"`
	AlternateLink string     `json:"alternateLink"`
	CreatedAt     *time.Time `json:"creationTime"`
	UpdatedAt     *time.Time `json:"updateTime"`
	QuizData      *QuizData  `json:"quizData"`
}

// AttachmentInput is a submission attachment reference.
type AttachmentInput struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// GradeInput is the grade block on a submission, when graded.
type GradeInput struct {
	Score    float64    `json:"score"`
	MaxScore float64    `json:"maxScore"`
	GradedBy string     `json:"gradedBy"`
	GradedAt *time.Time `json:"gradedAt"`
	Feedback string     `json:"feedback"`
}

// SubmissionInput is one student submission for a piece of course work.
type SubmissionInput struct {
	ID            string            `json:"id" validate:"required"`
	CourseID      string            `json:"courseId"`
	CourseWorkID  string            `json:"courseWorkId" validate:"required"`
	StudentID     string            `json:"studentId" validate:"required"`
	StudentName   string            `json:"studentName"`
	StudentEmail  string            `json:"studentEmail"`
	Status        string            `json:"status"`
	Late          bool              `json:"late"`
	Content       string            `json:"content"`
	AlternateLink string            `json:"alternateLink"`
	SubmittedAt   *time.Time        `json:"submittedAt"`
	UpdatedAt     *time.Time        `json:"updatedAt"`
	Attachments   []AttachmentInput `json:"attachments"`
	Grade         *GradeInput       `json:"grade"`
}

// EnrollmentInput is one student's membership in a course.
type EnrollmentInput struct {
	CourseID string     `json:"courseId"`
	UserID   string     `json:"userId" validate:"required"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	PhotoURL string     `json:"photoUrl"`
	JoinedAt *time.Time `json:"joinedAt"`
}

// SnapshotEntities is the flat collection block of the optimized schema.
type SnapshotEntities struct {
	Classrooms  []ClassroomInput  `json:"classrooms" validate:"required,min=1,dive"`
	Assignments []AssignmentInput `json:"assignments" validate:"dive"`
	Submissions []SubmissionInput `json:"submissions" validate:"dive"`
	Enrollments []EnrollmentInput `json:"enrollments" validate:"dive"`
}

// OptimizedSnapshot is the current-generation export: entities are flat and
// carry their own parent references.
type OptimizedSnapshot struct {
	Teacher          TeacherInfo       `json:"teacher" validate:"required"`
	GlobalStats      GlobalStats       `json:"globalStats"`
	SnapshotMetadata SnapshotMetadata  `json:"snapshotMetadata" validate:"required"`
	Entities         *SnapshotEntities `json:"entities" validate:"required"`
}

// LegacyClassroom nests the course's children inside the course itself.
type LegacyClassroom struct {
	ClassroomInput
	Assignments []AssignmentInput `json:"assignments" validate:"dive"`
	Submissions []SubmissionInput `json:"submissions" validate:"dive"`
	Enrollments []EnrollmentInput `json:"enrollments" validate:"dive"`
}

// LegacySnapshot is the first-generation export with per-classroom nesting.
type LegacySnapshot struct {
	Teacher          TeacherInfo       `json:"teacher" validate:"required"`
	GlobalStats      GlobalStats       `json:"globalStats"`
	SnapshotMetadata SnapshotMetadata  `json:"snapshotMetadata" validate:"required"`
	Classrooms       []LegacyClassroom `json:"classrooms" validate:"required,min=1,dive"`
}
