package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/codepet/classroom-sync-api/internal/models"
)

// Kind discriminates which schema generation a payload matched.
type Kind string

// Supported schema generations.
const (
	KindOptimized Kind = "optimized"
	KindLegacy    Kind = "legacy"
)

// Result is the tagged outcome of a successful validation. Exactly one of
// Optimized or Legacy is set, according to Kind.
type Result struct {
	Kind      Kind
	Optimized *models.OptimizedSnapshot
	Legacy    *models.LegacySnapshot
}

// Teacher returns the declared owner regardless of generation.
func (r *Result) Teacher() models.TeacherInfo {
	if r.Kind == KindOptimized {
		return r.Optimized.Teacher
	}
	return r.Legacy.Teacher
}

// Metadata returns the snapshot metadata regardless of generation.
func (r *Result) Metadata() models.SnapshotMetadata {
	if r.Kind == KindOptimized {
		return r.Optimized.SnapshotMetadata
	}
	return r.Legacy.SnapshotMetadata
}

// Issue is one structural problem found while validating a candidate schema.
type Issue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports that neither candidate schema matched. It carries
// the full issue list from both attempts so callers can tell which
// generation the payload was meant to be.
type ValidationError struct {
	OptimizedIssues []Issue `json:"optimized_issues"`
	LegacyIssues    []Issue `json:"legacy_issues"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("snapshot matches neither schema: optimized has %d issues, legacy has %d issues",
		len(e.OptimizedIssues), len(e.LegacyIssues))
}

// Validator checks raw payloads against the optimized schema first, falling
// back to the legacy schema. Validation is all-or-nothing per candidate.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator. Issues are reported with json field names so
// they read as payload paths.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate attempts both schema generations in order.
func (v *Validator) Validate(raw []byte) (*Result, *ValidationError) {
	optimized := &models.OptimizedSnapshot{}
	optIssues := v.tryCandidate(raw, optimized)
	if len(optIssues) == 0 {
		return &Result{Kind: KindOptimized, Optimized: optimized}, nil
	}

	legacy := &models.LegacySnapshot{}
	legIssues := v.tryCandidate(raw, legacy)
	if len(legIssues) == 0 {
		return &Result{Kind: KindLegacy, Legacy: legacy}, nil
	}

	return nil, &ValidationError{OptimizedIssues: optIssues, LegacyIssues: legIssues}
}

func (v *Validator) tryCandidate(raw []byte, candidate interface{}) []Issue {
	if err := json.Unmarshal(raw, candidate); err != nil {
		return []Issue{{Field: "$", Rule: "json", Message: err.Error()}}
	}
	if err := v.validate.Struct(candidate); err != nil {
		var fieldErrs validator.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); ok {
			issues := make([]Issue, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				issues = append(issues, Issue{
					Field:   trimNamespaceRoot(fe.Namespace()),
					Rule:    fe.Tag(),
					Message: fe.Error(),
				})
			}
			return issues
		}
		return []Issue{{Field: "$", Rule: "struct", Message: err.Error()}}
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = fieldErrs
	return true
}

// trimNamespaceRoot drops the candidate struct name from the namespace so
// issues read as payload paths.
func trimNamespaceRoot(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
