package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/campushub/enrollment-api/internal/models"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
)

type lookupStudentReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Student, error)
}

type lookupClassReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Class, error)
}

type lookupYearReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.AcademicYear, error)
}

// Lookups resolves referenced entities within a school. Every lookup carries
// the school id, so a record belonging to another school resolves the same way
// as a missing one.
type Lookups struct {
	students lookupStudentReader
	classes  lookupClassReader
	years    lookupYearReader
}

// NewLookups constructs the shared lookup helper.
func NewLookups(students lookupStudentReader, classes lookupClassReader, years lookupYearReader) *Lookups {
	return &Lookups{students: students, classes: classes, years: years}
}

// Student resolves a student by id within the school.
func (l *Lookups) Student(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Student, error) {
	student, err := l.students.FindByID(ctx, exec, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// Class resolves a class by id within the school.
func (l *Lookups) Class(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.Class, error) {
	class, err := l.classes.FindByID(ctx, exec, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch class")
	}
	return class, nil
}

// AcademicYear resolves an academic year by id within the school.
func (l *Lookups) AcademicYear(ctx context.Context, exec sqlx.ExtContext, schoolID, id string) (*models.AcademicYear, error) {
	year, err := l.years.FindByID(ctx, exec, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch academic year")
	}
	return year, nil
}
