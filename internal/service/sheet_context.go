package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

// sheetContext is the class, subject and term a score sheet belongs to.
type sheetContext struct {
	Class   models.Class
	Subject models.Subject
	Term    models.Term
}

func (c sheetContext) SchoolID() uint {
	return c.Class.SchoolID
}

func loadSheetContext(ctx context.Context, schools repository.SchoolRepository, classID, subjectID, termID uint) (sheetContext, error) {
	class, err := schools.GetClass(ctx, classID)
	if err != nil {
		return sheetContext{}, notFoundAs(err, ErrClassNotFound)
	}
	subject, err := schools.GetSubject(ctx, subjectID)
	if err != nil {
		return sheetContext{}, notFoundAs(err, ErrSubjectNotFound)
	}
	term, err := schools.GetTerm(ctx, termID)
	if err != nil {
		return sheetContext{}, notFoundAs(err, ErrTermNotFound)
	}

	if subject.SchoolID != class.SchoolID || term.SchoolID != class.SchoolID {
		return sheetContext{}, ErrSchoolMismatch
	}

	return sheetContext{Class: class, Subject: subject, Term: term}, nil
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
