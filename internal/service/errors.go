package service

import "errors"

var (
	// ErrForbidden indicates the actor may not access the requested school data.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrClassNotFound indicates the class was not located.
	ErrClassNotFound = errors.New("class not found")
	// ErrTermNotFound indicates the term was not located.
	ErrTermNotFound = errors.New("term not found")
	// ErrSubjectNotFound indicates the subject was not located.
	ErrSubjectNotFound = errors.New("subject not found")
	// ErrStudentNotFound indicates the student was not located.
	ErrStudentNotFound = errors.New("student not found")
	// ErrStudentNotInClass indicates a score was entered for a student outside the class.
	ErrStudentNotInClass = errors.New("student does not belong to class")
	// ErrSchoolMismatch indicates records from different schools were combined.
	ErrSchoolMismatch = errors.New("records belong to different schools")
)
