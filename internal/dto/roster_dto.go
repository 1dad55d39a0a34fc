package dto

// RosterSchool identifies the school being seeded. Code is the natural key.
type RosterSchool struct {
	Name string `json:"name" validate:"required,max=255"`
	Code string `json:"code" validate:"required,max=32"`
}

// RosterTerm describes an academic term.
type RosterTerm struct {
	Session   string `json:"session" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=64"`
	IsCurrent bool   `json:"is_current"`
}

// RosterSubject describes a subject taught in the school.
type RosterSubject struct {
	Name string `json:"name" validate:"required,max=128"`
	Code string `json:"code" validate:"omitempty,max=32"`
}

// RosterStudent describes an enrolled student. AdmissionNo is unique per school.
type RosterStudent struct {
	AdmissionNo    string `json:"admission_no" validate:"required,max=64"`
	Name           string `json:"name" validate:"required,max=255"`
	UserID         *uint  `json:"user_id"`
	GuardianUserID *uint  `json:"guardian_user_id"`
}

// RosterClass describes a class and the students enrolled in it.
type RosterClass struct {
	Name      string          `json:"name" validate:"required,max=128"`
	TeacherID *uint           `json:"teacher_id"`
	Students  []RosterStudent `json:"students" validate:"dive"`
}

// RosterSeedRequest loads or refreshes a school's academic structure.
type RosterSeedRequest struct {
	School   RosterSchool    `json:"school" validate:"required"`
	Terms    []RosterTerm    `json:"terms" validate:"dive"`
	Subjects []RosterSubject `json:"subjects" validate:"dive"`
	Classes  []RosterClass   `json:"classes" validate:"dive"`
}

// RosterSeedResponse reports how many records were written per kind.
type RosterSeedResponse struct {
	SchoolID uint `json:"school_id"`
	Terms    int  `json:"terms"`
	Subjects int  `json:"subjects"`
	Classes  int  `json:"classes"`
	Students int  `json:"students"`
}
