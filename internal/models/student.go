package models

// Student holds the authoritative class assignment in CurrentClassID.
type Student struct {
	ID             string  `json:"id" bson:"_id,omitempty"`
	SchoolID       string  `json:"school_id" bson:"school_id"`
	BranchID       *string `json:"branch_id,omitempty" bson:"branch_id,omitempty"`
	StudentCode    string  `json:"student_code" bson:"student_code"`
	FirstName      string  `json:"first_name" bson:"first_name"`
	LastName       string  `json:"last_name" bson:"last_name"`
	GradeLevel     string  `json:"grade_level" bson:"grade_level"`
	CurrentClassID *string `json:"current_class_id,omitempty" bson:"current_class_id,omitempty"`
	Status         string  `json:"status" bson:"status"`

	Audit `bson:",inline"`
}

// Class keeps a denormalized roster in StudentIDs. The roster is a cache of
// Student.CurrentClassID and may drift from it.
type Class struct {
	ID                string   `json:"id" bson:"_id,omitempty"`
	SchoolID          string   `json:"school_id" bson:"school_id"`
	BranchID          *string  `json:"branch_id,omitempty" bson:"branch_id,omitempty"`
	AcademicYearID    string   `json:"academic_year_id" bson:"academic_year_id"`
	Name              string   `json:"name" bson:"name"`
	Code              string   `json:"code" bson:"code"`
	GradeLevel        string   `json:"grade_level" bson:"grade_level"`
	HomeroomTeacherID *string  `json:"homeroom_teacher_id,omitempty" bson:"homeroom_teacher_id,omitempty"`
	StudentIDs        []string `json:"student_ids" bson:"student_ids"`

	Audit      `bson:",inline"`
	SoftDelete `bson:",inline"`
}
