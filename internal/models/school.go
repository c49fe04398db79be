package models

import "time"

type SchoolStatus string

const (
	SchoolPending   SchoolStatus = "Pending"
	SchoolApproved  SchoolStatus = "Approved"
	SchoolRejected  SchoolStatus = "Rejected"
	SchoolSuspended SchoolStatus = "Suspended"
	SchoolClosed    SchoolStatus = "Closed"
)

func (s SchoolStatus) Valid() bool {
	switch s {
	case SchoolPending, SchoolApproved, SchoolRejected, SchoolSuspended, SchoolClosed:
		return true
	}
	return false
}

type SchoolFeature string

const (
	FeatureAttendance    SchoolFeature = "Attendance"
	FeatureGrading       SchoolFeature = "Grading"
	FeatureFinance       SchoolFeature = "Finance"
	FeatureHR            SchoolFeature = "HR"
	FeatureLibrary       SchoolFeature = "Library"
	FeatureTransport     SchoolFeature = "Transport"
	FeatureInventory     SchoolFeature = "Inventory"
	FeatureMessaging     SchoolFeature = "Messaging"
	FeatureEvents        SchoolFeature = "Events"
	FeatureReports       SchoolFeature = "Reports"
	FeatureParentPortal  SchoolFeature = "ParentPortal"
	FeatureStudentPortal SchoolFeature = "StudentPortal"
)

// StarterFeatures is the feature set every newly registered school gets.
func StarterFeatures() []SchoolFeature {
	return []SchoolFeature{FeatureAttendance, FeatureGrading}
}

type School struct {
	ID              string          `json:"id" bson:"_id,omitempty"`
	Name            string          `json:"name" bson:"name"`
	NameKm          *string         `json:"name_km,omitempty" bson:"name_km,omitempty"`
	SchoolType      string          `json:"school_type" bson:"school_type"`
	EducationLevels []string        `json:"education_levels" bson:"education_levels"`
	Description     *string         `json:"description,omitempty" bson:"description,omitempty"`
	Address         *string         `json:"address,omitempty" bson:"address,omitempty"`
	Phone           *string         `json:"phone,omitempty" bson:"phone,omitempty"`
	Email           *string         `json:"email,omitempty" bson:"email,omitempty"`
	Website         *string         `json:"website,omitempty" bson:"website,omitempty"`
	Status          SchoolStatus    `json:"status" bson:"status"`
	Features        []SchoolFeature `json:"features" bson:"features"`
	ApprovedBy      *string         `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty" bson:"rejection_reason,omitempty"`

	Audit      `bson:",inline"`
	SoftDelete `bson:",inline"`
}
