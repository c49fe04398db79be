package queue

const (
	TypeRosterReconcile = "roster:reconcile"
	TypeOwnerRepair     = "school:owner_repair"
	TypeOwnerRepairScan = "school:owner_repair_scan"
)

// RosterReconcilePayload targets one class, or the whole school when
// ClassID is empty.
type RosterReconcilePayload struct {
	SchoolID string `json:"school_id"`
	ClassID  string `json:"class_id,omitempty"`
}

type OwnerRepairPayload struct {
	SchoolID string `json:"school_id"`
}
