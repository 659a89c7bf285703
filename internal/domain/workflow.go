package domain

// WorkflowStatus represents the governance status of a creative asset
type WorkflowStatus string

const (
	StatusPendingA WorkflowStatus = "pending_a"
	StatusPendingB WorkflowStatus = "pending_b"
	StatusApproved WorkflowStatus = "approved"
	StatusRejected WorkflowStatus = "rejected"
)

// WorkflowAction is an operation requested against an asset's status
type WorkflowAction string

const (
	ActionReviewAApprove WorkflowAction = "review_a_approve"
	ActionReviewAReject  WorkflowAction = "review_a_reject"
	ActionAuditImage     WorkflowAction = "audit_image"
	ActionReviewBApprove WorkflowAction = "review_b_approve"
	ActionReviewBReject  WorkflowAction = "review_b_reject"
)

// Transition describes one row of the workflow table: which status an
// action applies to, who may perform it, what it requires, and where it
// lands. audit_image keeps the status unchanged.
type Transition struct {
	From                 WorkflowStatus
	To                   WorkflowStatus
	Role                 Role
	RequiresReason       bool
	RequiresPassingAudit bool
}

var transitionTable = map[WorkflowAction]Transition{
	ActionReviewAApprove: {From: StatusPendingA, To: StatusPendingB, Role: RoleApproverA},
	ActionReviewAReject:  {From: StatusPendingA, To: StatusRejected, Role: RoleApproverA, RequiresReason: true},
	ActionAuditImage:     {From: StatusPendingB, To: StatusPendingB, Role: RoleApproverB},
	ActionReviewBApprove: {From: StatusPendingB, To: StatusApproved, Role: RoleApproverB, RequiresPassingAudit: true},
	ActionReviewBReject:  {From: StatusPendingB, To: StatusRejected, Role: RoleApproverB, RequiresReason: true},
}

// TransitionFor returns the table entry for an action.
func TransitionFor(action WorkflowAction) (Transition, bool) {
	t, ok := transitionTable[action]
	return t, ok
}

// IsTerminal reports whether no further transitions are defined for a status.
func IsTerminal(s WorkflowStatus) bool {
	return s == StatusApproved || s == StatusRejected
}

// IsValidWorkflowStatus checks if a WorkflowStatus is valid
func IsValidWorkflowStatus(s WorkflowStatus) bool {
	switch s {
	case StatusPendingA, StatusPendingB, StatusApproved, StatusRejected:
		return true
	}
	return false
}
