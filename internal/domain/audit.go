package domain

import (
	"fmt"
	"time"
)

// AuditVerdict is the pass/fail outcome of a multimodal compliance check
type AuditVerdict string

const (
	VerdictPass AuditVerdict = "pass"
	VerdictFail AuditVerdict = "fail"
)

// MultimodalAudit records one automated compliance check of an asset image
// against the brand manual. Assets accumulate audit records over time; the
// workflow only requires that at least one passing record exists before
// final approval.
type MultimodalAudit struct {
	ID          string
	AssetID     string
	ApproverID  string
	ImageKey    string
	Verdict     AuditVerdict
	Explanation string
	Confidence  float64
	CreatedAt   time.Time
}

// ValidateAudit validates a MultimodalAudit instance
func ValidateAudit(a *MultimodalAudit) error {
	if a == nil {
		return fmt.Errorf("audit cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("audit ID is required")
	}

	if a.AssetID == "" {
		return fmt.Errorf("audit AssetID is required")
	}

	if a.Verdict != VerdictPass && a.Verdict != VerdictFail {
		return fmt.Errorf("audit Verdict is invalid: %s", a.Verdict)
	}

	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("audit Confidence must be within [0,1]: %f", a.Confidence)
	}

	return nil
}
