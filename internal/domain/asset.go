package domain

import (
	"fmt"
	"time"
)

// AssetType represents the kind of creative asset generated from a manual
type AssetType string

const (
	AssetTypeProductDescription AssetType = "product_description"
	AssetTypeVideoScript        AssetType = "video_script"
	AssetTypeImagePrompt        AssetType = "image_prompt"
)

// CreativeAsset is the governed unit: generated content that moves through
// the two-stage approval workflow. Status only changes through the workflow
// engine; approved and rejected are terminal.
type CreativeAsset struct {
	ID              string
	ManualID        string
	CreatedByID     string
	AssetType       AssetType
	Brief           string
	GeneratedText   string
	Status          WorkflowStatus
	ReviewerAID     string
	ReviewerBID     string
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateAsset validates a CreativeAsset instance
func ValidateAsset(a *CreativeAsset) error {
	if a == nil {
		return fmt.Errorf("asset cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("asset ID is required")
	}

	if a.ManualID == "" {
		return fmt.Errorf("asset ManualID is required")
	}

	if a.CreatedByID == "" {
		return fmt.Errorf("asset CreatedByID is required")
	}

	if a.GeneratedText == "" {
		return fmt.Errorf("asset GeneratedText is required")
	}

	if !IsValidAssetType(a.AssetType) {
		return fmt.Errorf("asset AssetType is invalid: %s", a.AssetType)
	}

	if !IsValidWorkflowStatus(a.Status) {
		return fmt.Errorf("asset Status is invalid: %s", a.Status)
	}

	return nil
}

// IsValidAssetType checks if an AssetType is valid
func IsValidAssetType(t AssetType) bool {
	switch t {
	case AssetTypeProductDescription, AssetTypeVideoScript, AssetTypeImagePrompt:
		return true
	}
	return false
}
