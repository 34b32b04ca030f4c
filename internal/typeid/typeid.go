package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser        = "user"
	PrefixSession     = "sess"
	PrefixOp          = "op"
	PrefixPoint       = "pt"
	PrefixFunction    = "fn"
	PrefixSlider      = "sl"
	PrefixSegment     = "seg"
	PrefixPolygon     = "poly"
	PrefixMeasurement = "meas"
	PrefixAngle       = "ang"
	PrefixHistory     = "hist"
	PrefixAsset       = "asset"
	PrefixExport      = "exp"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string        { return New(PrefixUser) }
func NewSessionID() string     { return New(PrefixSession) }
func NewOpID() string          { return New(PrefixOp) }
func NewPointID() string       { return New(PrefixPoint) }
func NewFunctionID() string    { return New(PrefixFunction) }
func NewSliderID() string      { return New(PrefixSlider) }
func NewSegmentID() string     { return New(PrefixSegment) }
func NewPolygonID() string     { return New(PrefixPolygon) }
func NewMeasurementID() string { return New(PrefixMeasurement) }
func NewAngleID() string       { return New(PrefixAngle) }
func NewHistoryID() string     { return New(PrefixHistory) }
func NewAssetID() string       { return New(PrefixAsset) }
func NewExportID() string      { return New(PrefixExport) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}

// Prefix returns the type prefix of id.
func Prefix(id string) (string, error) {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	return parsed.Prefix(), nil
}
