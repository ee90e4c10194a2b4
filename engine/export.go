package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/log"
	"github.com/datarhei/settings/validate"

	"github.com/Masterminds/semver/v3"
	"github.com/lestrrat-go/strftime"
)

// Export is the exchange format of the settings.
type Export struct {
	Settings document.Document `json:"settings"`
	Metadata ExportMetadata    `json:"metadata"`
}

type ExportMetadata struct {
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
	HotelName  string    `json:"hotelName"`
}

// ImportFormatError is returned if an import doesn't have the structure of
// an export. Nothing has been written in this case.
type ImportFormatError struct {
	Reason string
	Err    error
}

func (e *ImportFormatError) Error() string {
	if e.Err == nil {
		return "invalid import: " + e.Reason
	}

	return fmt.Sprintf("invalid import: %s: %s", e.Reason, e.Err)
}

func (e *ImportFormatError) Unwrap() error {
	return e.Err
}

// compatible are the export versions that can be imported.
var compatible = mustConstraint("^1")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}

	return constraint
}

func (e *engine) ExportAll(ctx context.Context) (Export, error) {
	doc, err := e.LoadAll(ctx)
	if err != nil {
		return Export{}, err
	}

	label := e.label

	if general, ok := doc[document.General]; ok {
		if name, ok := general["hotelName"].(string); ok && len(name) != 0 {
			label = name
		}
	}

	return Export{
		Settings: doc,
		Metadata: ExportMetadata{
			ExportDate: e.now().UTC(),
			Version:    e.version,
			HotelName:  label,
		},
	}, nil
}

// ExportFilename returns the name of an export file created at t.
func (e *engine) ExportFilename(t time.Time) string {
	name, err := strftime.Format("hotel-settings-%Y-%m-%d.json", t.UTC())
	if err != nil {
		return "hotel-settings-" + t.UTC().Format("2006-01-02") + ".json"
	}

	return name
}

// ParseImport decodes an export file. Syntax errors carry the line and
// the character of the error.
func ParseImport(data []byte) (Export, error) {
	payload := Export{}

	if err := json.Unmarshal(data, &payload); err != nil {
		return Export{}, &ImportFormatError{
			Reason: "malformed JSON",
			Err:    json.FormatError(data, err),
		}
	}

	return payload, nil
}

func checkImport(payload Export) error {
	if payload.Settings == nil {
		return &ImportFormatError{Reason: "settings are missing"}
	}

	for section := range payload.Settings {
		if !section.IsValid() {
			return &ImportFormatError{Reason: fmt.Sprintf("unknown section '%s'", section)}
		}
	}

	if len(payload.Metadata.Version) != 0 {
		version, err := semver.NewVersion(payload.Metadata.Version)
		if err != nil {
			return &ImportFormatError{Reason: "invalid version", Err: err}
		}

		if !compatible.Check(version) {
			return &ImportFormatError{Reason: fmt.Sprintf("version %s is not compatible with %s", version, compatible)}
		}
	}

	return nil
}

// ImportAll stores the settings of an export. All sections are validated
// before anything is written.
func (e *engine) ImportAll(ctx context.Context, payload Export) (validate.Result, error) {
	if err := checkImport(payload); err != nil {
		return validate.Result{}, err
	}

	result, err := e.SaveAll(ctx, payload.Settings)
	if err != nil {
		return result, err
	}

	if result.Valid {
		e.logger.Info().WithFields(log.Fields{
			"sections": len(payload.Settings),
			"version":  payload.Metadata.Version,
		}).Log("Imported settings")
	}

	return result, nil
}
