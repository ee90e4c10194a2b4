package api

import (
	"net/http"

	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"

	"github.com/invopop/jsonschema"
	"github.com/labstack/echo/v4"
)

// The SchemaHandler type provides the JSON schemas of the sections and of
// the export format.
type SchemaHandler struct {
	engine engine.Engine
	export []byte
}

// NewSchema returns a new SchemaHandler type. You have to provide an engine.
func NewSchema(e engine.Engine) (*SchemaHandler, error) {
	h := &SchemaHandler{
		engine: e,
	}

	export, err := jsonschema.Reflect(&api.Export{}).MarshalJSON()
	if err != nil {
		return nil, err
	}

	h.export = export

	return h, nil
}

// Section returns the JSON schema of a section
// @Summary JSON schema of a section
// @ID schema-section
// @Produce json
// @Param section path string true "Section name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} api.Error
// @Router /api/v1/schema/{section} [get]
func (h *SchemaHandler) Section(c echo.Context) error {
	s, err := section(c)
	if err != nil {
		return err
	}

	schema, err := h.engine.Schema(s)
	if err != nil {
		return err
	}

	return c.JSONBlob(http.StatusOK, schema)
}

// Export returns the JSON schema of an export file
// @Summary JSON schema of an export file
// @ID schema-export
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/schema/export [get]
func (h *SchemaHandler) Export(c echo.Context) error {
	return c.JSONBlob(http.StatusOK, h.export)
}
