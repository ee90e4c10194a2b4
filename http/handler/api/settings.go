package api

import (
	"net/http"
	"time"

	"github.com/datarhei/settings/document"
	"github.com/datarhei/settings/encoding/json"
	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"
	"github.com/datarhei/settings/http/handler/util"

	"github.com/labstack/echo/v4"
)

// The SettingsHandler type provides handler functions for reading and
// changing the hotel settings.
type SettingsHandler struct {
	engine engine.Engine
}

// NewSettings returns a new SettingsHandler type. You have to provide an engine.
func NewSettings(e engine.Engine) *SettingsHandler {
	return &SettingsHandler{
		engine: e,
	}
}

func section(c echo.Context) (document.Section, error) {
	name := util.PathParam(c, "section")

	s, err := document.ParseSection(name)
	if err != nil {
		return "", api.Err(http.StatusNotFound, "Unknown section", "%s", err)
	}

	return s, nil
}

func validation(c echo.Context, valid bool, v api.Validation) error {
	if !valid {
		return c.JSON(http.StatusConflict, v)
	}

	return c.JSON(http.StatusOK, v)
}

// GetAll returns the stored settings
// @Summary Retrieve all settings
// @Description Retrieve all settings
// @ID settings-get
// @Produce json
// @Success 200 {object} api.Settings
// @Failure 503 {object} api.Error
// @Router /api/v1/settings [get]
func (h *SettingsHandler) GetAll(c echo.Context) error {
	doc, err := h.engine.LoadAll(c.Request().Context())
	if err != nil {
		return err
	}

	settings := api.Settings{}
	settings.Unmarshal(doc)

	return c.JSON(http.StatusOK, settings)
}

// SetAll validates and stores all settings. Nothing is stored if any section
// is invalid.
// @Summary Replace all settings
// @Description Replace all settings
// @ID settings-set
// @Accept json
// @Produce json
// @Param settings body api.Settings true "Settings"
// @Success 200 {object} api.Validation
// @Failure 400 {object} api.Error
// @Failure 409 {object} api.Validation
// @Router /api/v1/settings [put]
func (h *SettingsHandler) SetAll(c echo.Context) error {
	settings := api.Settings{}

	if err := util.ShouldBindJSON(c, &settings); err != nil {
		return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
	}

	doc, err := settings.Marshal()
	if err != nil {
		return api.Err(http.StatusBadRequest, "Invalid settings", "%s", err)
	}

	result, err := h.engine.SaveAll(c.Request().Context(), doc)
	if err != nil {
		return err
	}

	v := api.Validation{}
	v.Unmarshal(result)

	return validation(c, result.Valid, v)
}

// Reset removes all stored settings
// @Summary Remove all settings
// @Description Remove all settings, clear the cache and the history
// @ID settings-reset
// @Produce json
// @Success 200 {string} string
// @Router /api/v1/settings [delete]
func (h *SettingsHandler) Reset(c echo.Context) error {
	if err := h.engine.Reset(c.Request().Context()); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, "OK")
}

// GetSection returns the stored data of a section
// @Summary Retrieve a section
// @ID settings-get-section
// @Produce json
// @Param section path string true "Section name"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} api.Error
// @Router /api/v1/settings/{section} [get]
func (h *SettingsHandler) GetSection(c echo.Context) error {
	s, err := section(c)
	if err != nil {
		return err
	}

	data, err := h.engine.LoadSection(c.Request().Context(), s)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, data)
}

// SetSection validates and stores the data of a section
// @Summary Replace a section
// @ID settings-set-section
// @Accept json
// @Produce json
// @Param section path string true "Section name"
// @Param data body map[string]interface{} true "Section data"
// @Success 200 {object} api.Validation
// @Failure 409 {object} api.Validation
// @Router /api/v1/settings/{section} [put]
func (h *SettingsHandler) SetSection(c echo.Context) error {
	s, err := section(c)
	if err != nil {
		return err
	}

	data := document.Data{}

	if err := util.ShouldBindJSONValidation(c, &data, false); err != nil {
		return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
	}

	result, err := h.engine.SaveSection(c.Request().Context(), s, data)
	if err != nil {
		return err
	}

	v := api.Validation{}
	v.Unmarshal(result)

	return validation(c, result.Valid, v)
}

// EditSection applies an edit of a section to the working copy. With autosave
// enabled it is stored after a quiet period.
// @Summary Edit a section
// @ID settings-edit-section
// @Accept json
// @Produce json
// @Param section path string true "Section name"
// @Param data body map[string]interface{} true "Section data"
// @Success 200 {object} api.Validation
// @Failure 409 {object} api.Validation
// @Router /api/v1/settings/{section} [patch]
func (h *SettingsHandler) EditSection(c echo.Context) error {
	s, err := section(c)
	if err != nil {
		return err
	}

	data := document.Data{}

	if err := util.ShouldBindJSONValidation(c, &data, false); err != nil {
		return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
	}

	options := []engine.UpdateOption{}
	if util.DefaultQuery(c, "history", "true") == "false" {
		options = append(options, engine.SkipHistory())
	}

	result, err := h.engine.UpdateSection(s, data, options...)
	if err != nil {
		return err
	}

	v := api.Validation{}
	v.Unmarshal(result)

	return validation(c, result.Valid, v)
}

// ValidateField returns the message for a single field of a section
// @Summary Validate a field
// @ID settings-validate-field
// @Accept json
// @Produce json
// @Param section path string true "Section name"
// @Param field body api.FieldValidationRequest true "Field path and value"
// @Success 200 {object} api.FieldValidation
// @Router /api/v1/settings/{section}/validate [post]
func (h *SettingsHandler) ValidateField(c echo.Context) error {
	s, err := section(c)
	if err != nil {
		return err
	}

	req := api.FieldValidationRequest{}

	if err := util.ShouldBindJSON(c, &req); err != nil {
		return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
	}

	message := h.engine.ValidateField(s, req.Path, req.Value)

	return c.JSON(http.StatusOK, api.FieldValidation{
		Path:    req.Path,
		Valid:   len(message) == 0,
		Message: message,
	})
}

// Status returns the synchronization state of the settings
// @Summary Synchronization state
// @ID settings-status
// @Produce json
// @Success 200 {object} api.Status
// @Router /api/v1/settings/status [get]
func (h *SettingsHandler) Status(c echo.Context) error {
	status := api.Status{
		Unsaved:  h.engine.HasUnsavedChanges(),
		AutoSave: h.engine.AutoSave(),
		CanUndo:  h.engine.CanUndo(),
		CanRedo:  h.engine.CanRedo(),
		Sections: []api.SectionStatus{},
	}

	if t := h.engine.LastSaved(); !t.IsZero() {
		status.LastSaved = t.Unix()
	}

	for _, s := range document.Sections() {
		status.Sections = append(status.Sections, api.SectionStatus{
			Section: s.String(),
			State:   h.engine.State(s).String(),
			Errors:  h.engine.Errors(s),
		})
	}

	return c.JSON(http.StatusOK, status)
}

// Working returns the working copy including edits that are not yet stored
// @Summary Retrieve the working copy
// @ID settings-working
// @Produce json
// @Success 200 {object} api.Settings
// @Router /api/v1/settings/working [get]
func (h *SettingsHandler) Working(c echo.Context) error {
	settings := api.Settings{}
	settings.Unmarshal(h.engine.Document())

	return c.JSON(http.StatusOK, settings)
}

// Undo reverts the working copy to the state before the last edit
// @Summary Undo the last edit
// @ID settings-undo
// @Produce json
// @Success 200 {object} api.Settings
// @Failure 409 {object} api.Error
// @Router /api/v1/settings/undo [post]
func (h *SettingsHandler) Undo(c echo.Context) error {
	doc, ok := h.engine.Undo()
	if !ok {
		return api.Err(http.StatusConflict, "Nothing to undo")
	}

	settings := api.Settings{}
	settings.Unmarshal(doc)

	return c.JSON(http.StatusOK, settings)
}

// Redo applies the last undone edit again
// @Summary Redo the last undone edit
// @ID settings-redo
// @Produce json
// @Success 200 {object} api.Settings
// @Failure 409 {object} api.Error
// @Router /api/v1/settings/redo [post]
func (h *SettingsHandler) Redo(c echo.Context) error {
	doc, ok := h.engine.Redo()
	if !ok {
		return api.Err(http.StatusConflict, "Nothing to redo")
	}

	settings := api.Settings{}
	settings.Unmarshal(doc)

	return c.JSON(http.StatusOK, settings)
}

// Flush stores pending edits of the working copy now
// @Summary Store pending edits
// @ID settings-flush
// @Produce json
// @Success 200 {string} string
// @Failure 409 {object} api.Error
// @Router /api/v1/settings/flush [post]
func (h *SettingsHandler) Flush(c echo.Context) error {
	if err := h.engine.Flush(c.Request().Context()); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, "OK")
}

// SetAutoSave enables or disables autosave
// @Summary Enable or disable autosave
// @ID settings-autosave
// @Accept json
// @Produce json
// @Param autosave body api.AutoSave true "Autosave"
// @Success 200 {object} api.AutoSave
// @Router /api/v1/settings/autosave [put]
func (h *SettingsHandler) SetAutoSave(c echo.Context) error {
	req := api.AutoSave{}

	if err := util.ShouldBindJSON(c, &req); err != nil {
		return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
	}

	h.engine.SetAutoSave(req.Enable)

	return c.JSON(http.StatusOK, api.AutoSave{Enable: h.engine.AutoSave()})
}

// Export returns the stored settings as a downloadable export file
// @Summary Export the settings
// @ID settings-export
// @Produce json
// @Success 200 {object} api.Export
// @Router /api/v1/settings/export [get]
func (h *SettingsHandler) Export(c echo.Context) error {
	export, err := h.engine.ExportAll(c.Request().Context())
	if err != nil {
		return err
	}

	payload := api.Export{
		Metadata: api.ExportMetadata(export.Metadata),
	}
	payload.Settings.Unmarshal(export.Settings)

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	filename := h.engine.ExportFilename(time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+filename+"\"")

	return c.JSONBlob(http.StatusOK, data)
}

// Import replaces the settings with the content of an export file. Nothing
// is stored if the file is malformed or any section is invalid.
// @Summary Import the settings
// @ID settings-import
// @Accept json
// @Produce json
// @Param export body api.Export true "Export file"
// @Success 200 {object} api.Validation
// @Failure 400 {object} api.Error
// @Failure 409 {object} api.Validation
// @Router /api/v1/settings/import [post]
func (h *SettingsHandler) Import(c echo.Context) error {
	body, err := util.ReadJSON(c)
	if err != nil {
		return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
	}

	payload, err := engine.ParseImport(body)
	if err != nil {
		return err
	}

	result, err := h.engine.ImportAll(c.Request().Context(), payload)
	if err != nil {
		return err
	}

	v := api.Validation{}
	v.Unmarshal(result)

	return validation(c, result.Valid, v)
}
