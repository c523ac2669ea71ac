package web

import (
	"errors"
	"net/http"

	"virtual-ward-intake/blobstore"
	"virtual-ward-intake/history"
	"virtual-ward-intake/intake"
	"virtual-ward-intake/models"

	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const fileField = "ecg"

type Handler struct {
	intake  *intake.Service
	history *history.Panel
	decoder *schema.Decoder
	log     zerolog.Logger
}

type intakeForm struct {
	HN string `schema:"hn"`
	BP string `schema:"bp"`
	HR string `schema:"hr"`
	O2 string `schema:"o2"`
}

type pageData struct {
	State          intake.State
	Form           intakeForm
	Message        string
	Errors         map[string]string
	FilterHN       string
	HistoryHeaders []string
	History        []models.HistoryEntry
	Saved          *models.UploadedFile
}

type historyResponse struct {
	HN      string                `json:"hn"`
	Headers []string              `json:"headers"`
	Rows    []models.HistoryEntry `json:"rows"`
}

func (h *Handler) Index(c echo.Context) error {
	hn := c.QueryParam("hn")
	data := &pageData{
		State:    intake.StateIdle,
		Form:     intakeForm{HN: hn},
		FilterHN: hn,
	}
	if hn != "" {
		data.State = intake.StateEditing
	}
	return h.render(c, http.StatusOK, data)
}

func (h *Handler) Submit(c echo.Context) error {
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to parse form: "+err.Error())
	}

	var form intakeForm
	if err := h.decoder.Decode(&form, values); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to parse input parameters: "+err.Error())
	}

	sub := intake.Submission{HN: form.HN, BP: form.BP, HR: form.HR, O2: form.O2}

	fh, err := c.FormFile(fileField)
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unable to read attachment: "+err.Error())
		}
		defer f.Close()
		sub.File = &intake.Attachment{Name: fh.Filename, Content: f}
	case errors.Is(err, http.ErrMissingFile):
		// Validation reports the missing attachment.
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read attachment: "+err.Error())
	}

	result, err := h.intake.Submit(c.Request().Context(), sub)
	data := &pageData{State: intake.StateAfter(err), FilterHN: form.HN}
	if err != nil {
		data.Form = form
		status, msg, fields := describe(err)
		data.Message = msg
		data.Errors = fields
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("submission failed")
		}
		return h.render(c, status, data)
	}

	data.Message = "Record saved."
	data.Saved = &result.File
	return h.render(c, http.StatusOK, data)
}

func (h *Handler) HistoryJSON(c echo.Context) error {
	hn := c.QueryParam("hn")
	rows, err := h.history.Rows(c.Request().Context(), hn)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, historyResponse{HN: hn, Headers: h.history.Headers(), Rows: rows})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// render fills in the sidebar for data.FilterHN and writes the page.
func (h *Handler) render(c echo.Context, status int, data *pageData) error {
	data.HistoryHeaders = h.history.Headers()
	rows, err := h.history.Rows(c.Request().Context(), data.FilterHN)
	if err != nil {
		h.log.Error().Err(err).Msg("history unavailable")
		rows = []models.HistoryEntry{}
		if data.Message == "" {
			data.Message = "History is unavailable right now."
		}
	}
	data.History = rows
	return c.Render(status, "index.html", data)
}

// describe maps a Submit error to a status, a user message and per-field
// messages.
func describe(err error) (int, string, map[string]string) {
	var (
		vErr      *intake.ValidationError
		partial   *intake.PartialFailureError
		remoteErr *intake.RemoteError
		shareErr  *blobstore.ShareError
		schemaErr *models.SchemaError
	)

	switch {
	case errors.As(err, &vErr):
		fields := make(map[string]string, len(vErr.Fields))
		for _, f := range vErr.Fields {
			fields[f.Field] = f.Message
		}
		return http.StatusBadRequest, "Please complete all fields correctly.", fields
	case errors.As(err, &partial):
		return http.StatusBadGateway, "The file was uploaded but the record was not saved: " + partial.Error(), nil
	case errors.As(err, &shareErr) && shareErr.Orphaned():
		return http.StatusBadGateway, "The file could not be shared and was left unshared in Drive (" + shareErr.FileID + "). No record was saved. Run `intake audit` to find it, then try again.", nil
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, "Could not reach the record store (" + string(remoteErr.Step) + "). Nothing was saved, please try again.", nil
	case errors.As(err, &schemaErr), errors.Is(err, models.ErrNoHeader):
		return http.StatusInternalServerError, "The record sheet is not set up correctly: " + err.Error(), nil
	default:
		return http.StatusInternalServerError, "Unexpected error: " + err.Error(), nil
	}
}
