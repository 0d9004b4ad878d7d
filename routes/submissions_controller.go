package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
)

// intQuery reads an optional integer query parameter; absent means 0.
func intQuery(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func GetSubmissionTable(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}
		page, err := intQuery(r, "page")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.page")
			return
		}
		pageSize, err := intQuery(r, "pageSize")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.page_size")
			return
		}

		table, err := app.Reader.ProjectTable(r.Context(), formId, page, pageSize)
		if err != nil {
			httpx.WriteError(w, "admin.project_table", err)
			return
		}

		render.JSON(w, r, table)
	}
}

func GetSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		detail, err := app.Reader.GetSubmission(r.Context(), formId, chi.URLParam(r, "sid"))
		if err != nil {
			httpx.WriteError(w, "admin.get_submission", err)
			return
		}

		render.JSON(w, r, detail)
	}
}

func UpdateSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		req := submitRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Writer.UpdateSubmissionAnswers(r.Context(), formId, chi.URLParam(r, "sid"), req.Answers)
		if err != nil {
			httpx.WriteError(w, "admin.update_submission", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type extrasResponse struct {
	HasExtras bool          `json:"hasExtras"`
	Extras    *model.Extras `json:"extras"`
}

// loadSubmission resolves the location of a submission of the form in the
// URL, failing with 404 when the submission belongs elsewhere.
func loadSubmission(app app.App, w http.ResponseWriter, r *http.Request, code string) (*model.FormTemplate, *model.SubmissionDetail, bool) {
	formId, ok := formIdParam(w, r)
	if !ok {
		return nil, nil, false
	}
	form, err := app.Registry.GetForm(r.Context(), formId)
	if err != nil {
		httpx.WriteError(w, code, err)
		return nil, nil, false
	}
	detail, err := app.Reader.GetSubmission(r.Context(), formId, chi.URLParam(r, "sid"))
	if err != nil {
		httpx.WriteError(w, code, err)
		return nil, nil, false
	}
	return form, detail, true
}

func GetSubmissionExtras(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, detail, ok := loadSubmission(app, w, r, "admin.get_extras")
		if !ok {
			return
		}

		render.JSON(w, r, extrasResponse{
			HasExtras: app.Extras.HasExtras(form.SectionLocation),
			Extras:    detail.Extras,
		})
	}
}

type extrasRequest struct {
	Fields map[string]any `json:"fields"`
}

func SaveSubmissionExtras(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := extrasRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, detail, ok := loadSubmission(app, w, r, "admin.save_extras")
		if !ok {
			return
		}

		ex, err := app.Extras.SaveExtras(r.Context(), form.SectionLocation, detail.Submission.ID, req.Fields)
		if err != nil {
			httpx.WriteError(w, "admin.save_extras", err)
			return
		}

		render.JSON(w, r, extrasResponse{HasExtras: true, Extras: ex})
	}
}
