package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/registry"
	"github.com/mbolis/quick-forms/routes/middlewares"
)

func formIdParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	formId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return 0, false
	}
	return formId, true
}

func ListQuestionTypes(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"questionTypes": app.Registry.GetQuestionTypes(r.Context()),
		})
	}
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in := registry.FormInput{}
		err := render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if id, ok := middlewares.IdentityFrom(r.Context()); ok && id.UserID != 0 {
			in.CreatedBy = &id.UserID
		}

		form, err := app.Registry.CreateForm(r.Context(), in)
		if err != nil {
			httpx.WriteError(w, "admin.create_form", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, form)
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive := r.URL.Query().Get("inactive") == "true"

		forms, err := app.Registry.ListForms(r.Context(), includeInactive)
		if err != nil {
			httpx.WriteError(w, "admin.list_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		form, err := app.Registry.GetForm(r.Context(), formId)
		if err != nil {
			httpx.WriteError(w, "admin.get_form", err)
			return
		}
		count, err := app.Registry.SubmissionCount(r.Context(), formId)
		if err != nil {
			httpx.WriteError(w, "admin.get_form.count", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"form":            form,
			"submissionCount": count,
		})
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		in := registry.FormInput{}
		err := render.DecodeJSON(r.Body, &in)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := app.Registry.UpdateForm(r.Context(), formId, in)
		if err != nil {
			httpx.WriteError(w, "admin.update_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

type activeRequest struct {
	Active bool `json:"active"`
}

func SetFormActive(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		req := activeRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Registry.SetActive(r.Context(), formId, req.Active)
		if err != nil {
			httpx.WriteError(w, "admin.set_active", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type publicRequest struct {
	Public bool `json:"public"`
}

func SetFormPublic(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, ok := formIdParam(w, r)
		if !ok {
			return
		}

		req := publicRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = app.Registry.SetPublic(r.Context(), formId, req.Public)
		if err != nil {
			httpx.WriteError(w, "admin.set_public", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
