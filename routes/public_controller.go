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
	"github.com/mbolis/quick-forms/routes/middlewares"
)

type submitRequest struct {
	Answers []model.AnswerInput `json:"answers"`
}

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := app.Registry.GetPublicForm(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			httpx.WriteError(w, "public.get_form", err)
			return
		}

		render.JSON(w, r, form)
	}
}

// PublicSubmitForm accepts anonymous answers for public forms. Private
// forms take submissions from authenticated callers only.
func PublicSubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := submitRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var userId *int64
		if id, ok := middlewares.IdentityFrom(r.Context()); ok && id.UserID != 0 {
			userId = &id.UserID
		}

		if userId == nil {
			form, err := app.Registry.GetForm(r.Context(), formId)
			if err != nil {
				httpx.WriteError(w, "public.submit.get_form", err)
				return
			}
			if !form.IsPublic {
				httpx.LogNotFound(w, "public.submit.private_form", formId)
				return
			}
		}

		sub, err := app.Writer.Submit(r.Context(), formId, req.Answers, userId)
		if err != nil {
			httpx.WriteError(w, "public.submit", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, sub)
	}
}
