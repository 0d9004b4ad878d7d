package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.RequestID, middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	root.Method("GET", "/metrics", app.Metrics.Handler())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/forms/{slug}", PublicGetForm(app))
	api.
		With(middlewares.OptionalAuthorize(app.TokenSecret)).
		Post(`/forms/{id:^\d+$}/submissions`, PublicSubmitForm(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authorize(app.TokenSecret), middlewares.Editor)

		r.Get("/question-types", ListQuestionTypes(app))

		r.Route("/admin/forms", func(r chi.Router) {
			// CRUD form
			r.Post("/", CreateForm(app))
			r.Get("/", ListForms(app))
			r.Get(`/{id:^\d+$}`, GetFormById(app))
			r.Put(`/{id:^\d+$}`, UpdateForm(app))
			r.Put(`/{id:^\d+$}/active`, SetFormActive(app))
			r.Put(`/{id:^\d+$}/public`, SetFormPublic(app))

			r.Get(`/{id:^\d+$}/submissions`, GetSubmissionTable(app))
			r.Get(`/{id:^\d+$}/submissions.csv`, ExportSubmissions(app))
			r.Get(`/{id:^\d+$}/submissions/{sid}`, GetSubmission(app))
			r.Put(`/{id:^\d+$}/submissions/{sid}`, UpdateSubmission(app))
			r.Get(`/{id:^\d+$}/submissions/{sid}/extras`, GetSubmissionExtras(app))
			r.Put(`/{id:^\d+$}/submissions/{sid}/extras`, SaveSubmissionExtras(app))
		})
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
