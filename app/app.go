package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/extras"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/location"
	"github.com/mbolis/quick-forms/metrics"
	"github.com/mbolis/quick-forms/registry"
	"github.com/mbolis/quick-forms/store"
	"github.com/mbolis/quick-forms/submission"
)

type App struct {
	*oauth.BearerServer
	config.Config

	Registry *registry.Registry
	Writer   *submission.Writer
	Reader   *submission.Reader
	Extras   *extras.Merger
	Metrics  *metrics.Metrics
}

// New wires every component on top of an open, migrated database.
func New(db *sql.DB, cfg config.Config) App {
	s := store.New(db)
	router := location.Default()
	m := metrics.New()
	merger := extras.New(s, router)

	return App{
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Registry:     registry.New(s, router),
		Writer:       submission.NewWriter(s, router, m),
		Reader:       submission.NewReader(s, router, merger, m, cfg.PageSize),
		Extras:       merger,
		Metrics:      m,
	}
}
