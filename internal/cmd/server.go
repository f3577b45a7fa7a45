package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/kyisaiah47/deep-cut-sub000/internal/api"
)

func setupServer(cfg *Config, services *Services) *http.Server {
	router := api.NewRouter(services.Handler)

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: c.Handler(router),
	}
}
