package api

import (
	"github.com/layarapp/layar-server/internal/search"
	"github.com/layarapp/layar-server/internal/service"
)

// Services groups the application services the API server calls.
type Services struct {
	Auth    *service.AuthService
	Catalog *service.CatalogService
	Search  *search.SearchIndex
}
