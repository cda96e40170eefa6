package api

import "github.com/RoyceAzure/lab/storefront/internal/api/handler"

type Server struct {
	HealthHandler  *handler.HealthHandler
	ProductHandler *handler.ProductHandler
	CartHandler    *handler.CartHandler
	OrderHandler   *handler.OrderHandler
	UserHandler    *handler.UserHandler
}

func NewServer(
	healthHandler *handler.HealthHandler,
	productHandler *handler.ProductHandler,
	cartHandler *handler.CartHandler,
	orderHandler *handler.OrderHandler,
	userHandler *handler.UserHandler,
) *Server {
	return &Server{
		HealthHandler:  healthHandler,
		ProductHandler: productHandler,
		CartHandler:    cartHandler,
		OrderHandler:   orderHandler,
		UserHandler:    userHandler,
	}
}
