package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ovenworks/bakehouse-backend/api/controllers"
	"github.com/ovenworks/bakehouse-backend/api/middleware"
	cartsvc "github.com/ovenworks/bakehouse-backend/internal/cart"
	"github.com/ovenworks/bakehouse-backend/internal/identity"
	ordersvc "github.com/ovenworks/bakehouse-backend/internal/orders"
	productsvc "github.com/ovenworks/bakehouse-backend/internal/products"
	"github.com/ovenworks/bakehouse-backend/pkg/config"
	"github.com/ovenworks/bakehouse-backend/pkg/logger"
)

type identityResolver interface {
	Resolve(ctx context.Context, authHeader, deviceID string) (identity.Identity, error)
}

// RouterParams carry everything the storefront API serves.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Resolver identityResolver
	Products productsvc.Service
	Cart     cartsvc.Service
	Orders   ordersvc.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": params.DB,
			"redis":    params.Redis,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(params.Products, logg))
			r.Get("/{productID}", controllers.ProductGet(params.Products, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Identity(params.Resolver, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(params.Cart, logg))
				r.Delete("/", controllers.CartClear(params.Cart, logg))
				r.Post("/items", controllers.CartAddItem(params.Cart, logg))
				r.Patch("/items/{productID}", controllers.CartUpdateItem(params.Cart, logg))
				r.Delete("/items/{productID}", controllers.CartRemoveItem(params.Cart, logg))
				r.Post("/merge", controllers.CartMerge(params.Cart, logg))
			})

			r.Post("/checkout", controllers.CheckoutPlaceOrder(params.Orders, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(params.Orders, logg))
				r.Get("/{orderID}", controllers.OrderGet(params.Orders, logg))
			})
		})
	})

	return r
}
