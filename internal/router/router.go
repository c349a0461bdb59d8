package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"pawhaven/internal/config"
	"pawhaven/internal/errors"
	"pawhaven/internal/handler"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	petHandler *handler.PetHandler,
	paymentHandler *handler.PaymentHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.GET("/auth/verify-email", authHandler.VerifyEmail)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	// Public catalog reads
	api.GET("/pets", petHandler.List)
	api.GET("/pets/landing", petHandler.Landing)
	api.GET("/pets/:id", petHandler.Get)

	// Gateway callbacks arrive through browser redirects, so they cannot
	// require a token; identity is used opportunistically for the
	// pending-payment fallback when present.
	callbacks := api.Group("", optionalJWT(cfg.JWTSecret))
	callbacks.GET("/payments/esewa/callback", paymentHandler.EsewaCallback)
	callbacks.GET("/payments/khalti/return", paymentHandler.KhaltiReturn)
	callbacks.GET("/payments/status", paymentHandler.Status)

	// Secured routes (require JWT authentication)
	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(cfg.JWTSecret),
		TokenLookup: "header:" + echo.HeaderAuthorization,
	}))

	// Profile routes
	secured.GET("/me", userHandler.Me)
	secured.PUT("/me", userHandler.UpdateMe)

	// Payment routes
	secured.POST("/payments/initiate", paymentHandler.Initiate)
	secured.POST("/payments/:id/gateway", paymentHandler.ChooseGateway)
	secured.POST("/payments/:id/regenerate", paymentHandler.RegenerateReference)
	secured.GET("/payments", paymentHandler.History)

	// Staff routes
	staff := secured.Group("", requireRole("admin"))
	staff.POST("/pets", petHandler.Create)
	staff.PUT("/pets/:id", petHandler.Update)
	staff.DELETE("/pets/:id", petHandler.Delete)
	staff.POST("/payments/:id/:action", paymentHandler.AdminTransition)
}

// optionalJWT parses a bearer token when one is present but lets the
// request through either way.
func optionalJWT(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:             []byte(secret),
		TokenLookup:            "header:" + echo.HeaderAuthorization,
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	})
}

// requireRole gates a route group on the role claim.
func requireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := handler.CurrentClaims(c)
			if !ok || claims.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: "insufficient privileges",
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
