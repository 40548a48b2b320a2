package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/dkotelnikov/storefront/internal/handlers"
	authmw "github.com/dkotelnikov/storefront/internal/middleware/auth"
)

type Deps struct {
	DB              *gorm.DB
	Gate            *authmw.Gate
	AuthHandler     *handlers.AuthHandler
	CartHandler     *handlers.CartHandler
	CheckoutHandler *handlers.CheckoutHandler
	WebhookHandler  *handlers.WebhookHandler
	ProductHandler  *handlers.ProductHandler
	OrderHandler    *handlers.OrderHandler
	AdminHandler    *handlers.AdminHandler
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.LogOut)

	products := e.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	if d.SearchHandler != nil {
		e.GET("/search", d.SearchHandler.Search)
	}

	cart := e.Group("/cart", d.Gate.RequireLogin)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:productId", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:productId", d.CartHandler.RemoveFromCart)

	e.POST("/checkout", d.CheckoutHandler.Checkout, d.Gate.RequireLogin)
	e.GET("/orders", d.OrderHandler.ListOrders, d.Gate.RequireLogin)

	// Signature is the trust boundary here, deliberately outside the gate.
	e.POST("/webhook/payment", d.WebhookHandler.HandlePayment)

	admin := e.Group("/admin", d.Gate.AdminOnly)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.POST("/users", d.AdminHandler.CreateAdmin)
	admin.POST("/promote", d.AdminHandler.Promote)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
}
