package routes

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/digistore/internal/config"
	"github.com/example/digistore/internal/handlers"
	"github.com/example/digistore/internal/middleware"
	"github.com/example/digistore/internal/services"
)

// ErrorHandler converts handler errors into {success:false, error} JSON.
// Unexpected errors are logged and surfaced as a bare 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		log.Printf("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	paystack := services.NewPaystackService(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackEnabled)
	mailer := services.NewMailService(cfg.MailBaseURL, cfg.MailAPIKey, cfg.MailFromAddress, cfg.MailEnabled)
	sms := services.NewSMSService(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSSenderID, cfg.SMSEnabled)

	authHandler := handlers.NewAuthHandler(db, cfg)
	otpHandler := handlers.NewOTPHandler(db, mailer, sms)
	profileHandler := handlers.NewProfileHandler(db)
	catalogHandler := handlers.NewCatalogHandler(db)
	checkoutHandler := handlers.NewCheckoutHandler(db, cfg, paystack)
	orderHandler := handlers.NewOrderHandler(db)
	deliveryHandler := handlers.NewDeliveryHandler(db)
	downloadHandler := handlers.NewDownloadHandler(db)
	affiliateHandler := handlers.NewAffiliateHandler(db)
	ticketHandler := handlers.NewTicketHandler(db)
	resetHandler := handlers.NewPasswordResetHandler(db, cfg, mailer)

	api := app.Group("/api")

	apiLimit := middleware.RateLimit(db, middleware.RateActionAPI,
		middleware.APILimit, middleware.APIWindow, middleware.ByIP)
	otpLimit := middleware.RateLimit(db, middleware.RateActionOTPSend,
		middleware.OTPSendLimit, middleware.OTPSendWindow, handlers.OTPIdentifier)

	// Public storefront
	api.Get("/products", catalogHandler.ListProducts)
	api.Get("/products/:slug", catalogHandler.GetProduct)

	// Customer identity
	customer := api.Group("/customer")
	customer.Post("/register", apiLimit, authHandler.Register)
	customer.Post("/login", apiLimit, authHandler.Login)
	customer.Post("/request-otp", otpLimit, otpHandler.RequestOTP)
	customer.Post("/verify-otp", apiLimit, otpHandler.VerifyOTP)
	customer.Post("/forgot-password", otpLimit, resetHandler.ForgotPassword)
	customer.Post("/verify-reset-code", apiLimit, resetHandler.VerifyResetCode)
	customer.Post("/reset-password", apiLimit, resetHandler.ResetPassword)

	// Checkout and payment confirmation
	api.Post("/checkout", apiLimit, checkoutHandler.Checkout)
	api.Get("/checkout/verify/:reference", checkoutHandler.VerifyPayment)
	api.Post("/checkout/webhook", middleware.PaystackWebhook(cfg.PaystackSecretKey), checkoutHandler.Webhook)

	// Download redemption: the token is the credential.
	api.Get("/download/:token", downloadHandler.Redeem)

	// Session-gated customer surface
	protected := customer.Group("", middleware.SessionAuth(db))
	protected.Post("/logout", authHandler.Logout)
	protected.Post("/logout-all", authHandler.LogoutAll)
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Put("/username", profileHandler.SetUsername)
	protected.Post("/change-password", profileHandler.ChangePassword)
	protected.Post("/complete-setup", profileHandler.CompleteSetup)

	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Get("/deliveries", deliveryHandler.ListDeliveries)
	protected.Get("/deliveries/:id", deliveryHandler.GetDelivery)
	protected.Post("/deliveries/:id/confirm", deliveryHandler.ConfirmDelivery)
	protected.Post("/downloads", downloadHandler.IssueToken)

	protected.Post("/tickets", ticketHandler.CreateTicket)
	protected.Get("/tickets", ticketHandler.ListTickets)
	protected.Get("/tickets/:id", ticketHandler.GetTicket)
	protected.Post("/tickets/:id/replies", ticketHandler.ReplyTicket)
	protected.Post("/tickets/:id/close", ticketHandler.CloseTicket)

	// Affiliate program
	affiliate := api.Group("/affiliate")
	affiliate.Post("/track", apiLimit, affiliateHandler.TrackClick)

	affiliateAuth := affiliate.Group("", middleware.SessionAuth(db))
	affiliateAuth.Post("/join", affiliateHandler.Join)
	affiliateAuth.Get("/balance", affiliateHandler.GetBalance)
	affiliateAuth.Get("/commissions", affiliateHandler.ListCommissions)
	affiliateAuth.Post("/withdrawals", affiliateHandler.RequestWithdrawal)
	affiliateAuth.Get("/withdrawals", affiliateHandler.ListWithdrawals)
}
