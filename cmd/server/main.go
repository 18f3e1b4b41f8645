package main

import (
	"crypto/rand"
	"crypto/subtle"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"newsletter/internal/config"
	"newsletter/internal/database"
	"newsletter/internal/handlers"
	"newsletter/internal/i18n"
	"newsletter/internal/middleware"
	"newsletter/internal/models"
	"newsletter/internal/renewal"
	"newsletter/internal/repository"
	"newsletter/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/term"
	"gorm.io/gorm"
)

// app holds the wired services and handlers for one process.
type app struct {
	auth        *service.AuthService
	reminders   *service.ReminderService
	rateLimiter *middleware.RateLimiter
	i18n        *i18n.I18nService

	health        *handlers.HealthHandler
	authHandler   *handlers.AuthHandler
	subscribers   *handlers.SubscriberHandler
	newsletters   *handlers.NewsletterHandler
	subscriptions *handlers.SubscriptionHandler
	billing       *handlers.BillingHandler
	export        *handlers.ExportHandler
}

func main() {
	// CLI flags
	resetPassword := flag.Bool("reset-password", false, "Reset a user's password (interactive or with --new-password)")
	email := flag.String("email", "", "Account email for --reset-password")
	newPassword := flag.String("new-password", "", "New password (non-interactive, use with --reset-password)")
	sendReminders := flag.Bool("send-reminders", false, "Send due renewal reminders once and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	secret, err := jwtSecret(cfg)
	if err != nil {
		log.Fatal("Failed to initialize JWT secret:", err)
	}

	a := newApp(cfg, db, secret, mailerFor(cfg), billingProviderFor(cfg))

	// Handle CLI commands (run before starting HTTP server)
	if *resetPassword {
		handleResetPassword(a.auth, *email, *newPassword)
		return
	}
	if *sendReminders {
		checkAndSendRenewalReminders(a.reminders)
		return
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	setupRoutes(router, a)

	// Start renewal reminder scheduler
	go startRenewalReminderScheduler(a.reminders)

	log.Printf("Newsletter server starting on port %s", cfg.Port)
	log.Fatal(router.Run(":" + cfg.Port))
}

func newApp(cfg *config.Config, db *gorm.DB, secret []byte, mailer service.Mailer, provider service.BillingProvider) *app {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	subscriberRepo := repository.NewSubscriberRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)

	// Initialize i18n service
	i18nService := i18n.NewI18nService()

	// Initialize services
	calculator := renewal.NewCalculator(nil)
	authService := service.NewAuthService(userRepo, secret, cfg.JWTIssuer, cfg.JWTTTL)
	emailService := service.NewEmailService(mailer, i18nService, cfg.PublicBaseURL)
	notificationService := service.NewNotificationService(cfg.NotifyURLs, i18nService)
	subscriberService := service.NewSubscriberService(subscriberRepo, emailService, notificationService)
	newsletterService := service.NewNewsletterService(subscriberService, emailService)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, calculator)
	billingService := service.NewBillingService(provider, subscriptionService, userRepo, webhookRepo, emailService, notificationService)
	reminderService := service.NewReminderService(subscriptionRepo, emailService, cfg.ReminderDays)
	exportService := service.NewExportService(subscriberRepo)

	// Initialize handlers
	return &app{
		auth:        authService,
		reminders:   reminderService,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		i18n:        i18nService,

		health:        handlers.NewHealthHandler(db),
		authHandler:   handlers.NewAuthHandler(authService),
		subscribers:   handlers.NewSubscriberHandler(subscriberService),
		newsletters:   handlers.NewNewsletterHandler(newsletterService),
		subscriptions: handlers.NewSubscriptionHandler(subscriptionService),
		billing:       handlers.NewBillingHandler(billingService, authService),
		export:        handlers.NewExportHandler(exportService),
	}
}

// jwtSecret returns the configured signing key. Without one a random key is
// generated, which invalidates tokens on restart.
func jwtSecret(cfg *config.Config) ([]byte, error) {
	if cfg.JWTSecret != "" {
		return []byte(cfg.JWTSecret), nil
	}
	if cfg.IsProduction() {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	log.Printf("Warning: JWT_SECRET not set, using a random key for this run")
	return buf, nil
}

func mailerFor(cfg *config.Config) service.Mailer {
	smtpConfig := &models.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}
	if !smtpConfig.Configured() {
		log.Printf("Warning: SMTP not configured, outgoing mail is only logged")
		return service.LogMailer{}
	}
	return service.NewSMTPMailer(smtpConfig)
}

func billingProviderFor(cfg *config.Config) service.BillingProvider {
	if cfg.StripeSecretKey == "" {
		log.Printf("Warning: STRIPE_SECRET_KEY not set, checkout is disabled")
		return nil
	}
	return service.NewStripeProvider(service.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Prices: map[models.SubscriptionType]string{
			models.SubscriptionTypePhysical: cfg.StripePricePhysical,
			models.SubscriptionTypeDigital:  cfg.StripePriceDigital,
		},
		SuccessURL: cfg.PublicBaseURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  cfg.PublicBaseURL + "/billing/cancel",
	})
}

func setupRoutes(router *gin.Engine, a *app) {
	router.GET("/healthz", a.health.Healthz)

	api := router.Group("/api")
	api.Use(middleware.Language(a.i18n))

	// Public routes
	api.POST("/auth/signup", a.rateLimiter.Middleware(), a.authHandler.Signup)
	api.POST("/auth/login", a.rateLimiter.Middleware(), a.authHandler.Login)
	api.POST("/subscribers", a.rateLimiter.Middleware(), a.subscribers.Subscribe)
	api.GET("/subscribers/verify", a.subscribers.Verify)
	api.GET("/subscribers/unsubscribe", a.subscribers.Unsubscribe)
	api.POST("/billing/webhook", a.billing.Webhook)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(middleware.RequireAuth(a.auth))
	{
		authed.GET("/auth/me", a.authHandler.Me)

		authed.GET("/subscriptions", a.subscriptions.List)
		authed.POST("/subscriptions", a.subscriptions.Create)
		authed.GET("/subscriptions/:id", a.subscriptions.Get)
		authed.PUT("/subscriptions/:id", a.subscriptions.Update)
		authed.DELETE("/subscriptions/:id", a.subscriptions.Delete)
		authed.POST("/subscriptions/:id/cancel", a.subscriptions.Cancel)

		authed.POST("/billing/checkout", a.billing.Checkout)
	}

	// Admin routes
	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/subscribers", a.subscribers.List)
		admin.DELETE("/subscribers/:id", a.subscribers.Delete)
		admin.POST("/newsletters", a.newsletters.Broadcast)
		admin.GET("/export/subscribers.csv", a.export.SubscribersCSV)
		admin.POST("/export/encrypted", a.export.Encrypted)
	}
}

// startRenewalReminderScheduler sends due renewal reminders shortly after
// start-up and then once a day.
func startRenewalReminderScheduler(reminders *service.ReminderService) {
	go func() {
		time.Sleep(30 * time.Second)
		runReminderCheck(reminders)
	}()

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		runReminderCheck(reminders)
	}
}

// runReminderCheck keeps the scheduler alive if a check panics.
func runReminderCheck(reminders *service.ReminderService) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in renewal reminder check: %v", r)
		}
	}()
	checkAndSendRenewalReminders(reminders)
}

func checkAndSendRenewalReminders(reminders *service.ReminderService) {
	sent, err := reminders.SendDueReminders(time.Now())
	if err != nil {
		log.Printf("Renewal reminder check finished with errors: %v", err)
	}
	log.Printf("Renewal reminder check complete: %d sent", sent)
}

// handleResetPassword handles the --reset-password CLI command
func handleResetPassword(auth *service.AuthService, email, newPassword string) {
	if email == "" {
		log.Fatal("--email is required with --reset-password")
	}

	password := newPassword
	if password == "" {
		// Interactive mode - prompt for password
		fmt.Print("Enter new password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal("Failed to read password:", err)
		}
		fmt.Println()

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal("Failed to read confirmation:", err)
		}
		fmt.Println()

		if subtle.ConstantTimeCompare(passwordBytes, confirmBytes) != 1 {
			log.Fatal("Passwords do not match")
		}
		password = string(passwordBytes)
	}

	if err := auth.ResetPassword(email, password); err != nil {
		log.Fatal("Failed to reset password:", err)
	}

	fmt.Printf("✓ Password for %s reset successfully\n", email)
	os.Exit(0)
}
