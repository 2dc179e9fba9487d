package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kartik-Sangwan/dtk-site/internal/config"
	"github.com/Kartik-Sangwan/dtk-site/internal/handler"
	"github.com/Kartik-Sangwan/dtk-site/internal/infra/db"
	"github.com/Kartik-Sangwan/dtk-site/internal/infra/logger"
	infraRepo "github.com/Kartik-Sangwan/dtk-site/internal/infra/repository"
	"github.com/Kartik-Sangwan/dtk-site/internal/inventory"
	"github.com/Kartik-Sangwan/dtk-site/internal/middleware"
	"github.com/Kartik-Sangwan/dtk-site/internal/notify"
	"github.com/Kartik-Sangwan/dtk-site/internal/payment"
	"github.com/Kartik-Sangwan/dtk-site/internal/pricing"
	"github.com/Kartik-Sangwan/dtk-site/internal/ratelimit"
	"github.com/Kartik-Sangwan/dtk-site/internal/server"
	"github.com/Kartik-Sangwan/dtk-site/internal/usecase"
	auth "github.com/Kartik-Sangwan/dtk-site/internal/usecase/auth_usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/resend/resend-go/v2"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	// .env は無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(os.Stdout, cfg.LogLevel)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	repos := infraRepo.NewRepos(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)
	users := repos.Users()

	limiter, err := newLimiter(cfg)
	if err != nil {
		return err
	}

	inv := inventory.NewResolver(inventory.Options{
		Path: cfg.InventoryCSVPath,
		TTL:  cfg.InventoryCacheTTL,
	})
	calc := pricing.NewCalculator(inv)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, nil)

	dispatcher := notify.NewDispatcher(newMailer(cfg, log), notify.NewRenderer(cfg.EmailLogoURL, cfg.SiteURL), notify.Config{
		SiteURL:           cfg.SiteURL,
		CompanyOrderEmail: cfg.CompanyOrderEmail,
		FeedbackToEmail:   cfg.FeedbackToEmail,
		QuoteToEmail:      cfg.QuoteToEmail,
	})

	//usecaseに渡す部品
	idGen := auth.UUIDGenerator{}
	clock := auth.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txm, repos.Carts(), repos.CartItems())
	checkoutUC := usecase.NewCheckoutUsecase(calc, repos.CartItems(), gateway)
	orderUC := usecase.NewOrderUsecase(txm, repos.Orders(), repos.Carts(), repos.CartItems(), calc, gateway)
	webhookUC := usecase.NewPaymentWebhookUsecase(repos.Orders(), gateway, dispatcher)
	adminUC := usecase.NewAdminOrderUsecase(txm, repos.Orders(), users, repos.AuditLogs(), dispatcher)
	accountUC := usecase.NewAccountUsecase(txm, users, repos.Addresses())
	inventoryUC := usecase.NewInventoryUsecase(inv, cfg.InventoryAccessCode)
	contactUC := usecase.NewContactUsecase(dispatcher, limiter)

	registerUC := auth.NewRegisterUserUsecase(txm, users, hasher, dispatcher, limiter, idGen, clock)
	verifyUC := auth.NewVerifyEmailUsecase(txm, users, repos.AuthTokens(), clock)
	loginUC := auth.NewLoginUsecase(users, verifier, issuer, limiter, clock)
	resetRequestUC := auth.NewRequestPasswordResetUsecase(txm, users, dispatcher, limiter, idGen, clock)
	resetConfirmUC := auth.NewConfirmPasswordResetUsecase(txm, users, repos.AuthTokens(), hasher, limiter, clock)

	staffAuthz, err := middleware.NewStaffAuthorizer()
	if err != nil {
		return err
	}

	//Handler生成
	cookie := handler.CartCookie{Secure: cfg.IsProduction()}
	handlers := server.Handlers{
		Auth:       handler.NewAuthHandler(registerUC, verifyUC, loginUC, resetRequestUC, resetConfirmUC, users),
		Inventory:  handler.NewInventoryHandler(inventoryUC),
		Cart:       handler.NewCartHandler(cartUC, cookie),
		Checkout:   handler.NewCheckoutHandler(cartUC, checkoutUC, cookie),
		Orders:     handler.NewOrderHandler(orderUC, users, cookie),
		Webhook:    handler.NewWebhookHandler(webhookUC),
		Account:    handler.NewAccountHandler(accountUC, orderUC),
		Contact:    handler.NewContactHandler(contactUC),
		AdminOrder: handler.NewAdminOrderHandler(adminUC, orderUC, staffAuthz),
	}

	e := server.New(log)
	server.RegisterRoutes(e, cfg, users, handlers)

	//Server起動
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Start(ctx, e, listenAddr(cfg.Port))
}

// RATE_LIMIT_BACKEND=redis なら複数台で共有する
func newLimiter(cfg config.Config) (ratelimit.Limiter, error) {
	if cfg.RateLimitBackend != "redis" {
		return ratelimit.NewMemoryLimiter(nil), nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		// 起動は続ける（limiterのエラーは通す扱い）
		slog.Warn("redis unreachable at startup", slog.String("addr", cfg.RedisAddr), slog.Any("err", err))
	}
	return ratelimit.NewRedisLimiter(client, "dtk:rl"), nil
}

// RESEND_API_KEY が無ければ送らずにログだけ出す
func newMailer(cfg config.Config, log *slog.Logger) notify.Mailer {
	if cfg.ResendAPIKey == "" {
		log.Warn("RESEND_API_KEY not set, emails are logged only")
		return notify.NewLogMailer(log)
	}
	return notify.NewResendMailer(resend.NewClient(cfg.ResendAPIKey), cfg.EmailFrom)
}

func listenAddr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}
