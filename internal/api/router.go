package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/facturio/invoicing-system/internal/api/handler"
	"github.com/facturio/invoicing-system/internal/api/middleware"
	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/service"
	mongodb "github.com/facturio/invoicing-system/internal/infrastructure/db/mongo"
	"github.com/facturio/invoicing-system/internal/infrastructure/db/sqlite"
	"github.com/facturio/invoicing-system/internal/pkg/config"
)

// Deps bundles the process-level resources the router wires services from.
// Local is mandatory; Redis may be nil (the query cache then runs in
// process) and Mongo may point at an unreachable server — remote-mode
// operations fail individually while local-mode sessions keep working.
type Deps struct {
	Config *config.Config
	Log    zerolog.Logger
	Local  *sqlite.DB
	Mongo  *mongo.Database
	Redis  *redis.Client
	Cache  service.Cache
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("invoicing"))

	// --- Backend adapters ---
	prefRepo := sqlite.NewPrefRepository(d.Local)
	credRepo := sqlite.NewCredentialRepository(d.Local)
	localSeq := sqlite.NewSequenceRepository(d.Local)
	remoteSeq := mongodb.NewSequenceRepository(d.Mongo)
	userRepo := mongodb.NewUserRepository(d.Mongo)

	storeLocal := sqlite.NewRecordRepository[domain.Store](d.Local, domain.KindStore)
	storeRemote := mongodb.NewRecordRepository[domain.Store](d.Mongo, domain.KindStore)
	employeeLocal := sqlite.NewRecordRepository[domain.Employee](d.Local, domain.KindEmployee)
	employeeRemote := mongodb.NewRecordRepository[domain.Employee](d.Mongo, domain.KindEmployee)
	customerLocal := sqlite.NewRecordRepository[domain.Customer](d.Local, domain.KindCustomer)
	customerRemote := mongodb.NewRecordRepository[domain.Customer](d.Mongo, domain.KindCustomer)
	productLocal := sqlite.NewRecordRepository[domain.Product](d.Local, domain.KindProduct)
	productRemote := mongodb.NewRecordRepository[domain.Product](d.Mongo, domain.KindProduct)
	invoiceLocal := sqlite.NewRecordRepository[domain.Invoice](d.Local, domain.KindInvoice)
	invoiceRemote := mongodb.NewRecordRepository[domain.Invoice](d.Mongo, domain.KindInvoice)
	lineLocal := sqlite.NewRecordRepository[domain.InvoiceLine](d.Local, domain.KindInvoiceLine)
	lineRemote := mongodb.NewRecordRepository[domain.InvoiceLine](d.Mongo, domain.KindInvoiceLine)

	// --- Services ---
	resolverTimeout := time.Duration(d.Config.ResolverTimeoutMS) * time.Millisecond
	modes := service.NewModeResolver(prefRepo, userRepo, resolverTimeout, d.Log)

	stores := service.NewCachedRecords(
		service.NewRecords(domain.KindStore, storeLocal, storeRemote, modes, userRepo, d.Log), d.Cache, d.Log)
	employees := service.NewCachedRecords(
		service.NewRecords(domain.KindEmployee, employeeLocal, employeeRemote, modes, userRepo, d.Log), d.Cache, d.Log)
	customers := service.NewCachedRecords(
		service.NewRecords(domain.KindCustomer, customerLocal, customerRemote, modes, userRepo, d.Log), d.Cache, d.Log)
	products := service.NewCachedRecords(
		service.NewRecords(domain.KindProduct, productLocal, productRemote, modes, userRepo, d.Log), d.Cache, d.Log)
	invoices := service.NewCachedRecords(
		service.NewRecords(domain.KindInvoice, invoiceLocal, invoiceRemote, modes, userRepo, d.Log), d.Cache, d.Log)
	lines := service.NewCachedRecords(
		service.NewRecords(domain.KindInvoiceLine, lineLocal, lineRemote, modes, userRepo, d.Log), d.Cache, d.Log)

	sequences := service.NewSequences(localSeq, remoteSeq, modes, d.Config.DeviceID, d.Log)
	stock := service.NewStockProjection()
	invoiceService := service.NewInvoices(invoices, lines, products, stores, customers, sequences, stock, d.Log)
	authService := service.NewAuth(userRepo, credRepo, prefRepo, d.Config.JWTSecret, 24*time.Hour, d.Log)
	settingsService := service.NewSettings(prefRepo, userRepo, modes, d.Log)
	syncService := service.NewSync(
		service.Pair(storeLocal, storeRemote),
		service.Pair(employeeLocal, employeeRemote),
		service.Pair(customerLocal, customerRemote),
		service.Pair(productLocal, productRemote),
		service.Pair(invoiceLocal, invoiceRemote),
		service.Pair(lineLocal, lineRemote),
		d.Log,
	)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	storeHandler := handler.NewStoreHandler(stores)
	employeeHandler := handler.NewEmployeeHandler(employees, authService)
	customerHandler := handler.NewCustomerHandler(customers)
	productHandler := handler.NewProductHandler(products, invoiceService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	syncHandler := handler.NewSyncHandler(syncService)
	settingsHandler := handler.NewSettingsHandler(settingsService, authService)

	auth := middleware.Auth(d.Config.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	anyRole := middleware.RBAC(domain.RoleAdmin, domain.RoleEmployee)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout, auth)

	// --- Entity routes ---
	g := e.Group("", auth, anyRole)

	g.GET("/stores", storeHandler.List)
	g.GET("/stores/:id", storeHandler.Get)
	g.POST("/stores", storeHandler.Create, adminOnly)
	g.PATCH("/stores/:id", storeHandler.Update, adminOnly)

	g.GET("/employees", employeeHandler.List)
	g.GET("/employees/:id", employeeHandler.Get)
	g.POST("/employees", employeeHandler.Create, adminOnly)
	g.PATCH("/employees/:id", employeeHandler.Update, adminOnly)

	g.GET("/customers", customerHandler.List)
	g.GET("/customers/:id", customerHandler.Get)
	g.POST("/customers", customerHandler.Create)
	g.PATCH("/customers/:id", customerHandler.Update)

	g.GET("/products", productHandler.List)
	g.GET("/products/:id", productHandler.Get)
	g.POST("/products", productHandler.Create, adminOnly)
	g.PATCH("/products/:id", productHandler.Update, adminOnly)

	g.GET("/invoices", invoiceHandler.List)
	g.GET("/invoices/:id", invoiceHandler.Get)
	g.POST("/invoices", invoiceHandler.Create)

	// --- Operator routes ---
	g.POST("/sync", syncHandler.SyncAll, adminOnly)
	g.GET("/settings/mode", settingsHandler.Mode)
	g.PUT("/settings/mode", settingsHandler.SetMode, adminOnly)
	g.PUT("/settings/offline-login", settingsHandler.SetOfflineLogin, adminOnly)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Local, d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
