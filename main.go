package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"excel-analyzer-go/internal/handlers"
	"excel-analyzer-go/internal/models"
	"excel-analyzer-go/internal/store"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	// Redis Configuration
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			redisDB = db
		}
	}

	// Initialize Redis store (login throttling, token revocation, stats)
	sessionStore := store.NewRedisStore(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// PostgreSQL Configuration
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pgStore, err := store.NewPostgresStore(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	// Run database migrations
	ctx := context.Background()
	if err := pgStore.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	h := handlers.NewHandler(pgStore, pgStore, pgStore, sessionStore, []byte(jwtSecret))

	// Optional AI insights backend (any OpenAI-compatible endpoint)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg := openai.DefaultConfig(apiKey)
		if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
			cfg.BaseURL = baseURL
		}
		h.AI = openai.NewClientWithConfig(cfg)
		h.AIModel = os.Getenv("OPENAI_MODEL")
		if h.AIModel == "" {
			h.AIModel = openai.GPT4oMini
		}
	} else {
		log.Println("OPENAI_API_KEY not set, AI insights disabled")
	}

	seedAdmin(ctx, pgStore)

	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("/api/auth/register", h.RegisterHandler)
	mux.HandleFunc("/api/auth/login", h.LoginHandler)
	mux.HandleFunc("/api/auth/verify-2fa", h.Verify2FALoginHandler)
	mux.HandleFunc("/api/auth/logout", h.RequireAuth(h.LogoutHandler))
	mux.HandleFunc("/api/auth/me", h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.MeHandler(w, r)
		case http.MethodPut:
			h.UpdateMeHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.HandleFunc("/api/auth/2fa/setup", h.RequireAuth(h.Setup2FAHandler))
	mux.HandleFunc("/api/auth/2fa/enable", h.RequireAuth(h.Enable2FAHandler))
	mux.HandleFunc("/api/auth/2fa/disable", h.RequireAuth(h.Disable2FAHandler))

	// Upload and history
	mux.HandleFunc("/api/upload", h.RequireAuth(h.UploadHandler))
	mux.HandleFunc("/api/history", h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListHistoryHandler(w, r)
		case http.MethodDelete:
			h.ClearHistoryHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	mux.HandleFunc("/api/history/", h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			h.DeleteHistoryHandler(w, r)
		case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/chart"):
			h.UpdateChartHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}))

	// AI insights
	mux.HandleFunc("/api/ai/insights", h.RequireAuth(h.InsightsHandler))

	// Admin routes
	mux.HandleFunc("/api/admin/users", h.RequireAuth(h.RequireAdmin(h.AdminGetUsersHandler)))
	mux.HandleFunc("/api/admin/users/", h.RequireAuth(h.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/block"):
			h.AdminBlockUserHandler(w, r)
		case r.Method == http.MethodDelete:
			h.AdminDeleteUserHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))
	mux.HandleFunc("/api/admin/analytics", h.RequireAuth(h.RequireAdmin(h.AdminAnalyticsHandler)))
	mux.HandleFunc("/api/admin/activity-logs", h.RequireAuth(h.RequireAdmin(h.AdminActivityLogsHandler)))

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy", "service": "excel-analyzer"}`))
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	log.Println("Listening on :" + port)
	if err := http.ListenAndServe(":"+port, corsMiddleware(mux)); err != nil {
		log.Fatal(err)
	}
}

// seedAdmin creates the initial admin account when ADMIN_EMAIL and
// ADMIN_PASSWORD are set and no account with that email exists yet.
func seedAdmin(ctx context.Context, users store.UserStore) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}

	if _, err := users.GetUserByEmail(ctx, email); err == nil {
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("Failed to look up admin account: %v", err)
		return
	}

	if _, err := users.CreateUser(ctx, "Admin", email, password, models.RoleAdmin); err != nil {
		log.Printf("Failed to create default admin: %v", err)
		return
	}
	log.Printf("Created default admin user: %s", email)
}

// corsMiddleware allows the web client origin(s) to call the API with
// credentials.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{}
	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		origins = "http://localhost:3000"
	}
	for _, o := range strings.Split(origins, ",") {
		allowed[strings.TrimSpace(o)] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
