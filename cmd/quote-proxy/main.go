package main

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/augment"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/cache"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/logging"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/pricing"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/sheets"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/upstream"
)

type appConfig struct {
	Port        string
	UpstreamURL string
	RedisAddr   string
	CORSOrigin  string

	SpreadsheetID   string
	CredentialsFile string

	LoginEmail     string
	LoginPassword  string
	TokenIsPrivate bool

	ListTTL   time.Duration
	ColumnTTL time.Duration
}

func loadConfig() appConfig {
	return appConfig{
		Port:        getEnv("PORT", "3000"),
		UpstreamURL: getEnv("UPSTREAM_URL", "https://finuslugi.ru"),
		RedisAddr:   getEnv("REDIS_URL", "localhost:6379"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://project9253441.tilda.ws"),

		SpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),

		LoginEmail:     getEnv("FINUSLUGI_API_EMAIL", ""),
		LoginPassword:  getEnv("FINUSLUGI_API_PASSWORD", ""),
		TokenIsPrivate: getEnv("FINUSLUGI_TOKEN_IS_PRIVATE", "true") == "true",

		ListTTL:   getDurationEnv("CACHE_LIST_TTL", 1*time.Hour),
		ColumnTTL: getDurationEnv("CACHE_COLUMN_TTL", 1*time.Hour),
	}
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "false") == "true",
		Output: os.Stderr,
	})

	cfg := loadConfig()
	ctx := context.Background()

	// The proxy degrades to cacheless operation when Redis is unreachable;
	// every cache miss then falls through to the spreadsheet source.
	var cacheManager *cache.Manager
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, running without cache")
	} else {
		cacheManager = cache.NewManager(redisClient, cache.Config{}, logging.NewLogger("cache"))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	if cfg.SpreadsheetID == "" {
		logger.Fatal().Msg("GOOGLE_SPREADSHEET_ID is required")
	}
	credentials, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.CredentialsFile).Msg("Failed to read service account credentials")
	}

	source, err := sheets.NewGoogleSource(ctx, sheets.GoogleConfig{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsJSON: credentials,
	}, logging.NewLogger("sheets"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create spreadsheet source")
	}

	builder := pricing.NewBuilder(source, cacheManager, pricing.BuilderConfig{
		Pacer:     sheets.DefaultPacer(),
		ColumnTTL: cfg.ColumnTTL,
	}, logging.NewLogger("pricing"))
	resolver := pricing.NewResolver(builder, logging.NewLogger("pricing"))

	augmentManager := augment.NewManager(logging.NewLogger("augment"),
		augment.NewBankListAugmenter(source, cacheManager, cfg.ListTTL, logging.NewLogger("augment")),
		augment.NewCompanyListAugmenter(source, cacheManager, sheets.DefaultPacer(), cfg.ListTTL, logging.NewLogger("augment")),
		augment.NewPriceAugmenter(resolver, logging.NewLogger("augment")),
	)

	upstreamClient, err := upstream.New(upstream.DefaultConfig(cfg.UpstreamURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	p := &proxy{
		client:    upstreamClient,
		augmenter: augmentManager,
		cfg:       cfg,
		logger:    logging.NewLogger("proxy"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/", p.handleAPI)

	addr := ":" + cfg.Port
	logger.Info().
		Str("addr", addr).
		Str("upstream", cfg.UpstreamURL).
		Str("origin", cfg.CORSOrigin).
		Msg("Starting quote proxy")

	if err := http.ListenAndServe(addr, corsMiddleware(cfg.CORSOrigin, mux)); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

// corsMiddleware restricts browser access to the configured frontend origin
// and short-circuits preflight requests.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type proxy struct {
	client    *upstream.Client
	augmenter *augment.Manager
	cfg       appConfig
	logger    zerolog.Logger
}

// handleAPI forwards API requests to the upstream, running the response
// through the augmentation manager. The "/api" mount prefix is stripped from
// the forwarded path.
func (p *proxy) handleAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
	}

	if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/partnerLogin") {
		var err error
		body, err = p.injectCredentials(body)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to inject partner credentials")
			writeJSONError(w, http.StatusBadRequest, "Malformed request body")
			return
		}
	}

	header := make(http.Header)
	for _, name := range []string{"Accept", "Content-Type", "Authorization"} {
		if v := r.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	req := &augment.Request{Method: r.Method, Path: path, Body: body}
	call := func(ctx context.Context) (json.RawMessage, error) {
		return p.client.Do(ctx, r.Method, path, header, body)
	}

	respBody, err := p.augmenter.AugmentResponse(ctx, req, call)
	if err != nil {
		var uerr *upstream.Error
		if errors.As(err, &uerr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(uerr.StatusCode)
			w.Write(uerr.Body)
			return
		}
		p.logger.Error().Err(err).Str("path", path).Msg("Proxy request failed")
		writeJSONError(w, http.StatusInternalServerError, "Unexpected server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(respBody)
}

// injectCredentials merges the configured partner login credentials into the
// forwarded body. The login endpoint takes the password as its md5 hex
// digest under the passwordMd5 field.
func (p *proxy) injectCredentials(body []byte) ([]byte, error) {
	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}
	}
	payload["email"] = p.cfg.LoginEmail
	payload["passwordMd5"] = md5Hex(p.cfg.LoginPassword)
	payload["tokenIsPrivate"] = p.cfg.TokenIsPrivate
	return json.Marshal(payload)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
