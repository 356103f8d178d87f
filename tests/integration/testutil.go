//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JuJa1021101/Vue3-notebook-AI/internal/api"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/assist"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/auth"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/completion"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/database"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/quota"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/settings"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/usage"
	"github.com/JuJa1021101/Vue3-notebook-AI/internal/users"
)

const accessSecret = "integration-access-secret-32-chars!!"

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	Upstream    *FakeUpstream
	UserSvc     *users.Service
	QuotaSvc    *quota.Service
	SettingsSvc *settings.Service
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "notebook_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/notebook_test?sslmode=disable", pgHost, pgPort.Port())
	if err := database.RunMigrations(dsn, getMigrationsPath()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	upstream := NewFakeUpstream()
	t.Cleanup(upstream.Close)

	// Setup services
	userSvc := users.NewService(users.NewRepository(pool))
	quotaSvc := quota.NewService(quota.NewRepository(pool), time.UTC)
	settingsSvc := settings.NewService(settings.NewRepository(pool), settings.NewCache(redisClient))
	llm, err := completion.New(completion.Config{
		APIKey:  "sk-test",
		BaseURL: upstream.URL() + "/v1",
		Model:   "Qwen/Qwen2.5-7B-Instruct",
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("creating completion client: %v", err)
	}
	recorder := usage.NewRecorder(usage.NewRepository(pool), nil, decimal.RequireFromString("0.01"), time.UTC)

	assistSvc := assist.NewService(assist.Deps{
		Subscriptions: userSvc,
		Quota:         quotaSvc,
		Settings:      settingsSvc,
		Completer:     llm,
		Recorder:      recorder,
		System:        settings.System{Provider: "siliconflow", Model: "Qwen/Qwen2.5-7B-Instruct", TopP: 0.8},
	})
	assistHandler := assist.NewHandler(assistSvc)

	router := api.NewRouter(pool, redisClient, nil, api.RouterConfig{}, api.HandlerSet{
		ProcessAI:      assistHandler.Process,
		GetAISettings:  assistHandler.GetSettings,
		UpdateSettings: assistHandler.UpdateSettings,
		AIStats:        assistHandler.Stats,

		AuthMiddleware: auth.Middleware(auth.NewVerifier(accessSecret)),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		Upstream:    upstream,
		UserSvc:     userSvc,
		QuotaSvc:    quotaSvc,
		SettingsSvc: settingsSvc,
	}

	return testEnv
}

func getMigrationsPath() string {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

var userSeq atomic.Int64

// CreateUser inserts a fresh free-tier user and returns its id.
func CreateUser(t *testing.T, env *TestEnv) int64 {
	t.Helper()
	n := userSeq.Add(1)
	var id int64
	err := env.Pool.QueryRow(context.Background(),
		`INSERT INTO users (username, email) VALUES ($1, $2) RETURNING id`,
		fmt.Sprintf("user%d_%d", n, time.Now().UnixNano()),
		fmt.Sprintf("user%d_%d@example.com", n, time.Now().UnixNano()),
	).Scan(&id)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return id
}

// TokenFor signs an access token the way the notes service does.
func TokenFor(t *testing.T, userID int64) string {
	t.Helper()
	claims := auth.AccessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(accessSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}

// FakeUpstream is an OpenAI-compatible chat completion endpoint that always
// answers with Reply, split into word chunks when streaming.
type FakeUpstream struct {
	srv   *httptest.Server
	Reply atomic.Value // string
}

func NewFakeUpstream() *FakeUpstream {
	f := &FakeUpstream{}
	f.Reply.Store("Hello world, and then some more text.")
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeUpstream) URL() string { return f.srv.URL }

func (f *FakeUpstream) Close() { f.srv.Close() }

func (f *FakeUpstream) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	reply := f.Reply.Load().(string)

	if !req.Stream {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","created":1,"model":%q,`+
			`"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],`+
			`"usage":{"prompt_tokens":20,"completion_tokens":10,"total_tokens":30}}`, req.Model, reply)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher := w.(http.Flusher)
	for _, word := range strings.SplitAfter(reply, " ") {
		fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":%q,"+
			"\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", req.Model, word)
		flusher.Flush()
	}
	fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":%q,"+
		"\"choices\":[],\"usage\":{\"prompt_tokens\":20,\"completion_tokens\":10,\"total_tokens\":30}}\n\n", req.Model)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
