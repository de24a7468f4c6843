//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chroniclehq/chronicle/internal/api/handlers"
	"github.com/chroniclehq/chronicle/internal/domain"
	"github.com/chroniclehq/chronicle/internal/llm"
	"github.com/chroniclehq/chronicle/internal/repository"
	"github.com/chroniclehq/chronicle/internal/server"
	"github.com/chroniclehq/chronicle/internal/service"
	"github.com/chroniclehq/chronicle/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Chat         *scriptedChat
	BinaryDir    string
	UserID       int64
	HTTPClient   *http.Client
}

// scriptedChat routes completions by system prompt so the pipeline's planner,
// synthesizer stages and session summarizer each get an appropriate canned
// response regardless of call order.
type scriptedChat struct {
	mu        sync.Mutex
	responses map[string]string
	calls     []llm.Message
}

func newScriptedChat() *scriptedChat {
	return &scriptedChat{responses: map[string]string{}}
}

// Respond registers the canned response for any completion whose system
// message contains the given substring.
func (c *scriptedChat) Respond(systemContains, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[systemContains] = response
}

func (c *scriptedChat) Complete(ctx context.Context, messages []llm.Message, temperature float32, maxTokens int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, messages...)

	var system string
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = m.Content
			break
		}
	}
	for substr, response := range c.responses {
		if strings.Contains(system, substr) {
			return response, nil
		}
	}
	return "", fmt.Errorf("no scripted response for system prompt: %q", system)
}

// fixedEmbedder returns the same vector for every text so retrieval ranking
// is fully determined by the seeded embeddings.
type fixedEmbedder struct {
	vector []float32
}

func (e *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector, nil
}

// axisVector returns a unit vector along the given axis.
func axisVector(axis int) []float32 {
	v := make([]float32, embeddingDims)
	v[axis] = 1
	return v
}

// SetupE2EEnv creates a full E2E test environment with a container-backed
// database and an in-process HTTP server. The chat model is scripted and the
// embedder is deterministic; everything else is the real stack.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	chat := newScriptedChat()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, chat, port)

	env := &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Chat:         chat,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}

	env.UserID = env.SeedUser("e2e@example.com")
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

func startServer(t *testing.T, pool *pgxpool.Pool, chat llm.ChatClient, port int) (string, func()) {
	eventRepo := repository.NewEventRepository(pool)
	embeddingRepo := repository.NewEmbeddingRepository(pool)
	entityRepo := repository.NewEntityRepository(pool)
	sourceRepo := repository.NewSourceRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)

	embedder := &fixedEmbedder{vector: axisVector(0)}

	sessionSvc := service.NewSessionService(interactionRepo, chat)
	pipeline := service.NewPipeline(
		service.NewFocusResolver(sourceRepo),
		service.NewPlanner(chat),
		service.NewTimelineRetriever(eventRepo, embeddingRepo, embedder, service.DefaultLookbackDays),
		service.NewDocumentRetriever(eventRepo, embeddingRepo, entityRepo, embedder, service.EntityBoost),
		service.NewAligner(embeddingRepo, service.AlignmentThreshold),
		service.NewSynthesizer(chat),
		sessionSvc,
		service.DefaultTopK,
	)

	router := server.NewRouter(server.RouterConfig{
		QueryHandler:    handlers.NewQueryHandler(pipeline),
		SourceHandler:   handlers.NewSourceHandler(sourceRepo, nil),
		TimelineHandler: handlers.NewTimelineHandler(eventRepo),
		SessionHandler:  handlers.NewSessionHandler(sessionSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Errorf("server failed: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, serverURL)

	closer := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}

	return serverURL, closer
}

func waitForServer(t *testing.T, url string) {
	client := &http.Client{Timeout: 1 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("server did not become ready")
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// SeedUser inserts a user and returns its id
func (e *E2ETestEnv) SeedUser(email string) int64 {
	var id int64
	err := e.Pool.QueryRow(e.Ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING id`, email,
	).Scan(&id)
	if err != nil {
		e.T.Fatalf("failed to seed user: %v", err)
	}
	return id
}

// SeedSource inserts a source and returns its id
func (e *E2ETestEnv) SeedSource(userID int64, sourceType domain.EventType, title string, createdAt time.Time) int64 {
	var id int64
	err := e.Pool.QueryRow(e.Ctx,
		`INSERT INTO sources (user_id, source_type, title, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, string(sourceType), title, createdAt,
	).Scan(&id)
	if err != nil {
		e.T.Fatalf("failed to seed source: %v", err)
	}
	return id
}

// SeedEvent inserts an event with an embedding and returns the event id
func (e *E2ETestEnv) SeedEvent(userID, sourceID int64, eventType domain.EventType, text string, ts time.Time, vector []float32) int64 {
	var id int64
	err := e.Pool.QueryRow(e.Ctx,
		`INSERT INTO events (user_id, source_id, event_type, raw_text, chunk_index, "timestamp", date)
		 VALUES ($1, $2, $3, $4, 0, $5, $6) RETURNING id`,
		userID, sourceID, string(eventType), text, ts, ts.Truncate(24*time.Hour),
	).Scan(&id)
	if err != nil {
		e.T.Fatalf("failed to seed event: %v", err)
	}

	if vector != nil {
		_, err = e.Pool.Exec(e.Ctx,
			`INSERT INTO event_embeddings (event_id, embedding) VALUES ($1, $2)`,
			id, pgvector.NewVector(vector),
		)
		if err != nil {
			e.T.Fatalf("failed to seed embedding: %v", err)
		}
	}

	return id
}

// BuildBinaries builds the chronicle and chronicled binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "chronicle-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "chronicled"), "./cmd/chronicled")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build chronicled: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "chronicle"), "./cmd/chronicle")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build chronicle: %v\n%s", err, out)
	}
}

// RunChronicle runs the chronicle CLI command against the test server
func (e *E2ETestEnv) RunChronicle(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "chronicle"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CHRONICLE_USER_ID=%d", e.UserID),
		fmt.Sprintf("CHRONICLE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request as the env's user
func (e *E2ETestEnv) Get(path string) (*APIResponse, int, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request as the env's user
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, int, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, int, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("X-User-ID", strconv.FormatInt(e.UserID, 10))
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse response %q: %w", respBody, err)
	}

	return &apiResp, resp.StatusCode, nil
}
