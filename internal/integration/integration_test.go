package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/engine"
	pgstore "live-quiz-engine/internal/infra/postgres"
	pgmigrations "live-quiz-engine/internal/infra/postgres/migrations"
	infraredis "live-quiz-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSessionLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := pgstore.NewQuizLoader(pool)
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	codes := infraredis.NewCodeRegistry(redisClient, time.Hour)
	service := engine.NewService(quizRepo, codes,
		engine.WithArchiver(pgstore.NewResultArchiver(pool)))

	session, err := service.CreateSession(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if n, err := redisClient.Exists(ctx, "session:code:"+session.Code()).Result(); err != nil || n != 1 {
		t.Fatalf("expected reserved code key, n=%d err=%v", n, err)
	}

	alice, err := session.Join("Alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	bob, err := session.Join("Bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if err := session.StartQuestion(session.HostSecret(), 0); err != nil {
		t.Fatalf("start question: %v", err)
	}
	if _, err := session.Submit(alice.ID, []string{"o2"}); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	result, err := session.Submit(bob.ID, []string{"o1"})
	if err != nil {
		t.Fatalf("submit bob: %v", err)
	}
	if result.Correct || result.Awarded != 0 {
		t.Fatalf("expected wrong answer to award nothing, got %+v", result)
	}

	// Both answered, so the only question closed and the session finished.
	if session.Phase() != domain.PhaseFinished {
		t.Fatalf("expected finished phase, got %s", session.Phase())
	}
	board := session.Leaderboard()
	if len(board.Standings) != 2 || board.Standings[0].DisplayName != "Alice" {
		t.Fatalf("expected alice leading, got %+v", board.Standings)
	}

	waitForArchivedResult(t, ctx, pool, session.ID())

	// Finalization releases the join code for reuse.
	deadline := time.Now().Add(5 * time.Second)
	for {
		n, err := redisClient.Exists(ctx, "session:code:"+session.Code()).Result()
		if err == nil && n == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("join code never released, n=%d err=%v", n, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func waitForArchivedResult(t *testing.T, ctx context.Context, pool *pgxpool.Pool, sessionID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		var raw []byte
		err := pool.QueryRow(ctx, `SELECT data FROM session_results WHERE session_id=$1`, sessionID).Scan(&raw)
		if err == nil {
			var archived domain.SessionResult
			if err := json.Unmarshal(raw, &archived); err != nil {
				t.Fatalf("unmarshal archived result: %v", err)
			}
			if len(archived.Standings) != 2 || len(archived.Responses) != 2 {
				t.Fatalf("unexpected archived result %+v", archived)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("archived result never appeared: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.QuizDefinition) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:            "quiz-1",
		Title:         "General Knowledge",
		HintAllowance: 1,
		Questions: []domain.QuestionDefinition{
			{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				LimitSeconds: 20,
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5", Correct: false},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
