//go:build integration

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/api-paginator/internal/testutil"
	"github.com/Sternrassler/api-paginator/pkg/cache"
	"github.com/Sternrassler/api-paginator/pkg/pagination"
	"github.com/Sternrassler/api-paginator/pkg/ratelimit"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})

	return client
}

func TestIntegration_CachedPagination(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetPagedList("/users", testutil.PagedList{
		Items:       []any{"ann", "bob", "cy", "dee", "eve"},
		ResultKey:   "Users",
		OutputToken: "NextMarker",
		InputToken:  "Marker",
		LimitKey:    "MaxResults",
	})

	cfg := testConfig(t, mock.URL())
	cfg.Redis = redisClient
	client := newTestClient(t, cfg)

	p, err := client.Paginator("ListUsers")
	if err != nil {
		t.Fatalf("Paginator: %v", err)
	}

	ctx := context.Background()
	for run := 1; run <= 2; run++ {
		result, err := p.Paginate(nil, pagination.Options{PageSize: 2}).BuildFullResult(ctx)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if users, _ := result["Users"].([]any); len(users) != 5 {
			t.Errorf("run %d: Users = %v", run, result["Users"])
		}
	}

	// The second run is served entirely from cache.
	if n := mock.GetRequestCount(); n != 3 {
		t.Errorf("request count = %d, want 3", n)
	}

	key := cache.Key{Service: "users", Operation: "ListUsers", Params: map[string]any{"MaxResults": 2}}
	if _, err := client.Cache().Get(ctx, key); err != nil {
		t.Errorf("first page should be cached: %v", err)
	}
}

func TestIntegration_ConditionalRevalidation(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/users/u1", testutil.NewConditionalHandler(`"rev-1"`, `{"Name": "Ann"}`))

	cfg := testConfig(t, mock.URL())
	cfg.Redis = redisClient
	client := newTestClient(t, cfg)

	ctx := context.Background()
	params := map[string]any{"UserId": "u1"}
	for i := 1; i <= 3; i++ {
		resp, err := client.Call(ctx, "GetUser", params)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp["Name"] != "Ann" {
			t.Errorf("request %d: response = %v", i, resp)
		}
	}

	if n := mock.GetConditionalCount(); n != 1 {
		t.Errorf("conditional requests = %d, want 1", n)
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("request count = %d, want 2", n)
	}
}

func TestIntegration_RateLimitSharedAcrossClients(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/users/search", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"Users": []}`,
		Headers: map[string]string{
			testutil.RemainingHeader: "2",
			testutil.ResetHeader:     "30",
		},
	})

	cfg := testConfig(t, mock.URL())
	cfg.Redis = redisClient
	first := newTestClient(t, cfg)
	second := newTestClient(t, cfg)

	ctx := context.Background()
	if _, err := first.Call(ctx, "SearchUsers", nil); err != nil {
		t.Fatalf("first client: %v", err)
	}

	// The state recorded by the first client blocks the second one.
	_, err := second.Call(ctx, "SearchUsers", nil)
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestIntegration_BatchPagination(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()

	cfg := testConfig(t, mock.URL())
	cfg.Redis = redisClient
	cfg.Operations = nil

	defs := make(map[string]*pagination.Definition)
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("ListGroup%d", i)
		path := fmt.Sprintf("/groups/%d/members", i)
		cfg.Operations = append(cfg.Operations, Operation{Name: name, Path: path})
		defs[name] = &pagination.Definition{
			InputToken:  pagination.StringList{"Marker"},
			OutputToken: pagination.StringList{"NextMarker"},
			ResultKey:   pagination.StringList{"Members"},
		}
		items := make([]any, 0, 7)
		for j := 0; j < 7; j++ {
			items = append(items, fmt.Sprintf("g%d-m%d", i, j))
		}
		mock.SetPagedList(path, testutil.PagedList{
			Items:       items,
			ResultKey:   "Members",
			OutputToken: "NextMarker",
			InputToken:  "Marker",
			PageSize:    3,
		})
	}
	model, err := pagination.NewModel(defs)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	cfg.Model = model
	client := newTestClient(t, cfg)

	var jobs []pagination.Job
	for _, op := range client.Operations() {
		p, err := client.Paginator(op.Name)
		if err != nil {
			t.Fatalf("Paginator(%s): %v", op.Name, err)
		}
		jobs = append(jobs, pagination.Job{ID: op.Name, Paginator: p})
	}

	results, err := pagination.NewBatchFetcher(pagination.BatchConfig{MaxConcurrency: 2}).FetchAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	for id, res := range results {
		if members, _ := res.Result["Members"].([]any); len(members) != 7 {
			t.Errorf("%s: Members = %v", id, res.Result["Members"])
		}
		if res.Pages != 3 {
			t.Errorf("%s: pages = %d, want 3", id, res.Pages)
		}
	}
	if n := mock.GetRequestCount(); n != 15 {
		t.Errorf("request count = %d, want 15", n)
	}
}

func TestIntegration_MetricsIncremented(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse("/users/u9", testutil.NewHealthyResponse(`{"Name": "Ann"}`))

	cfg := testConfig(t, mock.URL())
	cfg.Redis = redisClient
	client := newTestClient(t, cfg)

	okBefore := promtestutil.ToFloat64(requestsTotal.WithLabelValues("GetUser", "200"))
	cachedBefore := promtestutil.ToFloat64(requestsTotal.WithLabelValues("GetUser", "cached"))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := client.Call(ctx, "GetUser", map[string]any{"UserId": "u9"}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	if got := promtestutil.ToFloat64(requestsTotal.WithLabelValues("GetUser", "200")) - okBefore; got != 1 {
		t.Errorf("200 responses = %v, want 1", got)
	}
	if got := promtestutil.ToFloat64(requestsTotal.WithLabelValues("GetUser", "cached")) - cachedBefore; got != 1 {
		t.Errorf("cached responses = %v, want 1", got)
	}
}

func TestIntegration_CacheExpiration(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/users/u2", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"Name": "Bob"}`))
	})

	cfg := testConfig(t, mock.URL())
	cfg.Redis = redisClient
	client := newTestClient(t, cfg)

	ctx := context.Background()
	params := map[string]any{"UserId": "u2"}
	key := cache.Key{Service: "users", Operation: "GetUser", Params: params}

	if _, err := client.Call(ctx, "GetUser", params); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := client.Cache().Get(ctx, key); err != nil {
		t.Fatalf("entry should be fresh: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if _, err := client.Cache().Get(ctx, key); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("expected cache miss after expiration, got %v", err)
	}
	if _, err := client.Call(ctx, "GetUser", params); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if n := mock.GetRequestCount(); n != 2 {
		t.Errorf("request count = %d, want 2", n)
	}
	// Without a validator the stale entry is never revalidated.
	if n := mock.GetConditionalCount(); n != 0 {
		t.Errorf("conditional requests = %d, want 0", n)
	}
}
