//go:build integration

package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { redisC.Terminate(ctx) })

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}
	return host + ":" + port.Port()
}

func TestReadyEndpoint(t *testing.T) {
	addr := setupTestRedis(t)
	configFile, _ := setupEnv(t)
	t.Setenv("PAGER_REDIS_ADDR", addr)

	a := loadTestApp(t, configFile)
	if a.redis == nil {
		t.Fatal("redis should be configured from the environment")
	}

	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		a.readyHandler(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("cached pagination", func(t *testing.T) {
		server := httptest.NewServer(a.routes())
		defer server.Close()
		for i := 0; i < 2; i++ {
			resp, err := http.Get(server.URL + "/paginate/users/ListUsers?page_size=2")
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("run %d: status %d", i, resp.StatusCode)
			}
		}
		inspect := redis.NewClient(&redis.Options{Addr: addr})
		defer inspect.Close()
		keys, err := inspect.Keys(context.Background(), "api:users:ListUsers:*").Result()
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 3 {
			t.Errorf("cached pages = %d, want 3", len(keys))
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		a.redis.Close()
		w := httptest.NewRecorder()
		a.readyHandler(w, httptest.NewRequest("GET", "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}
