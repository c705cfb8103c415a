package common

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	folio "github.com/bobmcallan/folio/internal/common"
)

const (
	defaultSurrealImage = "surrealdb/surrealdb:v3.0.0"
	surrealUser         = "root"
	surrealPass         = "root"
	surrealNamespace    = "folio_test"
)

var (
	surrealOnce      sync.Once
	surrealContainer *SurrealDBContainer
	surrealError     error

	databaseSeq atomic.Int64
)

// SurrealDBContainer is the shared SurrealDB instance behind the storage and
// end-to-end tests. Each test gets its own database inside one namespace.
type SurrealDBContainer struct {
	container testcontainers.Container
	host      string
	port      string
}

// surrealImage is FOLIO_TEST_SURREALDB_IMAGE when set, so CI can pin a mirror.
func surrealImage() string {
	if img := strings.TrimSpace(os.Getenv("FOLIO_TEST_SURREALDB_IMAGE")); img != "" {
		return img
	}
	return defaultSurrealImage
}

// StartSurrealDB starts the container once per process and waits until the
// HTTP health endpoint answers.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()

	surrealOnce.Do(func() {
		ctx := context.Background()

		req := testcontainers.ContainerRequest{
			Image:        surrealImage(),
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--user", surrealUser, "--pass", surrealPass, "memory"},
			WaitingFor: wait.ForHTTP("/health").
				WithPort("8000/tcp").
				WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }).
				WithStartupTimeout(90 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			surrealError = fmt.Errorf("start SurrealDB container (%s): %w", req.Image, err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB host: %w", err)
			return
		}

		mappedPort, err := container.MappedPort(ctx, "8000/tcp")
		if err != nil {
			container.Terminate(ctx)
			surrealError = fmt.Errorf("get SurrealDB port: %w", err)
			return
		}

		surrealContainer = &SurrealDBContainer{
			container: container,
			host:      host,
			port:      mappedPort.Port(),
		}
	})

	if surrealError != nil {
		t.Fatalf("SurrealDB container failed: %v", surrealError)
	}

	return surrealContainer
}

// Address returns the WebSocket RPC address.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}

// Config returns store settings for a fresh database named after the test.
func (c *SurrealDBContainer) Config(t *testing.T) folio.SurrealDBConfig {
	return folio.SurrealDBConfig{
		Address:   c.Address(),
		Namespace: surrealNamespace,
		Database:  DatabaseName(t),
		Username:  surrealUser,
		Password:  surrealPass,
	}
}

// DatabaseName derives a database name unique to this process from the test
// name. SurrealDB rejects "/" and spaces, which subtest names contain.
func DatabaseName(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_", "-", "_").Replace(t.Name())
	return fmt.Sprintf("t_%s_%d_%d", strings.ToLower(name), os.Getpid(), databaseSeq.Add(1))
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *SurrealDBContainer) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}
