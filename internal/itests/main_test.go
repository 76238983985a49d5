package itests

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"DisplayAPI/internal"
	"DisplayAPI/internal/cache"
	"DisplayAPI/internal/config"
	"DisplayAPI/internal/db"
	"DisplayAPI/internal/handler"
	"DisplayAPI/internal/logger"
	"DisplayAPI/internal/metrics"
	"DisplayAPI/internal/model"
	"DisplayAPI/internal/router"
)

var testBaseURL string

// TestMain runs the package against a real Postgres. Set ITEST_POSTGRES=1
// (and POSTGRES_DSN to a local server) to enable it.
func TestMain(m *testing.M) {
	if os.Getenv("ITEST_POSTGRES") == "" {
		fmt.Println("itests skipped: ITEST_POSTGRES is not set")
		os.Exit(0)
	}
	os.Exit(run(m))
}

func run(m *testing.M) int {
	cfg := config.LoadConfig()
	logger.SetDebug(true)

	teardown, err := SetupTestDB(cfg.PostgresDSN, db.InitPostgres)
	if err != nil {
		fmt.Println("setup test DB failed:", err)
		return 1
	}
	defer func() {
		db.ClosePostgres()
		if err := teardown(); err != nil {
			fmt.Println("drop test DB failed:", err)
		}
	}()

	root, err := internal.FindRepoRoot()
	if err != nil {
		fmt.Println("repo root not found:", err)
		return 1
	}
	if err := model.InitRegistry(filepath.Join(root, "db")); err != nil {
		fmt.Println("registry init failed:", err)
		return 1
	}

	mt := metrics.New()
	api := handler.NewAPI(model.Registry, db.PoolQuerier{Pool: db.Pool}, cache.Noop{}, mt, "en")
	srv := httptest.NewServer(router.New(config.CORSConfig{AllowOrigin: "*"}, api, mt))
	defer srv.Close()
	testBaseURL = srv.URL

	return m.Run()
}
