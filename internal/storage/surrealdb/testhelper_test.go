package surrealdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/common"
	tcommon "github.com/bobmcallan/folio/tests/common"
)

// testConfig builds a config pointing at the shared container with a unique
// database per test for isolation. t.Name() is sanitized because subtests
// produce names with "/" which SurrealDB rejects in database names.
func testConfig(t *testing.T) *common.Config {
	t.Helper()
	sc := tcommon.StartSurrealDB(t)

	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return &common.Config{
		Environment: "test",
		Storage: common.StorageConfig{
			Address:   sc.Address(),
			Namespace: "folio_test",
			Database:  fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000),
			Username:  "root",
			Password:  "root",
		},
	}
}

// testManager connects a Manager to the shared container and closes it when
// the test ends.
func testManager(t *testing.T) *Manager {
	t.Helper()

	mgr, err := NewManager(common.NewSilentLogger(), testConfig(t))
	if err != nil {
		t.Fatalf("create storage manager: %v", err)
	}
	t.Cleanup(func() {
		mgr.Close()
	})
	return mgr
}
