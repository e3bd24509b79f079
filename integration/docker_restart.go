//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// restartInventory restarts the store backend named by E2E_STORE_SERVICE
// (the postgres container when STORE_DRIVER=postgres) and then the app, so
// the following reads have to come back from the persisted document.
func restartInventory(t *testing.T, ctx context.Context) {
	t.Helper()

	if store := os.Getenv("E2E_STORE_SERVICE"); store != "" {
		composeRestart(t, ctx, store)
		t.Logf("store service %s restarted", store)
	}

	app := getenv("E2E_SERVICE", "nexstock")
	composeRestart(t, ctx, app)
	t.Logf("%s restarted; inventory document at %s", app, getenv("E2E_STORE_PATH", "backend/inventory.json"))
}

func composeRestart(t *testing.T, ctx context.Context, service string) {
	t.Helper()

	out, err := exec.CommandContext(ctx, "docker", "compose", "restart", service).CombinedOutput()
	if err != nil {
		t.Fatalf("restart %s: %v\n%s", service, err, out)
	}
	if msg := strings.TrimSpace(string(out)); msg != "" {
		t.Logf("compose: %s", msg)
	}
}
