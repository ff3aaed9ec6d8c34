//go:build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"testing"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
	pconfig "github.com/mixdispatch/api/internal/platform/config"
	pfirestore "github.com/mixdispatch/api/internal/platform/firestore"
	"github.com/mixdispatch/api/internal/repositories"
)

func newTestRegistry(t *testing.T, projectID string) *Registry {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not available: " + err.Error())
	}

	ensureDockerDaemon(t)

	port := freePort(t)
	endpoint := fmt.Sprintf("127.0.0.1:%d", port)
	containerID := startFirestoreEmulator(t, port)
	t.Cleanup(func() { stopContainer(containerID) })

	waitForEndpoint(t, endpoint, 30*time.Second)

	cfg := pconfig.FirestoreConfig{
		ProjectID:    projectID,
		EmulatorHost: endpoint,
	}

	provider := pfirestore.NewProvider(cfg)
	t.Cleanup(func() {
		_ = provider.Close(context.Background())
	})

	registry, err := NewRegistry(provider)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry
}

func TestMaterialStockIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	registry := newTestRegistry(t, "materials-test")
	materials := registry.Materials()
	movements := registry.StockMovements()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)
	material := domain.Material{
		ID:        "mat_cem1",
		Name:      "CEM I 42.5",
		Type:      domain.MaterialTypeCement,
		Unit:      "kg",
		Stock:     1000,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := materials.Insert(ctx, material); err != nil {
		t.Fatalf("insert material: %v", err)
	}

	updated, err := materials.AdjustStock(ctx, "mat_cem1", -200)
	if err != nil {
		t.Fatalf("adjust stock: %v", err)
	}
	if updated.Stock != 800 {
		t.Fatalf("expected stock 800, got %.1f", updated.Stock)
	}

	_, err = materials.AdjustStock(ctx, "mat_cem1", -900)
	var stockErr *repositories.StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected stock error, got %T %v", err, err)
	}
	if stockErr.Code != repositories.StockErrorInsufficient {
		t.Fatalf("expected insufficient code, got %s", stockErr.Code)
	}

	// Dose and audit trail commit together or not at all.
	err = registry.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := materials.AdjustStock(txCtx, "mat_cem1", -100); err != nil {
			return err
		}
		return movements.Append(txCtx, domain.StockMovement{
			ID:         "stm_1",
			MaterialID: "mat_cem1",
			Amount:     -100,
			Reason:     "batch production",
			CreatedAt:  now,
		})
	})
	if err != nil {
		t.Fatalf("run in tx: %v", err)
	}

	found, err := materials.FindByID(ctx, "mat_cem1")
	if err != nil {
		t.Fatalf("find material: %v", err)
	}
	if found.Stock != 700 {
		t.Fatalf("expected committed stock 700, got %.1f", found.Stock)
	}

	trail, err := movements.ListByMaterial(ctx, "mat_cem1", 10)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(trail) != 1 || trail[0].Amount != -100 {
		t.Fatalf("expected one movement of -100, got %+v", trail)
	}
}

func TestOrderSubcollectionsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	registry := newTestRegistry(t, "orders-test")
	orders := registry.Orders()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)
	order := domain.Order{
		ID:        "ord_1",
		Number:    "2026/0001",
		Status:    domain.OrderStatusSent,
		Volume:    8,
		Customer:  "Bridgeworks",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := orders.Insert(ctx, order); err != nil {
		t.Fatalf("insert order: %v", err)
	}

	err := registry.RunInTx(ctx, func(txCtx context.Context) error {
		if err := orders.AppendBatch(txCtx, domain.Batch{
			ID:         "bat_1",
			OrderID:    "ord_1",
			Volume:     2,
			ProducedAt: now,
		}); err != nil {
			return err
		}
		return orders.ReplaceOrderMaterials(txCtx, "ord_1", []domain.OrderMaterial{
			{ID: "oma_1", OrderID: "ord_1", Name: "CEM I 42.5", Amount: 620},
		})
	})
	if err != nil {
		t.Fatalf("run in tx: %v", err)
	}

	batches, err := orders.ListBatches(ctx, "ord_1")
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 || batches[0].Volume != 2 {
		t.Fatalf("expected one batch of volume 2, got %+v", batches)
	}

	lines, err := orders.ListOrderMaterials(ctx, "ord_1")
	if err != nil {
		t.Fatalf("list order materials: %v", err)
	}
	if len(lines) != 1 || lines[0].Amount != 620 {
		t.Fatalf("expected one dosed line of 620, got %+v", lines)
	}

	if err := orders.UpdateStatus(ctx, "ord_1", domain.OrderStatusInProduction, now.Add(time.Minute)); err != nil {
		t.Fatalf("update status: %v", err)
	}
	found, err := orders.FindByID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if found.Status != domain.OrderStatusInProduction {
		t.Fatalf("expected in_production, got %s", found.Status)
	}

	status := domain.OrderStatusInProduction
	listed, err := orders.List(ctx, repositories.OrderListFilter{Status: &status})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "ord_1" {
		t.Fatalf("expected ord_1 in listing, got %+v", listed)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	addr, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to allocate port: %v", err)
	}
	defer addr.Close()
	return addr.Addr().(*net.TCPAddr).Port
}

func startFirestoreEmulator(t *testing.T, port int) string {
	t.Helper()
	args := []string{
		"run", "-d", "--rm",
		"-p", fmt.Sprintf("%d:8080", port),
		firestoreEmulatorImage,
		"gcloud", "beta", "emulators", "firestore", "start",
		"--host-port=0.0.0.0:8080",
		"--quiet",
	}

	cmd := exec.Command("docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to start firestore emulator: %v - %s", err, string(out))
	}
	id := strings.TrimSpace(string(out))
	if id == "" {
		t.Fatalf("docker returned empty container id")
	}
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}

func ensureDockerDaemon(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "info")
	if err := cmd.Run(); err != nil {
		t.Fatalf("docker daemon not available: %v", err)
	}
}

func stopContainer(id string) {
	if id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "docker", "stop", id)
	_ = cmd.Run()
}

func waitForEndpoint(t *testing.T, endpoint string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", endpoint, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("firestore emulator at %s did not become ready within %s", endpoint, timeout)
}

const firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
