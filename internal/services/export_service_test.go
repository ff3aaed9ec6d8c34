package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	domain "github.com/mixdispatch/api/internal/domain"
	"github.com/mixdispatch/api/internal/repositories"
)

type captureObjectWriter struct {
	objectName  string
	contentType string
	data        []byte
	err         error
}

func (c *captureObjectWriter) WriteObject(_ context.Context, objectName, contentType string, data []byte) error {
	c.objectName = objectName
	c.contentType = contentType
	c.data = data
	return c.err
}

func newTestExportService(t *testing.T, deps ExportServiceDeps) ExportService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Pricing == nil {
		deps.Pricing = &stubPricingService{}
	}
	if deps.Writer == nil {
		deps.Writer = &captureObjectWriter{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2026, 6, 15, 12, 30, 45, 0, time.UTC) }
	}
	svc, err := NewExportService(deps)
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}
	return svc
}

func TestExportOrdersWritesCSV(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	orders := &stubOrderRepo{
		listFn: func(_ context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
			if !filter.IncludeHidden {
				t.Fatal("export must include hidden orders")
			}
			if filter.CreatedFrom == nil || !filter.CreatedFrom.Equal(from) {
				t.Fatalf("CreatedFrom = %v", filter.CreatedFrom)
			}
			return []domain.Order{
				{
					ID:        "ord_1",
					Number:    "2026/0001",
					Status:    domain.OrderStatusFinished,
					Customer:  "Bridgeworks",
					Site:      "North bridge",
					Recipe:    domain.RecipeSnapshot{Name: "C25/30"},
					Volume:    8,
					CreatedAt: time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC),
				},
			}, nil
		},
		listDeliveriesFn: func(context.Context, string) ([]domain.Delivery, error) {
			return []domain.Delivery{
				{ID: "del_1", OrderID: "ord_1", Volume: 4},
				{ID: "del_2", OrderID: "ord_1", Volume: 4},
			}, nil
		},
	}
	pricing := &stubPricingService{
		priceOrderFn: func(context.Context, PriceOrderCommand) (OrderPricing, error) {
			return OrderPricing{
				PriceConcrete:   valuePtr(8000.0),
				PriceTransport:  valuePtr(1200.0),
				PriceSurcharges: valuePtr(300.0),
				Total:           9500,
				TotalWithVAT:    11495,
				GrandTotal:      11495,
			}, nil
		},
	}
	writer := &captureObjectWriter{}

	svc := newTestExportService(t, ExportServiceDeps{Orders: orders, Pricing: pricing, Writer: writer})

	result, err := svc.ExportOrders(context.Background(), ExportOrdersCommand{From: from, To: to})
	if err != nil {
		t.Fatalf("ExportOrders: %v", err)
	}
	if result.Orders != 1 || result.Deliveries != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.ObjectName != "exports/orders_all_20260601_20260701_20260615T123045Z.csv" {
		t.Fatalf("object name = %q", result.ObjectName)
	}
	if writer.contentType != "text/csv" {
		t.Fatalf("content type = %q", writer.contentType)
	}

	records, err := csv.NewReader(bytes.NewReader(writer.data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rows = %d, want header plus one order", len(records))
	}
	if records[0][0] != "order_number" {
		t.Fatalf("header = %v", records[0])
	}
	row := records[1]
	if row[0] != "2026/0001" || row[2] != "Bridgeworks" || row[4] != "C25/30" {
		t.Fatalf("row = %v", row)
	}
	if row[6] != "2" || row[7] != "8.00" {
		t.Fatalf("delivery columns = %v %v", row[6], row[7])
	}
	if row[8] != "8000.00" || row[13] != "11495.00" {
		t.Fatalf("price columns = %v", row)
	}
}

func TestExportOrdersBlanksPriceColumnsOnFailure(t *testing.T) {
	orders := &stubOrderRepo{
		listFn: func(context.Context, repositories.OrderListFilter) ([]domain.Order, error) {
			return []domain.Order{{ID: "ord_1", Number: "2026/0001", Status: domain.OrderStatusSent}}, nil
		},
	}
	pricing := &stubPricingService{
		priceOrderFn: func(context.Context, PriceOrderCommand) (OrderPricing, error) {
			return OrderPricing{}, errors.New("recipe has no price")
		},
	}
	writer := &captureObjectWriter{}
	svc := newTestExportService(t, ExportServiceDeps{Orders: orders, Pricing: pricing, Writer: writer})

	result, err := svc.ExportOrders(context.Background(), ExportOrdersCommand{
		From: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ExportOrders: %v", err)
	}
	if result.Orders != 1 {
		t.Fatalf("result = %+v", result)
	}

	records, err := csv.NewReader(bytes.NewReader(writer.data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	row := records[1]
	if row[8] != "" || row[9] != "" || row[10] != "" {
		t.Fatalf("price columns = %v, want blanks", row)
	}
	if row[0] != "2026/0001" {
		t.Fatalf("row = %v", row)
	}
}

func TestExportOrdersValidatesWindow(t *testing.T) {
	svc := newTestExportService(t, ExportServiceDeps{})

	_, err := svc.ExportOrders(context.Background(), ExportOrdersCommand{})
	if !errors.Is(err, ErrExportInvalidInput) {
		t.Fatalf("err = %v, want ErrExportInvalidInput", err)
	}

	_, err = svc.ExportOrders(context.Background(), ExportOrdersCommand{
		From: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrExportInvalidInput) {
		t.Fatalf("err = %v, want ErrExportInvalidInput", err)
	}
}

func TestExportOrdersScopesObjectNameByStatus(t *testing.T) {
	writer := &captureObjectWriter{}
	svc := newTestExportService(t, ExportServiceDeps{Writer: writer})

	status := domain.OrderStatusFinished
	result, err := svc.ExportOrders(context.Background(), ExportOrdersCommand{
		From:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		Status: &status,
	})
	if err != nil {
		t.Fatalf("ExportOrders: %v", err)
	}
	if result.ObjectName != "exports/orders_finished_20260601_20260701_20260615T123045Z.csv" {
		t.Fatalf("object name = %q", result.ObjectName)
	}
}

func TestExportOrdersSurfacesWriterFailure(t *testing.T) {
	writer := &captureObjectWriter{err: errors.New("bucket unavailable")}
	svc := newTestExportService(t, ExportServiceDeps{Writer: writer})

	_, err := svc.ExportOrders(context.Background(), ExportOrdersCommand{
		From: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("err = %v, want ErrExportUnavailable", err)
	}
}
