package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/mixdispatch/api/internal/repositories"
)

const exportContentType = "text/csv"

var (
	// ErrExportInvalidInput signals a malformed export request.
	ErrExportInvalidInput = errors.New("export: invalid input")
	// ErrExportUnavailable indicates the export could not be produced or
	// written.
	ErrExportUnavailable = errors.New("export: unavailable")
)

// ExportServiceDeps bundles collaborators for the export service.
type ExportServiceDeps struct {
	Orders  repositories.OrderRepository
	Pricing PricingService
	Writer  ExportObjectWriter
	Clock   func() time.Time
	Logger  *zap.Logger
}

type exportService struct {
	orders  repositories.OrderRepository
	pricing PricingService
	writer  ExportObjectWriter
	clock   func() time.Time
	logger  *zap.Logger
}

// NewExportService wires dependencies into an ExportService.
func NewExportService(deps ExportServiceDeps) (ExportService, error) {
	if deps.Orders == nil {
		return nil, errors.New("export service: order repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("export service: pricing service is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("export service: object writer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &exportService{
		orders:  deps.Orders,
		pricing: deps.Pricing,
		writer:  deps.Writer,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

var exportHeader = []string{
	"order_number", "status", "customer", "construction_site", "recipe",
	"volume_m3", "delivery_count", "delivered_volume_m3",
	"price_concrete", "price_transport", "price_surcharges",
	"total", "total_with_vat", "grand_total", "created_at",
}

func (s *exportService) ExportOrders(ctx context.Context, cmd ExportOrdersCommand) (ExportResult, error) {
	if cmd.From.IsZero() || cmd.To.IsZero() {
		return ExportResult{}, fmt.Errorf("%w: export window is required", ErrExportInvalidInput)
	}
	if !cmd.To.After(cmd.From) {
		return ExportResult{}, fmt.Errorf("%w: export window end must be after start", ErrExportInvalidInput)
	}

	filter := repositories.OrderListFilter{
		Status:        cmd.Status,
		CreatedFrom:   &cmd.From,
		CreatedTo:     &cmd.To,
		IncludeHidden: true,
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return ExportResult{}, fmt.Errorf("%w: list orders: %v", ErrExportUnavailable, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return ExportResult{}, fmt.Errorf("%w: %v", ErrExportUnavailable, err)
	}

	deliveryCount := 0
	for _, order := range orders {
		deliveries, err := s.orders.ListDeliveries(ctx, order.ID)
		if err != nil {
			return ExportResult{}, fmt.Errorf("%w: list deliveries for %s: %v", ErrExportUnavailable, order.ID, err)
		}
		deliveredVolume := 0.0
		for _, delivery := range deliveries {
			deliveredVolume += delivery.Volume
		}
		deliveryCount += len(deliveries)

		pricing, err := s.pricing.PriceOrder(ctx, PriceOrderCommand{OrderID: order.ID})
		if err != nil {
			// Orders with incomplete pricing inputs still appear in the
			// export, with the price columns left blank.
			s.logger.Warn("export.pricing.failed",
				zap.String("orderId", order.ID),
				zap.Error(err))
			pricing = OrderPricing{}
		}

		record := []string{
			order.Number,
			string(order.Status),
			order.Customer,
			order.Site,
			order.Recipe.Name,
			formatAmount(order.Volume),
			strconv.Itoa(len(deliveries)),
			formatAmount(deliveredVolume),
			formatOptionalAmount(pricing.PriceConcrete),
			formatOptionalAmount(pricing.PriceTransport),
			formatOptionalAmount(pricing.PriceSurcharges),
			formatAmount(pricing.Total),
			formatAmount(pricing.TotalWithVAT),
			formatAmount(pricing.GrandTotal),
			order.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return ExportResult{}, fmt.Errorf("%w: %v", ErrExportUnavailable, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return ExportResult{}, fmt.Errorf("%w: %v", ErrExportUnavailable, err)
	}

	now := s.clock()
	objectName := exportObjectName(cmd, now)
	if err := s.writer.WriteObject(ctx, objectName, exportContentType, buf.Bytes()); err != nil {
		return ExportResult{}, fmt.Errorf("%w: write %s: %v", ErrExportUnavailable, objectName, err)
	}

	s.logger.Info("export.written",
		zap.String("object", objectName),
		zap.Int("orders", len(orders)),
		zap.Int("deliveries", deliveryCount))

	return ExportResult{
		ObjectName: objectName,
		Orders:     len(orders),
		Deliveries: deliveryCount,
		WrittenAt:  now,
	}, nil
}

func exportObjectName(cmd ExportOrdersCommand, now time.Time) string {
	scope := "all"
	if cmd.Status != nil {
		scope = string(*cmd.Status)
	}
	return fmt.Sprintf("exports/orders_%s_%s_%s_%s.csv",
		scope,
		cmd.From.UTC().Format("20060102"),
		cmd.To.UTC().Format("20060102"),
		now.Format("20060102T150405Z"))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatOptionalAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return formatAmount(*v)
}
