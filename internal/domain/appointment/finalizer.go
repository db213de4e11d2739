package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/billing"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/treatment"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/apperr"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/db"
	"github.com/RobertAguilera712/ERPDentalCare/internal/platform/websocket"
)

type ServiceCatalog interface {
	ActiveServices(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*treatment.DentalService, error)
}

// Stockroom loads locked stock and writes back consumed lots.
type Stockroom interface {
	LockStocks(ctx context.Context, supplyIDs []uuid.UUID) (map[uuid.UUID]*inventory.Stock, error)
	SaveLots(ctx context.Context, lots []*inventory.PurchaseLot) error
	Today() time.Time
}

type SellWriter interface {
	Create(ctx context.Context, sell *billing.Sell) error
}

// Finalizer closes an appointment: it consumes the supplies of the
// performed services and sold supplies, records the sell and marks the
// appointment attended, all in one transaction.
type Finalizer struct {
	appointments Repository
	services     ServiceCatalog
	stock        Stockroom
	sells        SellWriter
	tx           db.TxRunner
	events       websocket.Publisher
	logger       zerolog.Logger
}

func NewFinalizer(appointments Repository, services ServiceCatalog, stock Stockroom,
	sells SellWriter, tx db.TxRunner, logger zerolog.Logger) *Finalizer {
	return &Finalizer{
		appointments: appointments,
		services:     services,
		stock:        stock,
		sells:        sells,
		tx:           tx,
		logger:       logger.With().Str("component", "finalizer").Logger(),
	}
}

func (f *Finalizer) SetPublisher(p websocket.Publisher) { f.events = p }

// normalize merges repeated entries and keeps first-seen order.
func normalize(req FinishRequest) (FinishRequest, error) {
	var out FinishRequest
	svcIdx := make(map[uuid.UUID]int)
	for _, it := range req.Services {
		if it.ServiceID == uuid.Nil {
			return out, apperr.Invalid("service_id is required")
		}
		if it.Quantity < 1 {
			return out, apperr.Invalid("service quantity must be at least 1")
		}
		if i, ok := svcIdx[it.ServiceID]; ok {
			out.Services[i].Quantity += it.Quantity
			continue
		}
		svcIdx[it.ServiceID] = len(out.Services)
		out.Services = append(out.Services, it)
	}

	supIdx := make(map[uuid.UUID]int)
	for _, it := range req.Supplies {
		if it.SupplyID == uuid.Nil {
			return out, apperr.Invalid("supply_id is required")
		}
		if it.Quantity < 1 {
			return out, apperr.Invalid("supply quantity must be at least 1")
		}
		if i, ok := supIdx[it.SupplyID]; ok {
			out.Supplies[i].Quantity += it.Quantity
			continue
		}
		supIdx[it.SupplyID] = len(out.Supplies)
		out.Supplies = append(out.Supplies, it)
	}

	if len(out.Services) == 0 && len(out.Supplies) == 0 {
		return out, apperr.Invalid("at least one service or supply is required")
	}
	return out, nil
}

// Finish finalizes appointment id. A *treatment.ShortfallError or
// *inventory.InsufficientStockError means nothing was changed. Directly sold
// supplies are checked after the services consumed their materials, so the
// Available reported in an InsufficientStockError is what remained in stock
// after that consumption, not the stock before Finish was called.
func (f *Finalizer) Finish(ctx context.Context, id uuid.UUID, req FinishRequest) (*billing.Sell, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	var (
		sell     *billing.Sell
		finished *Appointment
	)
	err = f.tx.RunInTx(ctx, func(ctx context.Context) error {
		appt, err := f.appointments.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if appt.Status != StatusScheduled {
			return apperr.Conflict("appointment is %s and cannot be finished", appt.Status)
		}

		serviceIDs := make([]uuid.UUID, len(req.Services))
		for i, it := range req.Services {
			serviceIDs[i] = it.ServiceID
		}
		services, err := f.services.ActiveServices(ctx, serviceIDs)
		if err != nil {
			return err
		}

		var supplyIDs []uuid.UUID
		orders := make([]treatment.Order, len(req.Services))
		for i, it := range req.Services {
			svc := services[it.ServiceID]
			orders[i] = treatment.Order{Service: svc, Quantity: float64(it.Quantity)}
			supplyIDs = append(supplyIDs, treatment.SupplyIDs(svc)...)
		}
		for _, it := range req.Supplies {
			supplyIDs = append(supplyIDs, it.SupplyID)
		}

		stocks, err := f.stock.LockStocks(ctx, supplyIDs)
		if err != nil {
			return err
		}
		today := f.stock.Today()

		if shortfalls := treatment.CanProduceAll(orders, stocks, today); len(shortfalls) > 0 {
			return &treatment.ShortfallError{Shortfalls: shortfalls}
		}

		touched := make(map[uuid.UUID]*inventory.PurchaseLot)
		consume := func(st *inventory.Stock, qty float64) error {
			draws, err := st.Consume(qty, today)
			if err != nil {
				return err
			}
			for _, d := range draws {
				for _, lot := range st.Lots {
					if lot.ID == d.LotID {
						touched[lot.ID] = lot
					}
				}
			}
			return nil
		}

		for _, o := range orders {
			for _, r := range o.Service.Requirements {
				if err := consume(stocks[r.SupplyID], r.Quantity*o.Quantity); err != nil {
					return fmt.Errorf("consume %s: %w", stocks[r.SupplyID].Supply.Name, err)
				}
			}
		}
		for _, it := range req.Supplies {
			st := stocks[it.SupplyID]
			if st.Supply.Status != inventory.StatusActive {
				return apperr.NotFound("supply %s not found", it.SupplyID)
			}
			if !st.Supply.IsSalable {
				return apperr.Invalid("supply %s is not for sale", st.Supply.Name)
			}
			// direct supplies are checked after the services have drawn from
			// the same stock
			if err := consume(st, float64(it.Quantity)); err != nil {
				return err
			}
		}

		b := billing.NewBuilder(appt.PatientID, &appt.ID)
		for i, it := range req.Services {
			b.AddService(orders[i].Service, it.Quantity)
		}
		for _, it := range req.Supplies {
			b.AddSupply(stocks[it.SupplyID].Supply, it.Quantity)
		}
		built := b.Build()

		lots := make([]*inventory.PurchaseLot, 0, len(touched))
		for _, lot := range touched {
			lots = append(lots, lot)
		}
		inventory.SortLots(lots)
		if err := f.stock.SaveLots(ctx, lots); err != nil {
			return err
		}
		if err := f.sells.Create(ctx, built); err != nil {
			return err
		}
		if err := f.appointments.SetStatus(ctx, appt.ID, StatusAttended); err != nil {
			return err
		}
		appt.Status = StatusAttended
		finished = appt
		sell = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info().Str("appointment_id", id.String()).Str("sell_id", sell.ID.String()).
		Float64("total", sell.Total).Msg("appointment finished")
	publish(ctx, f.events, f.logger, websocket.EventAppointmentFinished, finished,
		map[string]interface{}{"sell_id": sell.ID, "total": sell.Total})
	return sell, nil
}
