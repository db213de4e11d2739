package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/treatment"
)

// Every price includes VAT; VATRate and SubtotalRate add up to one.
var (
	VATRate      = decimal.RequireFromString("0.16")
	SubtotalRate = decimal.RequireFromString("0.84")
)

// Split divides a VAT inclusive total into subtotal (0.84) and VAT (0.16)
// without rounding.
func Split(total decimal.Decimal) Amounts {
	return Amounts{
		Subtotal: total.Mul(SubtotalRate).InexactFloat64(),
		VAT:      total.Mul(VATRate).InexactFloat64(),
		Total:    total.InexactFloat64(),
	}
}

func lineAmounts(price float64, qty int) Amounts {
	return Split(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))))
}

// Builder accumulates sell lines and keeps the sell totals as the sum of
// the line amounts.
type Builder struct {
	sell                 *Sell
	subtotal, vat, total decimal.Decimal
}

func NewBuilder(patientID uuid.UUID, appointmentID *uuid.UUID) *Builder {
	return &Builder{sell: &Sell{
		ID:            uuid.New(),
		PatientID:     patientID,
		AppointmentID: appointmentID,
		Status:        StatusCreated,
		Services:      []ServiceLine{},
		Supplies:      []SupplyLine{},
		Payments:      []Payment{},
	}}
}

func (b *Builder) add(a Amounts) {
	b.subtotal = b.subtotal.Add(decimal.NewFromFloat(a.Subtotal))
	b.vat = b.vat.Add(decimal.NewFromFloat(a.VAT))
	b.total = b.total.Add(decimal.NewFromFloat(a.Total))
}

// AddService adds qty units of svc at its current price.
func (b *Builder) AddService(svc *treatment.DentalService, qty int) {
	line := ServiceLine{
		ID:        uuid.New(),
		SellID:    b.sell.ID,
		ServiceID: svc.ID,
		Name:      svc.Name,
		Quantity:  qty,
		Price:     svc.Price,
		Amounts:   lineAmounts(svc.Price, qty),
	}
	b.sell.Services = append(b.sell.Services, line)
	b.add(line.Amounts)
}

// AddSupply adds qty use units of sp at its current price.
func (b *Builder) AddSupply(sp *inventory.Supply, qty int) {
	line := SupplyLine{
		ID:       uuid.New(),
		SellID:   b.sell.ID,
		SupplyID: sp.ID,
		Name:     sp.Name,
		Quantity: qty,
		Price:    sp.Price,
		Amounts:  lineAmounts(sp.Price, qty),
	}
	b.sell.Supplies = append(b.sell.Supplies, line)
	b.add(line.Amounts)
}

// Build returns the sell with its totals. The builder must not be reused.
func (b *Builder) Build() *Sell {
	b.sell.Subtotal = b.subtotal.InexactFloat64()
	b.sell.VAT = b.vat.InexactFloat64()
	b.sell.Total = b.total.InexactFloat64()
	b.sell.Balance = b.sell.Total
	return b.sell
}

// Paid sums the payment totals.
func Paid(payments []Payment) float64 {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(decimal.NewFromFloat(p.Total))
	}
	return sum.InexactFloat64()
}

// Balance is what is still owed on s given its payments.
func Balance(s *Sell) float64 {
	return decimal.NewFromFloat(s.Total).Sub(decimal.NewFromFloat(Paid(s.Payments))).InexactFloat64()
}
