package billing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/inventory"
	"github.com/RobertAguilera712/ERPDentalCare/internal/domain/treatment"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		total        string
		wantSubtotal float64
		wantVAT      float64
	}{
		{"200", 168, 32},
		{"100", 84, 16},
		{"0.10", 0.084, 0.016},
		{"33.33", 27.9972, 5.3328},
		{"10.005", 8.4042, 1.6008},
		{"0", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			got := Split(decimal.RequireFromString(tt.total))
			if got.Subtotal != tt.wantSubtotal || got.VAT != tt.wantVAT {
				t.Errorf("Split(%s) = %+v, want subtotal %v vat %v", tt.total, got, tt.wantSubtotal, tt.wantVAT)
			}
			sum := decimal.NewFromFloat(got.Subtotal).Add(decimal.NewFromFloat(got.VAT))
			if !sum.Equal(decimal.NewFromFloat(got.Total)) {
				t.Errorf("subtotal + vat = %s, want %v", sum, got.Total)
			}
		})
	}
}

func TestBuilder_ServiceLine(t *testing.T) {
	b := NewBuilder(uuid.New(), nil)
	b.AddService(&treatment.DentalService{ID: uuid.New(), Name: "Cleaning", Price: 100}, 2)
	sell := b.Build()

	if len(sell.Services) != 1 {
		t.Fatalf("expected 1 service line, got %d", len(sell.Services))
	}
	line := sell.Services[0]
	if line.Total != 200 || line.VAT != 32 || line.Subtotal != 168 {
		t.Errorf("unexpected line amounts %+v", line.Amounts)
	}
	if line.SellID != sell.ID || line.Name != "Cleaning" || line.Price != 100 {
		t.Errorf("unexpected line %+v", line)
	}
	if sell.Status != StatusCreated || sell.Balance != 200 {
		t.Errorf("expected created sell with balance 200, got %s %v", sell.Status, sell.Balance)
	}
}

func TestBuilder_TotalsAreSummed(t *testing.T) {
	appt := uuid.New()
	b := NewBuilder(uuid.New(), &appt)
	b.AddService(&treatment.DentalService{ID: uuid.New(), Name: "Cleaning", Price: 100}, 2)
	b.AddService(&treatment.DentalService{ID: uuid.New(), Name: "Extraction", Price: 350}, 1)
	b.AddSupply(&inventory.Supply{ID: uuid.New(), Name: "Floss", Price: 3}, 5)
	sell := b.Build()

	if sell.Total != 565 {
		t.Errorf("expected total 565, got %v", sell.Total)
	}
	if sell.VAT != 90.4 || sell.Subtotal != 474.6 {
		t.Errorf("expected vat 90.4 subtotal 474.6, got %v %v", sell.VAT, sell.Subtotal)
	}
	if len(sell.Supplies) != 1 || sell.Supplies[0].Total != 15 {
		t.Errorf("unexpected supply lines %+v", sell.Supplies)
	}
	if sell.AppointmentID == nil || *sell.AppointmentID != appt {
		t.Error("expected appointment id to be kept")
	}
}

func TestBuilder_FractionalCentsKeptExact(t *testing.T) {
	b := NewBuilder(uuid.New(), nil)
	b.AddService(&treatment.DentalService{ID: uuid.New(), Name: "Sealant", Price: 33.33}, 1)
	b.AddService(&treatment.DentalService{ID: uuid.New(), Name: "Polish", Price: 10.005}, 3)
	sell := b.Build()

	first, second := sell.Services[0], sell.Services[1]
	if first.Total != 33.33 || first.VAT != 5.3328 || first.Subtotal != 27.9972 {
		t.Errorf("unexpected first line %+v", first.Amounts)
	}
	// 10.005 * 3 = 30.015
	if second.Total != 30.015 || second.VAT != 4.8024 || second.Subtotal != 25.2126 {
		t.Errorf("unexpected second line %+v", second.Amounts)
	}
	if sell.Total != 63.345 || sell.VAT != 10.1352 || sell.Subtotal != 53.2098 {
		t.Errorf("expected 63.345/10.1352/53.2098, got %v/%v/%v", sell.Total, sell.VAT, sell.Subtotal)
	}
}

func TestBuilder_Empty(t *testing.T) {
	sell := NewBuilder(uuid.New(), nil).Build()
	if sell.Total != 0 || sell.Services == nil || sell.Supplies == nil {
		t.Errorf("expected empty zero sell with non-nil lines, got %+v", sell)
	}
}

func TestBalance(t *testing.T) {
	s := &Sell{Total: 100, Payments: []Payment{
		{Amounts: Amounts{Total: 33.3}},
		{Amounts: Amounts{Total: 33.3}},
	}}
	if got := Paid(s.Payments); got != 66.6 {
		t.Errorf("expected paid 66.6, got %v", got)
	}
	if got := Balance(s); got != 33.4 {
		t.Errorf("expected balance 33.4, got %v", got)
	}
	if got := Balance(&Sell{Total: 50}); got != 50 {
		t.Errorf("expected full balance without payments, got %v", got)
	}
}
