package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMoneyUnmarshalAcceptsStringAndNumber(t *testing.T) {
	var fromString Money
	if err := json.Unmarshal([]byte(`"19.999"`), &fromString); err != nil {
		t.Fatalf("unmarshal string failed: %v", err)
	}
	if fromString.String() != "20.00" {
		t.Fatalf("unexpected rounded value: %s", fromString.String())
	}

	var fromNumber Money
	if err := json.Unmarshal([]byte(`12.5`), &fromNumber); err != nil {
		t.Fatalf("unmarshal number failed: %v", err)
	}
	raw, err := json.Marshal(fromNumber)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `"12.50"` {
		t.Fatalf("unexpected json: %s", string(raw))
	}
}

func TestMoneyFloorZero(t *testing.T) {
	if got := MustMoney("-3.10").FloorZero(); !got.Decimal.IsZero() {
		t.Fatalf("negative amount should floor to zero, got %s", got)
	}
	if got := MustMoney("3.10").FloorZero(); got.String() != "3.10" {
		t.Fatalf("positive amount should be kept, got %s", got)
	}
}

func TestProductEffectivePrice(t *testing.T) {
	promo := MustMoney("40.00")
	higher := MustMoney("60.00")
	free := MustMoney("0.00")
	cases := []struct {
		name    string
		product Product
		want    string
	}{
		{name: "list only", product: Product{ListPrice: MustMoney("50.00")}, want: "50.00"},
		{name: "promo lower", product: Product{ListPrice: MustMoney("50.00"), PromoPrice: &promo}, want: "40.00"},
		{name: "promo higher ignored", product: Product{ListPrice: MustMoney("50.00"), PromoPrice: &higher}, want: "50.00"},
		{name: "zero promo applies", product: Product{ListPrice: MustMoney("50.00"), PromoPrice: &free}, want: "0.00"},
	}
	for _, tc := range cases {
		if got := tc.product.EffectivePrice().String(); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestProductHasValidPrices(t *testing.T) {
	negative := MustMoney("-1.00")
	zero := MustMoney("0.00")
	if !(Product{ListPrice: MustMoney("0.00"), PromoPrice: &zero}).HasValidPrices() {
		t.Fatalf("zero prices should be valid")
	}
	if (Product{ListPrice: MustMoney("-50.00")}).HasValidPrices() {
		t.Fatalf("negative list price should be invalid")
	}
	if (Product{ListPrice: MustMoney("50.00"), PromoPrice: &negative}).HasValidPrices() {
		t.Fatalf("negative promo price should be invalid")
	}
}

func TestProductToLineItemKeepsOriginalAtLeastUnit(t *testing.T) {
	promo := MustMoney("40.00")
	line := Product{ID: " p1 ", ListPrice: MustMoney("50.00"), PromoPrice: &promo, Stock: 3}.ToLineItem(2)
	if line.ProductID != "p1" {
		t.Fatalf("product id should be trimmed, got %q", line.ProductID)
	}
	if line.LineTotal().String() != "80.00" {
		t.Fatalf("unexpected line total: %s", line.LineTotal())
	}
	if line.LineDiscount().String() != "20.00" {
		t.Fatalf("unexpected line discount: %s", line.LineDiscount())
	}

	odd := LineItem{UnitPrice: MustMoney("10.00"), OriginalUnitPrice: MustMoney("8.00"), Quantity: 1}
	odd.Normalize()
	if !odd.OriginalUnitPrice.Equal(odd.UnitPrice) {
		t.Fatalf("original price should be raised to unit price, got %s", odd.OriginalUnitPrice)
	}
	if !odd.LineDiscount().Decimal.IsZero() {
		t.Fatalf("discount should be zero after normalize")
	}
}

func TestCartCloneIsIndependent(t *testing.T) {
	cart := &Cart{Lines: []LineItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 2}}}
	clone := cart.Clone()
	clone.Lines[0].Quantity = 9
	if cart.Lines[0].Quantity != 1 {
		t.Fatalf("clone should not share backing array")
	}
	if cart.IndexOf("b") != 1 || cart.IndexOf("z") != -1 {
		t.Fatalf("unexpected index lookup")
	}
	if ids := cart.ProductIDs(); len(ids) != 2 || ids[0] != "a" {
		t.Fatalf("unexpected product ids: %v", ids)
	}
	var empty *Cart
	if !empty.IsEmpty() || empty.IndexOf("a") != -1 {
		t.Fatalf("nil cart should behave as empty")
	}
}

func TestDeliveryAddressValidate(t *testing.T) {
	cases := []struct {
		name    string
		address DeliveryAddress
		wantErr error
	}{
		{name: "valid with hyphen", address: DeliveryAddress{PostalCode: "01310-100", State: "SP"}},
		{name: "valid digits", address: DeliveryAddress{PostalCode: "30140071", State: "mg"}},
		{name: "short postal", address: DeliveryAddress{PostalCode: "0131", State: "SP"}, wantErr: ErrInvalidPostalCode},
		{name: "letters in postal", address: DeliveryAddress{PostalCode: "0131A-100", State: "SP"}, wantErr: ErrInvalidPostalCode},
		{name: "long state", address: DeliveryAddress{PostalCode: "01310-100", State: "SPX"}, wantErr: ErrInvalidState},
	}
	for _, tc := range cases {
		if err := tc.address.Validate(); err != tc.wantErr {
			t.Fatalf("%s: want %v got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestStoreEntryExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	if (StoreEntry{}).Expired(now) {
		t.Fatalf("entry without expiry should never expire")
	}
	if !(StoreEntry{ExpiresAt: &past}).Expired(now) {
		t.Fatalf("past expiry should be expired")
	}
	if (StoreEntry{ExpiresAt: &future}).Expired(now) {
		t.Fatalf("future expiry should not be expired")
	}
}
