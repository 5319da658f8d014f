package money

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type amountJSON struct {
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	ExcludingVat *decimal.Decimal `json:"amountExcludingVat,omitempty"`
	Vat          *decimal.Decimal `json:"vat,omitempty"`
	Currency     string           `json:"currency,omitempty"`
	Raw          string           `json:"raw,omitempty"`
}

// MarshalJSON encodes the amount for storage. Absent fields are omitted so
// that an absent VAT component round-trips as absent, not zero.
func (a Amount) MarshalJSON() ([]byte, error) {
	out := amountJSON{Currency: a.currency, Raw: a.raw}
	if a.amount.Valid {
		v := a.amount.Decimal
		out.Amount = &v
	}
	if a.exclVat.Valid {
		v := a.exclVat.Decimal
		out.ExcludingVat = &v
	}
	if a.vat.Valid {
		v := a.vat.Decimal
		out.Vat = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an amount, re-validating the construction
// invariants of NewWithVat for numeric values.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var in amountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Raw != "" {
		*a = Raw(in.Raw, in.Currency)
		return nil
	}
	parsed, err := NewWithVat(toNull(in.Amount), toNull(in.ExcludingVat), toNull(in.Vat), in.Currency)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
