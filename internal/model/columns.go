package model

// Columns names the tabular headers that feed each DetailRecord field.
// Header matching is exact and case-sensitive.
type Columns struct {
	Plan    string
	Account string
	Payer   string
	Invoice string
	Amount  string
	Date    string
}

// DefaultColumns returns the header names expected when none are configured.
func DefaultColumns() Columns {
	return Columns{
		Plan:    "Plan",
		Account: "Account",
		Payer:   "Payer",
		Invoice: "Invoice",
		Amount:  "Amount",
		Date:    "Date",
	}
}

// Required returns the headers a source must carry. The plan column is optional.
func (c Columns) Required() []string {
	return []string{c.Account, c.Payer, c.Invoice, c.Amount, c.Date}
}

// WithDefaults fills any empty header name from DefaultColumns.
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	if c.Plan == "" {
		c.Plan = d.Plan
	}
	if c.Account == "" {
		c.Account = d.Account
	}
	if c.Payer == "" {
		c.Payer = d.Payer
	}
	if c.Invoice == "" {
		c.Invoice = d.Invoice
	}
	if c.Amount == "" {
		c.Amount = d.Amount
	}
	if c.Date == "" {
		c.Date = d.Date
	}
	return c
}
