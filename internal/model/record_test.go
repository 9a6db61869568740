package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountFits(t *testing.T) {
	tests := []struct {
		amount string
		want   bool
	}{
		{amount: "0", want: true},
		{amount: "45.00", want: true},
		{amount: "-45.00", want: true},
		{amount: "922337203685477.5807", want: true},
		{amount: "-922337203685477.5808", want: true},
		{amount: "922337203685477.5808", want: false},
		{amount: "-922337203685477.5809", want: false},
		{amount: "1000000000000000", want: false},
		{amount: "-1000000000000000", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountFits(decimal.RequireFromString(tt.amount)))
		})
	}
}
