package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/fulfillment-service/pkg/errors"
)

func TestFeeService_QuoteDispatch(t *testing.T) {
	svc := NewFeeService(Dependencies{})

	tests := []struct {
		name        string
		cmd         DispatchFeeQuoteCommand
		fee         float64
		packingType string
	}{
		{name: "first step", cmd: DispatchFeeQuoteCommand{ActualWeightKg: 0.5}, fee: 7, packingType: "normal"},
		{name: "two extra steps", cmd: DispatchFeeQuoteCommand{ActualWeightKg: 1.2}, fee: 11, packingType: "normal"},
		{name: "fragile", cmd: DispatchFeeQuoteCommand{ActualWeightKg: 1.0, PackingType: "fragile"}, fee: 15, packingType: "fragile"},
		{name: "eco fragile alias", cmd: DispatchFeeQuoteCommand{ActualWeightKg: 0.2, PackingType: "eco-fragile"}, fee: 12, packingType: "eco_fragile"},
		{
			name: "volumetric wins",
			cmd:  DispatchFeeQuoteCommand{ActualWeightKg: 0.2, LengthCm: 50, BreadthCm: 10, HeightCm: 10},
			fee:  9, packingType: "normal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := svc.QuoteDispatch(context.Background(), tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.fee, quote.Fee)
			assert.Equal(t, tt.packingType, quote.PackingType)
		})
	}
}

func TestFeeService_QuoteDispatchRejectsUnknownPacking(t *testing.T) {
	svc := NewFeeService(Dependencies{})

	_, err := svc.QuoteDispatch(context.Background(), DispatchFeeQuoteCommand{PackingType: "crate"})
	requireAppError(t, err, errors.CodeValidationError)
}

func TestFeeService_QuoteInbound(t *testing.T) {
	svc := NewFeeService(Dependencies{})

	quote, err := svc.QuoteInbound(context.Background(), InboundFeeQuoteCommand{ActualWeightKg: 1.1})
	require.NoError(t, err)
	assert.Equal(t, 15.0, quote.Fee)
	assert.Equal(t, 1.1, quote.BillableWeightKg)

	quote, err = svc.QuoteInbound(context.Background(), InboundFeeQuoteCommand{})
	require.NoError(t, err)
	assert.Zero(t, quote.Fee)
}
