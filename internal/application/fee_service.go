package application

import (
	"context"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

// FeeService prices parcels against the rate card without touching state
type FeeService struct {
	fees *domain.FeeCalculator
}

// NewFeeService creates a new FeeService
func NewFeeService(deps Dependencies) *FeeService {
	deps = deps.withDefaults()
	return &FeeService{fees: domain.NewFeeCalculator(deps.Schedule)}
}

// QuoteDispatch returns the tiered dispatch fee of a parcel
func (s *FeeService) QuoteDispatch(_ context.Context, cmd DispatchFeeQuoteCommand) (*FeeQuoteDTO, error) {
	packingType, err := domain.ParsePackingType(cmd.PackingType)
	if err != nil {
		return nil, mapDomainError(err)
	}

	volumetric := s.fees.VolumetricWeightKg(domain.Dimensions{
		LengthCm:  cmd.LengthCm,
		BreadthCm: cmd.BreadthCm,
		HeightCm:  cmd.HeightCm,
	})
	return &FeeQuoteDTO{
		ActualWeightKg:     cmd.ActualWeightKg,
		VolumetricWeightKg: volumetric,
		BillableWeightKg:   domain.BillableWeightKg(cmd.ActualWeightKg, volumetric),
		PackingType:        string(packingType),
		Fee:                s.fees.DispatchFee(cmd.ActualWeightKg, volumetric, packingType).Float64(),
	}, nil
}

// QuoteInbound returns the per-step inbound handling fee of a parcel
func (s *FeeService) QuoteInbound(_ context.Context, cmd InboundFeeQuoteCommand) (*FeeQuoteDTO, error) {
	volumetric := s.fees.VolumetricWeightKg(domain.Dimensions{
		LengthCm:  cmd.LengthCm,
		BreadthCm: cmd.BreadthCm,
		HeightCm:  cmd.HeightCm,
	})
	return &FeeQuoteDTO{
		ActualWeightKg:     cmd.ActualWeightKg,
		VolumetricWeightKg: volumetric,
		BillableWeightKg:   domain.BillableWeightKg(cmd.ActualWeightKg, volumetric),
		Fee:                s.fees.InboundFee(cmd.ActualWeightKg, volumetric).Float64(),
	}, nil
}
