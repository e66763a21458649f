package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/fulfillment-service/internal/domain"
)

// rateCardFile mirrors domain.FeeSchedule with optional fields so a file
// only needs the keys it overrides
type rateCardFile struct {
	DispatchTiers map[string]struct {
		Base      *float64 `yaml:"base"`
		Increment *float64 `yaml:"increment"`
	} `yaml:"dispatchTiers"`
	WeightStepKg       *float64 `yaml:"weightStepKg"`
	InboundRatePerStep *float64 `yaml:"inboundRatePerStep"`
	BoxCuttingFee      *float64 `yaml:"boxCuttingFee"`
	TrackingFee        *float64 `yaml:"trackingFee"`
	OrderUnitPrice     *float64 `yaml:"orderUnitPrice"`
	VolumetricDivisor  *float64 `yaml:"volumetricDivisor"`
}

// LoadFeeSchedule returns the default rate card, overridden by the YAML file
// at path when path is not empty
func LoadFeeSchedule(path string) (*domain.FeeSchedule, error) {
	if path == "" {
		return domain.DefaultFeeSchedule(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate card %s: %w", path, err)
	}
	return ParseFeeSchedule(data)
}

// ParseFeeSchedule applies a YAML rate card over the defaults
func ParseFeeSchedule(data []byte) (*domain.FeeSchedule, error) {
	var file rateCardFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rate card: %w", err)
	}

	schedule := domain.DefaultFeeSchedule()
	for name, override := range file.DispatchTiers {
		packingType, err := domain.ParsePackingType(name)
		if err != nil {
			return nil, fmt.Errorf("rate card: %w", err)
		}
		tier := schedule.DispatchTiers[packingType]
		if override.Base != nil {
			tier.Base = domain.NewMoney(*override.Base)
		}
		if override.Increment != nil {
			tier.Increment = domain.NewMoney(*override.Increment)
		}
		schedule.DispatchTiers[packingType] = tier
	}

	setFloat(&schedule.WeightStepKg, file.WeightStepKg)
	setFloat(&schedule.VolumetricDivisor, file.VolumetricDivisor)
	setMoney(&schedule.InboundRatePerStep, file.InboundRatePerStep)
	setMoney(&schedule.BoxCuttingFee, file.BoxCuttingFee)
	setMoney(&schedule.TrackingFee, file.TrackingFee)
	setMoney(&schedule.OrderUnitPrice, file.OrderUnitPrice)

	if err := validateSchedule(schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setMoney(dst *domain.Money, v *float64) {
	if v != nil {
		*dst = domain.NewMoney(*v)
	}
}

func validateSchedule(s *domain.FeeSchedule) error {
	if s.WeightStepKg <= 0 {
		return fmt.Errorf("rate card: weightStepKg must be > 0")
	}
	if s.VolumetricDivisor <= 0 {
		return fmt.Errorf("rate card: volumetricDivisor must be > 0")
	}
	for packingType, tier := range s.DispatchTiers {
		if tier.Base.IsNegative() || tier.Increment.IsNegative() {
			return fmt.Errorf("rate card: %s tier: %w", packingType, domain.ErrNegativeValue)
		}
	}
	for name, m := range map[string]domain.Money{
		"inboundRatePerStep": s.InboundRatePerStep,
		"boxCuttingFee":      s.BoxCuttingFee,
		"trackingFee":        s.TrackingFee,
		"orderUnitPrice":     s.OrderUnitPrice,
	} {
		if m.IsNegative() {
			return fmt.Errorf("rate card: %s: %w", name, domain.ErrNegativeValue)
		}
	}
	return nil
}
