package mock

import (
	"context"
	"strings"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
)

// VINDecoder decodes a fixed set of VINs without network access.
type VINDecoder struct {
	known map[string]domain.VINData
}

// NewVINDecoder returns an offline decoder seeded with demo VINs.
func NewVINDecoder() *VINDecoder {
	return &VINDecoder{known: map[string]domain.VINData{
		"1HGCM82633A004352": {Make: "HONDA", Model: "Accord", Year: 2003, DisplacementCC: 2998.8, FuelType: "Gasoline", BodyClass: "Coupe"},
		"JTDKN3DU5A0123456": {Make: "TOYOTA", Model: "Prius", Year: 2010, DisplacementCC: 1798, FuelType: "Gasoline", BodyClass: "Hatchback"},
		"WBA8E9G50GNT12345": {Make: "BMW", Model: "3 Series", Year: 2016, DisplacementCC: 1998, FuelType: "Gasoline", BodyClass: "Sedan"},
	}}
}

// DecodeVIN returns the stored decode, or *domain.ErrNotFound.
func (d *VINDecoder) DecodeVIN(ctx context.Context, vin string) (*domain.VINData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := strings.ToUpper(strings.TrimSpace(vin))
	data, ok := d.known[key]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "vin", ID: key}
	}
	data.VIN = key
	return &data, nil
}
