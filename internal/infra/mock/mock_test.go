package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/port"
)

var (
	_ port.RegistryLookup   = (*Registry)(nil)
	_ port.IdentityLookup   = (*Identity)(nil)
	_ port.PaymentProcessor = Payments{}
	_ port.VINDecoder       = (*VINDecoder)(nil)
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	v, err := r.LookupVehicle(ctx, " sba5678b ")
	require.NoError(t, err)
	assert.Equal(t, "Honda", v.Make)
	require.Len(t, v.AccidentHistory, 1)
	assert.Equal(t, "minor", v.AccidentHistory[0].Severity)

	v.AccidentHistory[0].Severity = "major"
	again, _ := r.LookupVehicle(ctx, "SBA5678B")
	assert.Equal(t, "minor", again.AccidentHistory[0].Severity)

	_, err = r.LookupVehicle(ctx, "SXX0000Z")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestIdentity(t *testing.T) {
	ctx := context.Background()
	i := NewIdentity()

	rec, err := i.RetrieveIdentity(ctx, "s1234567a")
	require.NoError(t, err)
	assert.Equal(t, "Tan Ah Kow", rec.FullName)
	assert.Equal(t, "3", rec.DrivingLicense.Class)

	_, err = i.RetrieveIdentity(ctx, "T7654321J")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestPayments(t *testing.T) {
	ctx := context.Background()
	res, err := NewPayments().Charge(ctx, "s1", "paynow", 792)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Regexp(t, `^CHG-[0-9A-F]{8}$`, res.Reference)

	_, err = NewPayments().Charge(ctx, "s1", "paynow", 0)
	var ve *domain.ErrValidation
	assert.True(t, errors.As(err, &ve))
}

func TestVINDecoder(t *testing.T) {
	ctx := context.Background()
	d := NewVINDecoder()

	data, err := d.DecodeVIN(ctx, "1hgcm82633a004352")
	require.NoError(t, err)
	assert.Equal(t, "1HGCM82633A004352", data.VIN)
	assert.Equal(t, "Accord", data.Model)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = d.DecodeVIN(cancelled, "1HGCM82633A004352")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = d.DecodeVIN(ctx, "00000000000000000")
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}
