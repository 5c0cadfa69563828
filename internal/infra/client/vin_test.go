package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/infra/resilience"
)

const accordVIN = "1HGCM82633A004352"

func newVINClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *VINClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	return NewVINClient(srv.Client(), srv.URL+"/", timeout, resilience.NewCircuitBreaker("vin-test"), cfg)
}

func TestDecodeVIN_Success(t *testing.T) {
	c := newVINClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/vehicles/DecodeVinValues/"+accordVIN, r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{"Count":1,"Message":"Results returned successfully","Results":[{"Make":"HONDA","Model":"Accord","ModelYear":"2003","DisplacementCC":"2998.832712","FuelTypePrimary":"Gasoline","BodyClass":"Coupe","ErrorCode":"0"}]}`))
	}, 0)

	got, err := c.DecodeVIN(context.Background(), accordVIN)
	require.NoError(t, err)
	assert.Equal(t, &domain.VINData{
		VIN:            accordVIN,
		Make:           "HONDA",
		Model:          "Accord",
		Year:           2003,
		DisplacementCC: 2998.832712,
		FuelType:       "Gasoline",
		BodyClass:      "Coupe",
	}, got)
}

func TestDecodeVIN_UnknownIsNotFoundWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	c := newVINClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"Count":1,"Results":[{"Make":"","ErrorCode":"1"}]}`))
	}, 0)

	_, err := c.DecodeVIN(context.Background(), accordVIN)
	var nf *domain.ErrNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeVIN_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	c := newVINClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 0)

	_, err := c.DecodeVIN(context.Background(), accordVIN)
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext))
	assert.Equal(t, "vin-decoder", ext.Service)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDecodeVIN_Timeout(t *testing.T) {
	c := newVINClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, 20*time.Millisecond)

	_, err := c.DecodeVIN(context.Background(), accordVIN)
	var to *domain.ErrTimeout
	assert.True(t, errors.As(err, &to))
}

func TestDecodeVIN_MalformedBodyIsExternal(t *testing.T) {
	c := newVINClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Count":1,"Results":[{"Make":`))
	}, 0)

	_, err := c.DecodeVIN(context.Background(), accordVIN)
	var ext *domain.ErrExternalService
	require.True(t, errors.As(err, &ext), "got %v", err)
	assert.Equal(t, "vin-decoder", ext.Service)
	assert.Contains(t, err.Error(), "failed to decode vin response")
}
