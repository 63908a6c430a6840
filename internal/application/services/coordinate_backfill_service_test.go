package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicfinder/internal/adapters/dataset"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
)

func TestCoordinateBackfillService_BackfillAll(t *testing.T) {
	csv := "clinic_name,specialty,address,lat,lng\n" +
		"A,心臟內科,addr-a,,\n" +
		"B,心臟內科,addr-b,,\n" +
		"C,心臟內科,addr-c,25.0,121.5\n" +
		"D,心臟內科,,,\n"

	geo := new(MockGeolocationProvider)
	geo.On("Geocode", mock.Anything, "addr-a").Return([]providers.GeocodeResult{{Lat: 24.1, Lng: 120.6}}, nil).Once()
	geo.On("Geocode", mock.Anything, "addr-b").Return([]providers.GeocodeResult{}, nil).Once()

	registry, path := newTestRegistry(t, csv, geo)
	svc := NewCoordinateBackfillService(registry, 2, zerolog.Nop())

	summary, err := svc.BackfillAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &BackfillSummary{TotalProcessed: 2, SuccessCount: 1, FailureCount: 1}, summary)

	table, err := dataset.NewCSVRepository(path).Read()
	require.NoError(t, err)
	assert.Equal(t, "24.1", table.Rows[0]["lat"])
	assert.Equal(t, "120.6", table.Rows[0]["lng"])
	assert.Empty(t, table.Rows[1]["lat"])
	assert.Equal(t, "25.0", table.Rows[2]["lat"])
	geo.AssertExpectations(t)
}

func TestCoordinateBackfillService_NothingToDo(t *testing.T) {
	geo := new(MockGeolocationProvider)
	registry, _ := newTestRegistry(t, "clinic_name,specialty,address,lat,lng\nA,x,addr,1,2\n", geo)

	summary, err := NewCoordinateBackfillService(registry, 0, zerolog.Nop()).BackfillAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &BackfillSummary{}, summary)
	geo.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}
