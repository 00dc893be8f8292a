package drivers

import (
	"testing"

	"simtelemetry/pkg/config"
	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKeepsOrder(t *testing.T) {
	ds, err := Build([]config.DriverConfig{
		{Kind: config.KindSharedMemory, Name: "lmu-shm", Producer: "lmu", Path: "/dev/shm/x"},
		{Kind: config.KindLiveTiming, Name: "rf2-live", Producer: "rfactor2", URL: "http://localhost:5397"},
		{Kind: config.KindMock, Name: "mock"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, ds, 3)

	assert.Equal(t, "lmu-shm", ds[0].Name())
	assert.Equal(t, model.ProducerLMU, ds[0].ID())
	assert.Equal(t, model.ProducerRFactor2, ds[1].ID())
	assert.Equal(t, model.ProducerMock, ds[2].ID())
	for _, d := range ds {
		_, lists := d.(source.ListDriver)
		assert.True(t, lists, d.Name())
	}
}

func TestBuildErrors(t *testing.T) {
	_, err := Build([]config.DriverConfig{{Kind: "udp", Name: "x"}}, nil)
	assert.ErrorContains(t, err, "driver x")

	_, err = Build([]config.DriverConfig{{Kind: config.KindLiveTiming, Name: "live", URL: "ftp://host"}}, nil)
	assert.Error(t, err)
}
