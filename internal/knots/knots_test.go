package knots

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/rendercal/internal/capture"
	"github.com/coreman2200/rendercal/internal/experiment"
	"github.com/coreman2200/rendercal/internal/lut"
	"github.com/coreman2200/rendercal/internal/render"
	"github.com/coreman2200/rendercal/internal/render/scenes/plane"
	"github.com/coreman2200/rendercal/internal/sweep"
	"github.com/coreman2200/rendercal/internal/trials"
)

// sweepLog runs a delta sweep through the simulated renderer and returns
// the log.
func sweepLog(t *testing.T, inc float64) trials.Table {
	t.Helper()
	lib, err := lut.DeltaLibrary(lut.DefaultKnots)
	require.NoError(t, err)
	dim := render.Dimensions{W: 8, H: 8}
	eng, err := render.NewEngine(dim, plane.Lambertian{}, lib)
	require.NoError(t, err)
	eng.Tonemap = true

	ctl, err := sweep.New(sweep.Config{Start: 3, LightMin: 1e-4, LightMax: 400, Increment: inc})
	require.NoError(t, err)
	m, err := capture.New(capture.DefaultConfig(dim), eng)
	require.NoError(t, err)
	var buf bytes.Buffer
	l, err := trials.NewLogger(ctl.Schema(), trials.NewCSV(&buf))
	require.NoError(t, err)

	r := experiment.NewRunner(ctl, eng.Hooks(), m, l)
	require.NoError(t, r.Run(context.Background(), eng))
	tab, err := trials.ReadCSV(&buf)
	require.NoError(t, err)
	return tab
}

func TestExtractRecoversKnots(t *testing.T) {
	const inc = 1.02
	k, err := Extract(sweepLog(t, inc), DefaultConfig())
	require.NoError(t, err)
	require.Len(t, k.Knots, 32)
	require.NoError(t, k.Validate())

	assert.Equal(t, 0.0, k.Knots[0])
	assert.Equal(t, 1e-9, k.Knots[1])
	// delta 3 peaks at the clamp floor, far below the sweep's lowest
	// luminance, so its estimate lands at the bottom of the sweep
	floorU := DefaultConfig().Reflectance * 1e-4 / math.Pi
	assert.InEpsilon(t, floorU, k.Knots[2], 0.2)
	for m := 4; m <= 32; m++ {
		want := lut.DefaultKnots[m-1]
		assert.InEpsilon(t, want, k.Knots[m-1], 2*(inc-1), "delta %d", m)
	}
}

func TestExtractErrors(t *testing.T) {
	_, err := Extract(trials.Table{Header: []string{"delta_m", "i_d"}}, DefaultConfig())
	assert.Error(t, err)

	tab := trials.Table{
		Header: []string{"sampleNumber", "delta_m", "i_d", "v_r", "v_g", "v_b"},
		Rows:   [][]float64{{1, 1, 1, 0, 0, 0}, {2, 2, 1, 0, 0, 0}},
	}
	_, err = Extract(tab, DefaultConfig())
	assert.Error(t, err)

	tab.Rows = append(tab.Rows, []float64{3, 4, 1, 0, 0, 0})
	_, err = Extract(tab, DefaultConfig())
	assert.Error(t, err, "delta 3 missing")

	cfg := DefaultConfig()
	cfg.Reflectance = 0
	_, err = Extract(tab, cfg)
	assert.Error(t, err)
}
