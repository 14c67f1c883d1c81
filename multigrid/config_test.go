package multigrid

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	{ // Schedule length must be NumLevels-1
		cfg := hConfig(3)
		cfg.Schedule = cfg.Schedule[:1]
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
		_, err := Setup(&fdBasis{3}, fdAssembler{}, cfg)
		assert.True(t, errors.Is(err, ErrConfiguration))
	}
	{ // Cycle multiplicity is V or W only
		cfg := hConfig(2)
		cfg.CycleH = 3
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
	}
	{ // External smoother needs a factory
		cfg := hConfig(2)
		cfg.Smoother = External
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
		cfg.External = jacobiFactory(0.6)
		assert.NoError(t, cfg.Validate())
	}
	{
		cfg := hConfig(2)
		cfg.DirectAssembly = []int{2}
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
	}
	{
		cfg := hConfig(2)
		cfg.Tolerance = 0
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
	}
	{
		cfg := hConfig(2)
		cfg.PreSmooth = -1
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
	}
	{
		cfg := hConfig(2)
		cfg.Restriction = RestrictionMode(7)
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
	}
	{ // DirectProjection needs a degree change on top
		cfg := hConfig(3)
		cfg.DirectProjection = 2
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
		cfg.Schedule[1] = HPCoarsen
		assert.NoError(t, cfg.Validate())
		cfg.DirectProjection = -1
		assert.True(t, errors.Is(cfg.Validate(), ErrConfiguration))
	}
	{ // A degree transition needs a mass assembler
		cfg := DefaultConfig()
		cfg.Schedule = []CoarseningType{PCoarsen}
		_, err := Setup(&fdBasis{3}, fdAssembler{}, cfg)
		assert.True(t, errors.Is(err, ErrConfiguration))
	}
}

func TestConfigText(t *testing.T) {
	sched, err := ParseSchedule("p, h,hp")
	require.NoError(t, err)
	assert.Equal(t, []CoarseningType{PCoarsen, HCoarsen, HPCoarsen}, sched)
	_, err = ParseSchedule("p,x")
	assert.True(t, errors.Is(err, ErrConfiguration))
	sched, err = ParseSchedule("")
	assert.NoError(t, err)
	assert.Nil(t, sched)

	var cfg SolverConfig
	text := []byte(`{"NumLevels": 3, "Schedule": ["p", "h"], "Smoother": "block",
		"Transfer": "galerkin", "Restriction": "transpose", "DirectProjection": 3,
		"Correction": "add", "ILUT": {"Ordering": "natural"}}`)
	require.NoError(t, json.Unmarshal(text, &cfg))
	assert.Equal(t, 3, cfg.NumLevels)
	assert.Equal(t, []CoarseningType{PCoarsen, HCoarsen}, cfg.Schedule)
	assert.Equal(t, BlockILUT, cfg.Smoother)
	assert.Equal(t, GalerkinTransfer, cfg.Transfer)
	assert.Equal(t, TransposeRestriction, cfg.Restriction)
	assert.Equal(t, 3, cfg.DirectProjection)
	assert.Equal(t, AddCorrection, cfg.Correction)
	assert.Equal(t, NaturalOrdering, cfg.ILUT.Ordering)
	assert.Equal(t, "hp", HPCoarsen.String())
	assert.Equal(t, "SmootherType(9)", SmootherType(9).String())

	out, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Schedule":["h"]`)
	assert.Contains(t, string(out), `"Restriction":"projection"`)
}

func TestSmootherKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumLevels = 3
	cfg.Schedule = []CoarseningType{HCoarsen, PCoarsen}
	cfg.Smoother = ILUT
	assert.Equal(t, ILUT, cfg.smootherKind(1))
	cfg.HLevelGaussSeidel = true
	assert.Equal(t, GaussSeidel, cfg.smootherKind(1))
	assert.Equal(t, ILUT, cfg.smootherKind(2))
	cfg.Schedule = []CoarseningType{HCoarsen, HCoarsen}
	assert.Equal(t, ILUT, cfg.smootherKind(1))

	cfg.HLevelGaussSeidel = false
	cfg.Schedule = []CoarseningType{PCoarsen, PCoarsen}
	cfg.DirectProjection = 3
	assert.Equal(t, GaussSeidel, cfg.smootherKind(1))
	assert.Equal(t, ILUT, cfg.smootherKind(2))
	assert.Equal(t, 1, cfg.degreeStep(1))
	assert.Equal(t, 3, cfg.degreeStep(2))
}
