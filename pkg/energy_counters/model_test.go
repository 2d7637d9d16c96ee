package energy_counters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinModels(t *testing.T) {

	assert := assert.New(t)

	names := []string{}
	for _, m := range Models() {
		names = append(names, m.Name)
	}
	for _, name := range []string{"carlo_gavazzi_em530", "contrel_ud3h", "lovato_dmg1", "lovato_dmg210", "redz_lkm144"} {
		assert.Contains(names, name)
	}

	expected := map[string]struct {
		threshold int
		preferred Protocol
		keys      int
	}{
		"carlo_gavazzi_em530": {2, ProtocolRTU, 26},
		"lovato_dmg210":       {2, ProtocolTCP, 29},
		"lovato_dmg1":         {6, ProtocolRTU, 10},
		"redz_lkm144":         {5, ProtocolRTU, 24},
		"contrel_ud3h":        {6, ProtocolTCP, 36},
	}
	for name, exp := range expected {
		m, err := LookupModel(name)
		if !assert.NoError(err) {
			continue
		}
		assert.Equal(exp.threshold, m.FailureThreshold, name)
		assert.Equal(exp.preferred, m.Preferred, name)
		assert.Len(m.Keys(), exp.keys, name)
		assert.NoError(m.Validate(), name)
	}

	ud3h, _ := LookupModel("contrel_ud3h")
	assert.Equal(uint16(4098), ud3h.Blocks[0].StartAddress)
	assert.Equal(uint16(22), ud3h.Blocks[0].RegisterCount)
	assert.Equal(uint16(4134), ud3h.Blocks[1].StartAddress)
	assert.Equal(uint16(32), ud3h.Blocks[1].RegisterCount)
	assert.Equal(uint16(4166), ud3h.Blocks[2].StartAddress)
	assert.Equal(uint16(6), ud3h.Blocks[2].RegisterCount)
}

func TestEM530WordOrder(t *testing.T) {

	require := require.New(t)

	m, err := LookupModel("carlo_gavazzi_em530")
	require.NoError(err)
	mem := NewMemoryTransport()
	for _, blk := range m.Blocks {
		mem.FillRange(1, blk.StartAddress, blk.RegisterCount)
	}
	// 2301 (0x08FD) stored low word first
	mem.SetRegisters(1, 0, 0x08FD, 0x0000)
	// -1000 as int32, low word first
	mem.SetRegisters(1, 40, 0xFC18, 0xFFFF)
	mem.SetRegisters(1, 49, uint16(0x10000-950))
	mem.SetRegisters(1, 51, 500)

	rtu := NewRTUConfiguration("/dev/ttyUSB0", 9600)
	c, err := CreateCollector(m, CounterConfiguration{CounterId: 1, UnitId: 1}, ConnectionConfiguration{RTU: &rtu}, mem, nil, nil)
	require.NoError(err)
	require.True(c.Connect())
	record := c.CollectData()
	require.NotNil(record)
	require.Equal(230.1, record.Values["tensaoL1"])
	require.Equal(-100.0, record.Values["potenciaActiva"])
	require.Equal(-0.95, record.Values["factorPotencia"])
	require.Equal(50.0, record.Values["frequencia"])
}

func TestRegisterModelDuplicate(t *testing.T) {

	assert := assert.New(t)

	assert.Error(RegisterModel(contrelUD3h))
	assert.ErrorIs(RegisterModel(&Model{Name: "empty"}), ErrSpecViolation)

	reserved := &Model{Name: "reserved", Blocks: []*RegisterBlockSpec{MustRegisterBlockSpec("b", 0, 1, Uint16(0, 1, "timestamp"))}}
	assert.ErrorIs(RegisterModel(reserved), ErrSpecViolation)

	dup := &Model{Name: "dup", Blocks: []*RegisterBlockSpec{
		MustRegisterBlockSpec("a", 0, 1, Uint16(0, 1, "x")),
		MustRegisterBlockSpec("b", 10, 1, Uint16(0, 1, "x")),
	}}
	assert.ErrorIs(RegisterModel(dup), ErrSpecViolation)
}

const testModelsYAML = `
models:
  - name: test_yaml_meter
    manufacturer: Example
    failure_threshold: 4
    preferred: tcp
    blocks:
      - name: main
        start: 100
        count: 6
        register_type: input
        fields:
          - {key: voltage, offset: 0, type: uint32, scale: 0.1}
          - {key: power, offset: 2, type: int32, scale: 0.01, word_order: low_first}
          - {key: pf, offset: 4, type: float32, decimals: 2}
          - {key: thd, type: zero}
`

func TestParseModelsYAML(t *testing.T) {

	require := require.New(t)

	parsed, err := ParseModelsYAML(strings.NewReader(testModelsYAML))
	require.NoError(err)
	require.Len(parsed, 1)
	m := parsed[0]
	require.Equal("test_yaml_meter", m.Name)
	require.Equal(4, m.FailureThreshold)
	require.Equal(ProtocolTCP, m.Preferred)
	require.Equal([]string{"voltage", "power", "pf", "thd"}, m.Keys())
	blk := m.Blocks[0]
	require.Equal(InputRegister, blk.RegisterType)
	require.Equal(LowWordFirst, blk.Fields[1].WordOrder)
	require.Equal(2, blk.Fields[2].Decimals)

	values := make(map[string]float64)
	pf := EncodeFloatBE(0.987)
	require.NoError(blk.Decode([]uint16{0, 2301, 0xFF38, 0xFFFF, pf[0], pf[1]}, values))
	require.Equal(230.1, values["voltage"])
	require.Equal(-2.0, values["power"])
	require.Equal(0.99, values["pf"])
	require.Equal(0.0, values["thd"])
}

func TestParseModelsYAMLErrors(t *testing.T) {

	assert := assert.New(t)

	_, err := ParseModelsYAML(strings.NewReader("models:\n  - name: x\n    blocks:\n      - {name: b, start: 0, count: 2, fields: [{key: a, offset: 1, type: uint32}]}\n"))
	assert.ErrorIs(err, ErrSpecViolation)

	_, err = ParseModelsYAML(strings.NewReader("models:\n  - name: x\n    blocks:\n      - {name: b, start: 0, count: 2, fields: [{key: a, type: bcd}]}\n"))
	assert.ErrorIs(err, ErrSpecViolation)

	_, err = ParseModelsYAML(strings.NewReader("models:\n  - name: x\n    unknown: 1\n"))
	assert.Error(err)
}

func TestLoadModelsYAML(t *testing.T) {

	require := require.New(t)

	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(os.WriteFile(path, []byte(strings.ReplaceAll(testModelsYAML, "test_yaml_meter", "test_yaml_loaded")), 0o600))
	loaded, err := LoadModelsYAML(path)
	require.NoError(err)
	require.Len(loaded, 1)

	m, err := LookupModel("test_yaml_loaded")
	require.NoError(err)
	require.Same(loaded[0], m)
}
