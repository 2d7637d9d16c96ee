package energy_counters

var redzLKM144 = &Model{
	Name:             "redz_lkm144",
	Manufacturer:     "RedZ",
	Description:      "LKM144 smart meter",
	FailureThreshold: 5,
	Preferred:        ProtocolRTU,
	Blocks: []*RegisterBlockSpec{
		MustRegisterBlockSpec("main", 0, 48,
			Uint32(0, 1, "time"),
			Uint32(2, 1, "date"),
			Uint32(4, 0.001, "energyActive"),
			Uint32(6, 0.001, "energyReactive"),
			Uint32(8, 0.001, "energyActiveExport"),
			Uint32(10, 0.001, "energyReactiveExport"),
			Uint32(12, 0.001, "instantaneousPower"),
			Uint32(14, 0.001, "instantaneousPowerExport"),
			Uint32(16, 0.1, "voltageL1"),
			Uint32(18, 0.1, "voltageL2"),
			Uint32(20, 0.1, "voltageL3"),
			Uint32(22, 0.1, "currentL1"),
			Uint32(24, 0.1, "currentL2"),
			Uint32(26, 0.1, "currentL3"),
			Uint32(28, 0.001, "powerL1"),
			Uint32(30, 0.001, "powerL2"),
			Uint32(32, 0.001, "powerL3"),
			Uint32(34, 0.001, "powerFactor"),
			Uint32(36, 0.001, "powerFactorL1"),
			Uint32(38, 0.001, "powerFactorL2"),
			Uint32(40, 0.001, "powerFactorL3"),
			Uint32(42, 0.1, "frequency"),
			Uint32(44, 1, "meterNumber"),
			Uint32(46, 0.001, "maxDemand"),
		),
	},
}

func init() {
	mustRegisterModel(redzLKM144)
}
