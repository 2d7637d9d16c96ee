package energy_counters

// The uD3h never reports harmonic distortion; THD keys are kept as zero.
var contrelUD3h = &Model{
	Name:             "contrel_ud3h",
	Manufacturer:     "Contrel",
	Description:      "uD3h three-phase network analyzer",
	FailureThreshold: 6,
	Preferred:        ProtocolTCP,
	Blocks: []*RegisterBlockSpec{
		MustRegisterBlockSpec("voltage", 4098, 22,
			Uint32(0, 0.001, "vl1"),
			Uint32(2, 0.001, "vl2"),
			Uint32(4, 0.001, "vl3"),
			Uint32(6, 0.001, "vl12"),
			Uint32(8, 0.001, "vl23"),
			Uint32(10, 0.001, "vl31"),
			Uint32(12, 0.001, "il1"),
			Uint32(14, 0.001, "il2"),
			Uint32(16, 0.001, "il3"),
			Uint32(18, 0.001, "iln"),
			Uint32(20, 0.001, "freq"),
		),
		MustRegisterBlockSpec("power", 4134, 32,
			Int32(0, 0.001, "pl1"),
			Int32(2, 0.001, "pl2"),
			Int32(4, 0.001, "pl3"),
			Int32(6, 0.001, "paeq"),
			Int32(8, 0.001, "ql1"),
			Int32(10, 0.001, "ql2"),
			Int32(12, 0.001, "ql3"),
			Int32(14, 0.001, "qaeq"),
			Int32(16, 0.001, "sl1"),
			Int32(18, 0.001, "sl2"),
			Int32(20, 0.001, "sl3"),
			Int32(22, 0.001, "saeq"),
			Int32(24, 0.001, "pfl1"),
			Int32(26, 0.001, "pfl2"),
			Int32(28, 0.001, "pfl3"),
			Int32(30, 0.001, "pfeq"),
		),
		MustRegisterBlockSpec("energy", 4166, 6,
			Uint32(0, 0.1, "energyActive"),
			Uint32(2, 0.1, "energyReactive"),
			Uint32(4, 0.1, "energyApparent"),
			Zero("thdV1"),
			Zero("thdV2"),
			Zero("thdV3"),
			Zero("thdIL1"),
			Zero("thdIL2"),
			Zero("thdIL3"),
		),
	},
}

func init() {
	mustRegisterModel(contrelUD3h)
}
