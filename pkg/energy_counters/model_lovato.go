package energy_counters

var lovatoDMG210 = &Model{
	Name:             "lovato_dmg210",
	Manufacturer:     "Lovato Electric",
	Description:      "DMG210 multifunction meter",
	FailureThreshold: 2,
	Preferred:        ProtocolTCP,
	Blocks: []*RegisterBlockSpec{
		MustRegisterBlockSpec("instant", 2, 24,
			Uint32(0, 0.01, "vl1"),
			Uint32(2, 0.01, "vl2"),
			Uint32(4, 0.01, "vl3"),
			Uint32(6, 0.0001, "il1"),
			Uint32(8, 0.0001, "il2"),
			Uint32(10, 0.0001, "il3"),
			Uint32(12, 0.01, "vl12"),
			Uint32(14, 0.01, "vl23"),
			Uint32(16, 0.01, "vl31"),
			Int32(18, 0.01, "p1"),
			Int32(20, 0.01, "p2"),
			Int32(22, 0.01, "p3"),
		),
		MustRegisterBlockSpec("equivalent", 0x32, 38,
			Uint32(0, 0.01, "freq"),
			Uint32(2, 0.01, "veq"),
			Uint32(4, 0.01, "veql"),
			Uint32(6, 0.0001, "ieq"),
			Int32(8, 0.01, "peq"),
			Int32(10, 0.01, "qeq"),
			Uint32(12, 0.01, "seq"),
			Uint32(14, 0.0001, "pfeq"),
			Uint32(26, 0.01, "thdV1"),
			Uint32(28, 0.01, "thdV2"),
			Uint32(30, 0.01, "thdV3"),
			Uint32(32, 0.01, "thdIL1"),
			Uint32(34, 0.01, "thdIL2"),
			Uint32(36, 0.01, "thdIL3"),
		),
		MustRegisterBlockSpec("energy", 6687, 10,
			Int32(0, 0.1, "energiaActiva"),
			Int32(4, 0.1, "energiaReactiva"),
			Int32(8, 0.1, "energiaAparente"),
		),
	},
}

// The DMG1 map only exposes the first register of each group, unscaled.
var lovatoDMG1 = &Model{
	Name:             "lovato_dmg1",
	Manufacturer:     "Lovato Electric",
	Description:      "DMG1 single-phase meter",
	FailureThreshold: 6,
	Preferred:        ProtocolRTU,
	Blocks: []*RegisterBlockSpec{
		MustRegisterBlockSpec("voltage", 0, 6,
			Uint16(0, 1, "vl1").WithDecimals(2),
			Uint16(1, 1, "vl2").WithDecimals(2),
			Uint16(2, 1, "vl3").WithDecimals(2),
		),
		MustRegisterBlockSpec("current", 10, 6,
			Uint16(0, 1, "il1").WithDecimals(2),
			Uint16(1, 1, "il2").WithDecimals(2),
			Uint16(2, 1, "il3").WithDecimals(2),
		),
		MustRegisterBlockSpec("power", 20, 8,
			Uint16(0, 1, "pl1").WithDecimals(2),
			Uint16(1, 1, "pl2").WithDecimals(2),
			Uint16(2, 1, "pl3").WithDecimals(2),
		),
		MustRegisterBlockSpec("energy", 30, 4,
			Uint16(0, 1, "energyActive").WithDecimals(1),
		),
	},
}

func init() {
	mustRegisterModel(lovatoDMG210)
	mustRegisterModel(lovatoDMG1)
}
