package energy_counters

// EM530 stores 32-bit values with the least significant word first.
var carloGavazziEM530 = &Model{
	Name:             "carlo_gavazzi_em530",
	Manufacturer:     "Carlo Gavazzi",
	Description:      "EM530 three-phase energy analyzer",
	FailureThreshold: 2,
	Preferred:        ProtocolRTU,
	Blocks: []*RegisterBlockSpec{
		MustRegisterBlockSpec("instant", 0x0000, 64,
			Uint32(0, 0.1, "tensaoL1").LowWordFirst(),
			Uint32(2, 0.1, "tensaoL2").LowWordFirst(),
			Uint32(4, 0.1, "tensaoL3").LowWordFirst(),
			Uint32(6, 0.1, "tensaoL12").LowWordFirst(),
			Uint32(8, 0.1, "tensaoL23").LowWordFirst(),
			Uint32(10, 0.1, "tensaoL31").LowWordFirst(),
			Uint32(12, 0.001, "correnteL1").LowWordFirst(),
			Uint32(14, 0.001, "correnteL2").LowWordFirst(),
			Uint32(16, 0.001, "correnteL3").LowWordFirst(),
			Int32(18, 0.0001, "potenciaL1").LowWordFirst(),
			Int32(20, 0.0001, "potenciaL2").LowWordFirst(),
			Int32(22, 0.0001, "potenciaL3").LowWordFirst(),
			Int32(40, 0.1, "potenciaActiva").LowWordFirst(),
			Int32(44, 0.1, "potenciaReactiva").LowWordFirst(),
			Int32(42, 0.1, "potenciaAparente").LowWordFirst(),
			Int16(49, 0.001, "factorPotencia"),
			Uint16(51, 0.1, "frequencia"),
			Uint32(52, 0.1, "energiaActiva").LowWordFirst(),
			Uint32(54, 0.1, "energiaReactiva").LowWordFirst(),
		),
		MustRegisterBlockSpec("apparent_energy", 0x0056, 2,
			Uint32(0, 0.1, "energiaAparente").LowWordFirst(),
		),
		MustRegisterBlockSpec("thd_current", 0x0082, 6,
			Uint32(0, 0.01, "thdCorrenteL1").LowWordFirst(),
			Uint32(2, 0.01, "thdCorrenteL2").LowWordFirst(),
			Uint32(4, 0.01, "thdCorrenteL3").LowWordFirst(),
		),
		MustRegisterBlockSpec("thd_voltage", 0x0092, 6,
			Uint32(0, 0.01, "thdTensaoL1").LowWordFirst(),
			Uint32(2, 0.01, "thdTensaoL2").LowWordFirst(),
			Uint32(4, 0.01, "thdTensaoL3").LowWordFirst(),
		),
	},
}

func init() {
	mustRegisterModel(carloGavazziEM530)
}
