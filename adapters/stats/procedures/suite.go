package procedures

import (
	"gocompare/ports"
)

// NewSuite wires one implementation per procedure.
func NewSuite() ports.ProcedureSuite {
	return ports.ProcedureSuite{
		Normality:         NewShapiroWilk(),
		ParametricTwo:     NewStudentT(),
		RankTwo:           NewMannWhitneyU(),
		ParametricOmnibus: NewOneWayANOVA(),
		RankOmnibus:       NewKruskalWallis(),
		ParametricPostHoc: NewTukeyHSD(),
		RankPostHoc:       NewDunn(),
	}
}
