package plan

// StepNo identifies one stage of the fixed production pipeline.
type StepNo int

// The eight pipeline steps, in production order.
const (
	StepPaperStore      StepNo = 1
	StepPrinting        StepNo = 2
	StepCorrugation     StepNo = 3
	StepFluteLamination StepNo = 4
	StepPunching        StepNo = 5
	StepFlapPasting     StepNo = 6
	StepQualityDept     StepNo = 7
	StepDispatchProcess StepNo = 8
)

// FirstStep and LastStep bound the pipeline.
const (
	FirstStep = StepPaperStore
	LastStep  = StepDispatchProcess
)

var stepNames = map[StepNo]string{
	StepPaperStore:      "PaperStore",
	StepPrinting:        "Printing",
	StepCorrugation:     "Corrugation",
	StepFluteLamination: "FluteLamination",
	StepPunching:        "Punching",
	StepFlapPasting:     "FlapPasting",
	StepQualityDept:     "QualityDept",
	StepDispatchProcess: "DispatchProcess",
}

// Name returns the fixed name of the step, or "" for an unknown number.
func (n StepNo) Name() string { return stepNames[n] }

// Valid reports whether n is one of the eight pipeline steps.
func (n StepNo) Valid() bool { return n >= FirstStep && n <= LastStep }

// IsTerminal reports whether n is the last step of the pipeline.
func (n StepNo) IsTerminal() bool { return n == LastStep }

// Predecessor returns the step whose output feeds step n, and whether one
// exists. The graph is not strictly sequential: Corrugation consumes
// PaperStore output directly (sheet stock), bypassing Printing, which runs
// on its own branch. PaperStore has no predecessor.
func Predecessor(n StepNo) (StepNo, bool) {
	switch {
	case n == StepPaperStore:
		return 0, false
	case n == StepCorrugation:
		return StepPaperStore, true
	case n.Valid():
		return n - 1, true
	default:
		return 0, false
	}
}

// Steps returns all pipeline step numbers in production order.
func Steps() []StepNo {
	out := make([]StepNo, 0, int(LastStep))
	for n := FirstStep; n <= LastStep; n++ {
		out = append(out, n)
	}
	return out
}
