package orchestrator

// State is a node of the run state machine.
type State int

const (
	StateInit State = iota
	StateResearching
	StateAnalyzing
	StateFactChecking
	StateReporting
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateInit:         "init",
	StateResearching:  "researching",
	StateAnalyzing:    "analyzing",
	StateFactChecking: "fact_checking",
	StateReporting:    "reporting",
	StateDone:         "done",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// stageStates binds every working state to its switchable stage.
var stageStates = map[State]Stage{
	StateResearching:  StageResearch,
	StateAnalyzing:    StageAnalyze,
	StateFactChecking: StageFactCheck,
	StateReporting:    StageReport,
}

// next returns the successor in the fixed pipeline order. Terminal states map
// to themselves.
func next(s State) State {
	if s.Terminal() {
		return s
	}
	return s + 1
}
