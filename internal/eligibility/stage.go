package eligibility

import "fmt"

// Stage is one step of the eligibility workflow.
type Stage int

const (
	StageIdle Stage = iota
	StageEncrypting
	StageEncrypted
	StageSubmitting
	StageDecrypting
	StageDone
)

// Stages lists every stage in workflow order.
var Stages = []Stage{StageIdle, StageEncrypting, StageEncrypted, StageSubmitting, StageDecrypting, StageDone}

// FailureNotice is shown after a run aborts. Details stay in the logs.
const FailureNotice = "Eligibility check failed, please try again"

var stageNames = map[Stage]string{
	StageIdle:       "idle",
	StageEncrypting: "encrypting",
	StageEncrypted:  "encrypted",
	StageSubmitting: "submitting",
	StageDecrypting: "decrypting",
	StageDone:       "done",
}

var stageMessages = map[Stage]string{
	StageIdle:       "Enter health data to check eligibility",
	StageEncrypting: "Encrypting health data...",
	StageEncrypted:  "Data encrypted securely",
	StageSubmitting: "Sending to smart contract...",
	StageDecrypting: "Decrypting result...",
	StageDone:       "Complete!",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Message is the status line for the stage.
func (s Stage) Message() string {
	return stageMessages[s]
}

// Step is the 1-based position in the five-step indicator; Idle is 0.
func (s Stage) Step() int {
	if s == StageDone {
		return 5
	}
	return int(s)
}

// IsProcessing reports whether a run is in flight.
func (s Stage) IsProcessing() bool {
	return s >= StageEncrypting && s <= StageDecrypting
}

// CanSubmit reports whether a new run may start from this stage.
func (s Stage) CanSubmit() bool {
	return s == StageIdle || s == StageDone
}

// next returns the only legal successor of an in-flight stage.
func (s Stage) next() (Stage, bool) {
	if !s.IsProcessing() {
		return s, false
	}
	return s + 1, true
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage converts a stage name back to a Stage.
func ParseStage(name string) (Stage, error) {
	for st, n := range stageNames {
		if n == name {
			return st, nil
		}
	}
	return StageIdle, fmt.Errorf("unknown stage %q", name)
}
