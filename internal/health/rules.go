package health

// Eligibility thresholds. A figure strictly above its threshold qualifies.
const (
	AgeThreshold           = 60
	BloodPressureThreshold = 140
	BloodSugarThreshold    = 180
)

// Evaluate applies the eligibility rule to plaintext figures.
// This is pure domain logic - no I/O, no side effects.
func Evaluate(in Input) Conditions {
	return Conditions{
		AgeCheck: in.Age > AgeThreshold,
		BPCheck:  in.SystolicBP > BloodPressureThreshold,
		BSCheck:  in.BloodSugar > BloodSugarThreshold,
	}
}

// Eligible is the OR of the three checks.
func (c Conditions) Eligible() bool {
	return c.AgeCheck || c.BPCheck || c.BSCheck
}
