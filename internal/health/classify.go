package health

// Status labels, advisory only.
const (
	StatusSenior          = "Senior"
	StatusAdult           = "Adult"
	StatusHighBP          = "High BP"
	StatusPreHypertension = "Pre-hypertension"
	StatusHighBloodSugar  = "High Blood Sugar"
	StatusPreDiabetes     = "Pre-diabetes"
	StatusNormal          = "Normal"
)

// Status classifies a single figure for display. It has no bearing on
// eligibility; see Evaluate for that.
func Status(value int, metric Metric) string {
	switch metric {
	case MetricAge:
		if value > 60 {
			return StatusSenior
		}
		return StatusAdult
	case MetricBloodPressure:
		switch {
		case value > 140:
			return StatusHighBP
		case value > 120:
			return StatusPreHypertension
		}
		return StatusNormal
	case MetricBloodSugar:
		switch {
		case value > 180:
			return StatusHighBloodSugar
		case value > 140:
			return StatusPreDiabetes
		}
		return StatusNormal
	}
	return StatusNormal
}
