package health

import (
	"fmt"
	"strings"
)

// Metric identifies one of the three health figures.
type Metric string

const (
	MetricAge           Metric = "age"
	MetricBloodPressure Metric = "bloodPressure"
	MetricBloodSugar    Metric = "bloodSugar"
)

// Metrics lists the figures in form order.
var Metrics = []Metric{MetricAge, MetricBloodPressure, MetricBloodSugar}

// ParseMetric accepts the canonical names and the short aliases bp and bs.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "age":
		return MetricAge, nil
	case "bloodpressure", "blood_pressure", "bp", "systolicbp":
		return MetricBloodPressure, nil
	case "bloodsugar", "blood_sugar", "bs":
		return MetricBloodSugar, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

func (m Metric) IsValid() bool {
	switch m {
	case MetricAge, MetricBloodPressure, MetricBloodSugar:
		return true
	}
	return false
}

// Label is the human-facing field name.
func (m Metric) Label() string {
	switch m {
	case MetricAge:
		return "Age"
	case MetricBloodPressure:
		return "Systolic Blood Pressure"
	case MetricBloodSugar:
		return "Blood Sugar"
	}
	return string(m)
}

// Unit is the display unit for the figure.
func (m Metric) Unit() string {
	switch m {
	case MetricAge:
		return "years"
	case MetricBloodPressure:
		return "mmHg"
	case MetricBloodSugar:
		return "mg/dL"
	}
	return ""
}

// Range is an advisory input range. It is never enforced.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Hint returns the advisory range shown next to the input.
func (m Metric) Hint() Range {
	switch m {
	case MetricAge:
		return Range{Min: 18, Max: 100}
	case MetricBloodPressure:
		return Range{Min: 80, Max: 200}
	case MetricBloodSugar:
		return Range{Min: 70, Max: 400}
	}
	return Range{}
}
