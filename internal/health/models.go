package health

import (
	"fmt"
	"strconv"
	"strings"

	dErrors "shieldcare/pkg/domain-errors"
)

// Form holds raw field edits as typed by the user.
type Form struct {
	Age        string `json:"age"`
	SystolicBP string `json:"bloodPressure"`
	BloodSugar string `json:"bloodSugar"`
}

// Get returns the raw value of a field.
func (f Form) Get(m Metric) string {
	switch m {
	case MetricAge:
		return f.Age
	case MetricBloodPressure:
		return f.SystolicBP
	case MetricBloodSugar:
		return f.BloodSugar
	}
	return ""
}

// Set returns a copy of f with one field replaced.
func (f Form) Set(m Metric, raw string) (Form, error) {
	switch m {
	case MetricAge:
		f.Age = raw
	case MetricBloodPressure:
		f.SystolicBP = raw
	case MetricBloodSugar:
		f.BloodSugar = raw
	default:
		return f, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown field %q", m))
	}
	return f, nil
}

// IsComplete reports whether every field has a value.
func (f Form) IsComplete() bool {
	for _, m := range Metrics {
		if strings.TrimSpace(f.Get(m)) == "" {
			return false
		}
	}
	return true
}

// Parse validates presence and integer syntax of all three fields. Ranges are
// not enforced.
func (f Form) Parse() (Input, error) {
	var (
		in       Input
		missing  []string
		invalid  []string
		parsedTo = map[Metric]*int{
			MetricAge:           &in.Age,
			MetricBloodPressure: &in.SystolicBP,
			MetricBloodSugar:    &in.BloodSugar,
		}
	)
	for _, m := range Metrics {
		raw := strings.TrimSpace(f.Get(m))
		if raw == "" {
			missing = append(missing, string(m))
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			invalid = append(invalid, string(m))
			continue
		}
		*parsedTo[m] = v
	}
	if len(missing) > 0 {
		return Input{}, dErrors.New(dErrors.CodeValidation,
			"please enter complete health information: missing "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Input{}, dErrors.New(dErrors.CodeValidation,
			"health figures must be whole numbers: "+strings.Join(invalid, ", "))
	}
	return in, nil
}

// Input is a validated set of plaintext figures.
type Input struct {
	Age        int `json:"age"`
	SystolicBP int `json:"bloodPressure"`
	BloodSugar int `json:"bloodSugar"`
}

// Value returns the figure for a metric.
func (in Input) Value(m Metric) int {
	switch m {
	case MetricAge:
		return in.Age
	case MetricBloodPressure:
		return in.SystolicBP
	case MetricBloodSugar:
		return in.BloodSugar
	}
	return 0
}

// Ciphertext is an opaque token standing in for an encrypted value.
type Ciphertext string

// EncryptedInput holds one ciphertext per figure.
type EncryptedInput struct {
	Age        Ciphertext `json:"age,omitempty"`
	SystolicBP Ciphertext `json:"bloodPressure,omitempty"`
	BloodSugar Ciphertext `json:"bloodSugar,omitempty"`
}

// Get returns the ciphertext for a metric.
func (e EncryptedInput) Get(m Metric) Ciphertext {
	switch m {
	case MetricAge:
		return e.Age
	case MetricBloodPressure:
		return e.SystolicBP
	case MetricBloodSugar:
		return e.BloodSugar
	}
	return ""
}

// IsComplete reports whether all three ciphertexts are present.
func (e EncryptedInput) IsComplete() bool {
	return e.Age != "" && e.SystolicBP != "" && e.BloodSugar != ""
}

// Conditions is the per-criterion breakdown of a decision.
type Conditions struct {
	AgeCheck bool `json:"ageCheck"`
	BPCheck  bool `json:"bpCheck"`
	BSCheck  bool `json:"bsCheck"`
}

// Receipt is what the contract returns for an eligibility call. Treat as
// immutable once produced.
type Receipt struct {
	TransactionHash  string     `json:"transactionHash"`
	ResultCiphertext Ciphertext `json:"resultCiphertext"`
	ContractAddress  string     `json:"contractAddress"`
	BlockNumber      uint64     `json:"blockNumber"`
	IsEligible       bool       `json:"isEligible"`
	Conditions       Conditions `json:"conditions"`
}

// Result is the decrypted decision shown to the user.
type Result struct {
	Eligible   bool       `json:"eligible"`
	Conditions Conditions `json:"conditions"`
}
