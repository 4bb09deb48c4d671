package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shieldcare/pkg/domain-errors"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		want     Conditions
		eligible bool
	}{
		{"senior qualifies on age", Input{Age: 65, SystolicBP: 110, BloodSugar: 90}, Conditions{AgeCheck: true}, true},
		{"high blood pressure qualifies", Input{Age: 30, SystolicBP: 150, BloodSugar: 90}, Conditions{BPCheck: true}, true},
		{"high blood sugar qualifies", Input{Age: 30, SystolicBP: 110, BloodSugar: 200}, Conditions{BSCheck: true}, true},
		{"nothing qualifies", Input{Age: 30, SystolicBP: 110, BloodSugar: 90}, Conditions{}, false},
		{"thresholds are exclusive", Input{Age: 60, SystolicBP: 140, BloodSugar: 180}, Conditions{}, false},
		{"all qualify", Input{Age: 61, SystolicBP: 141, BloodSugar: 181}, Conditions{true, true, true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.eligible, got.Eligible())
		})
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		value  int
		metric Metric
		want   string
	}{
		{61, MetricAge, StatusSenior},
		{60, MetricAge, StatusAdult},
		{141, MetricBloodPressure, StatusHighBP},
		{140, MetricBloodPressure, StatusPreHypertension},
		{121, MetricBloodPressure, StatusPreHypertension},
		{120, MetricBloodPressure, StatusNormal},
		{181, MetricBloodSugar, StatusHighBloodSugar},
		{180, MetricBloodSugar, StatusPreDiabetes},
		{141, MetricBloodSugar, StatusPreDiabetes},
		{140, MetricBloodSugar, StatusNormal},
		{500, Metric("weight"), StatusNormal},
	}
	for _, tt := range tests {
		got := Status(tt.value, tt.metric)
		assert.Equal(t, tt.want, got, "Status(%d, %s)", tt.value, tt.metric)
		// repeated calls are stable
		assert.Equal(t, got, Status(tt.value, tt.metric))
	}
}

func TestStatusDoesNotAffectEligibility(t *testing.T) {
	// pre-hypertension and pre-diabetes are advisory only
	in := Input{Age: 40, SystolicBP: 130, BloodSugar: 160}
	assert.Equal(t, StatusPreHypertension, Status(in.SystolicBP, MetricBloodPressure))
	assert.Equal(t, StatusPreDiabetes, Status(in.BloodSugar, MetricBloodSugar))
	assert.False(t, Evaluate(in).Eligible())
}

func TestFormParse(t *testing.T) {
	t.Run("complete form parses", func(t *testing.T) {
		in, err := Form{Age: "65", SystolicBP: " 110 ", BloodSugar: "90"}.Parse()
		require.NoError(t, err)
		assert.Equal(t, Input{Age: 65, SystolicBP: 110, BloodSugar: 90}, in)
	})

	t.Run("missing field is a validation error", func(t *testing.T) {
		_, err := Form{Age: "", SystolicBP: "110", BloodSugar: "90"}.Parse()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "age")
	})

	t.Run("whitespace only counts as missing", func(t *testing.T) {
		_, err := Form{Age: "30", SystolicBP: "   ", BloodSugar: "90"}.Parse()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bloodPressure")
	})

	t.Run("non-integer is a validation error", func(t *testing.T) {
		_, err := Form{Age: "30", SystolicBP: "110", BloodSugar: "9.5"}.Parse()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "bloodSugar")
	})

	t.Run("out of hint range is accepted", func(t *testing.T) {
		in, err := Form{Age: "5", SystolicBP: "500", BloodSugar: "-1"}.Parse()
		require.NoError(t, err)
		assert.Equal(t, -1, in.BloodSugar)
	})
}

func TestFormSet(t *testing.T) {
	f, err := Form{}.Set(MetricBloodPressure, "120")
	require.NoError(t, err)
	assert.Equal(t, "120", f.Get(MetricBloodPressure))
	assert.False(t, f.IsComplete())

	_, err = f.Set(Metric("weight"), "80")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestParseMetric(t *testing.T) {
	for raw, want := range map[string]Metric{
		"age": MetricAge, "bp": MetricBloodPressure, "bloodPressure": MetricBloodPressure,
		"bs": MetricBloodSugar, "blood_sugar": MetricBloodSugar,
	} {
		got, err := ParseMetric(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	_, err := ParseMetric("weight")
	assert.Error(t, err)
}
