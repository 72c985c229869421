package domain

// DataQuality is computed programmatically (§4.3.1), never taken from the
// reasoning model's self-report.
type DataQuality int

const (
	DataQualityLow DataQuality = iota
	DataQualityMedium
	DataQualityHigh
)

func (q DataQuality) String() string {
	switch q {
	case DataQualityHigh:
		return "High"
	case DataQualityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// TimeSensitivity is the model's self-reported estimate of how quickly the
// situation underlying the market could change.
type TimeSensitivity int

const (
	TimeSensitivityHours TimeSensitivity = iota
	TimeSensitivityDays
	TimeSensitivityWeeks
)

func (t TimeSensitivity) String() string {
	switch t {
	case TimeSensitivityHours:
		return "Hours"
	case TimeSensitivityDays:
		return "Days"
	default:
		return "Weeks"
	}
}

// ParseTimeSensitivity maps a model response string to a TimeSensitivity,
// defaulting to Days on anything unrecognized.
func ParseTimeSensitivity(s string) TimeSensitivity {
	switch s {
	case "Hours", "hours":
		return TimeSensitivityHours
	case "Weeks", "weeks":
		return TimeSensitivityWeeks
	default:
		return TimeSensitivityDays
	}
}

// ValuationResult is the ValuationEngine's output for one candidate.
type ValuationResult struct {
	FairProbability Decimal
	Confidence      Decimal
	Reasoning       string
	KeyFactors      []string
	DataQuality     DataQuality
	TimeSensitivity TimeSensitivity
}
