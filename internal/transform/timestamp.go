package transform

import "fmt"

// The renderer only needs a parseable, ordered time key. Sixty steps are packed
// into one hour starting at 10:00 on a fixed day; the value is not a clock.
const (
	AnchorDate   = "2026-01-21"
	BaseHour     = 10
	StepsPerHour = 60
)

// StepTime returns the synthesized timestamp of a step. Hours keep growing
// past 23 rather than rolling into the next day.
func StepTime(step int) string {
	return fmt.Sprintf("%sT%02d:%02d:00", AnchorDate, BaseHour+step/StepsPerHour, step%StepsPerHour)
}
