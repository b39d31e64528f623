package outreach

import "fmt"

// Fixed message templates. Content authoring lives elsewhere; the engine
// only selects among these.

func criticalAlertMessage(name string) string {
	return fmt.Sprintf("%s, one of your recent readings needs attention. Please open the app and review your health alert now.", name)
}

func streakMessage(name string, count int) string {
	return fmt.Sprintf("%s, your %d-day logging streak is about to lapse! Log today's entry to keep it going.", name, count)
}

func warningMessage(name string) string {
	return fmt.Sprintf("%s, there's a new health notice waiting for you. Take a minute to check it when you can.", name)
}

func inactivityMessage(name string) string {
	return fmt.Sprintf("%s, we haven't seen you in a few days. A quick log keeps your health picture complete.", name)
}

// motivationMessages is the fixed candidate set for the proactive
// motivation rule. The pipeline picks one uniformly at random via an
// injectable source.
func motivationMessages(name string) []string {
	return []string{
		fmt.Sprintf("%s, you're doing great — a quick check-in today keeps the momentum going!", name),
		fmt.Sprintf("Keep it up, %s! Logging today brings you one step closer to your goals.", name),
		fmt.Sprintf("%s, small habits add up. How about a quick entry right now?", name),
	}
}
