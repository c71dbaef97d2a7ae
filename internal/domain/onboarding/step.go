package onboarding

// Step identifies one screen of the onboarding wizard.
// The wizard is user-navigable; steps carry no guarded transitions and
// may be revisited and edited out of order.
type Step string

const (
	StepEmailProvider      Step = "email-provider"
	StepBusinessType       Step = "business-type"
	StepBusinessCategories Step = "business-categories"
	StepLabelMapping       Step = "label-mapping"
	StepTeamSetup          Step = "team-setup"
	StepReview             Step = "review"
	StepComplete           Step = "complete"
)

// IsWritable reports whether the step accepts a payload via SetStep.
// Review and complete are computed states, not writable slices.
func (s Step) IsWritable() bool {
	switch s {
	case StepEmailProvider, StepBusinessType, StepBusinessCategories, StepLabelMapping, StepTeamSetup:
		return true
	}
	return false
}

// ParseStep validates a step name from the URL path
func ParseStep(name string) (Step, bool) {
	s := Step(name)
	switch s {
	case StepEmailProvider, StepBusinessType, StepBusinessCategories, StepLabelMapping, StepTeamSetup:
		return s, true
	}
	return "", false
}
