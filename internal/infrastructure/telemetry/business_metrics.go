package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics helper is built without a meter
var ErrMeterNil = errors.New("telemetry: meter must not be nil")

// BusinessMetrics tracks the onboarding funnel: registrations, step
// progress, activation, and mailbox provisioning outcomes.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	registrationTotal  *Counter
	loginTotal         *Counter
	passwordResetTotal *Counter

	onboardingStepTotal      *Counter
	onboardingCompletedTotal *Counter

	mailboxProvisionTotal   *Counter
	mailboxProvisionLatency *Histogram
	workflowDeployTotal     *Counter
}

// NewBusinessMetrics creates the business metrics set on the given meter
func NewBusinessMetrics(meter metric.Meter, logger *zap.Logger) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{meter: meter, logger: logger}

	var err error
	bm.registrationTotal, err = NewCounter(meter,
		"floworx_registration_total",
		"Total number of user registrations",
		"{registrations}")
	if err != nil {
		return nil, err
	}

	bm.loginTotal, err = NewCounter(meter,
		"floworx_login_total",
		"Total number of login attempts by outcome",
		"{logins}")
	if err != nil {
		return nil, err
	}

	bm.passwordResetTotal, err = NewCounter(meter,
		"floworx_password_reset_total",
		"Total number of completed password resets",
		"{resets}")
	if err != nil {
		return nil, err
	}

	bm.onboardingStepTotal, err = NewCounter(meter,
		"floworx_onboarding_step_total",
		"Total number of onboarding step submissions by step",
		"{steps}")
	if err != nil {
		return nil, err
	}

	bm.onboardingCompletedTotal, err = NewCounter(meter,
		"floworx_onboarding_completed_total",
		"Total number of onboarding activations",
		"{activations}")
	if err != nil {
		return nil, err
	}

	bm.mailboxProvisionTotal, err = NewCounter(meter,
		"floworx_mailbox_provision_total",
		"Total number of mailbox provisioning runs by provider",
		"{runs}")
	if err != nil {
		return nil, err
	}

	bm.mailboxProvisionLatency, err = NewHistogram(meter, HistogramOpts{
		Name:        "floworx_mailbox_provision_duration_seconds",
		Description: "Mailbox provisioning latency distribution in seconds",
		Unit:        "s",
		Boundaries:  ProviderDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	bm.workflowDeployTotal, err = NewCounter(meter,
		"floworx_workflow_deploy_total",
		"Total number of workflow deployments",
		"{deployments}")
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordRegistration counts a successful registration
func (bm *BusinessMetrics) RecordRegistration(ctx context.Context) {
	bm.registrationTotal.Inc(ctx)
}

// RecordLogin counts a login attempt; success distinguishes the outcome
func (bm *BusinessMetrics) RecordLogin(ctx context.Context, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	bm.loginTotal.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordPasswordReset counts a completed password reset
func (bm *BusinessMetrics) RecordPasswordReset(ctx context.Context) {
	bm.passwordResetTotal.Inc(ctx)
}

// RecordOnboardingStep counts one step submission
func (bm *BusinessMetrics) RecordOnboardingStep(ctx context.Context, step string) {
	bm.onboardingStepTotal.Inc(ctx, AttrStep.String(step))
}

// RecordOnboardingCompleted counts an activation
func (bm *BusinessMetrics) RecordOnboardingCompleted(ctx context.Context) {
	bm.onboardingCompletedTotal.Inc(ctx)
}

// RecordMailboxProvision counts a provisioning run and its latency
func (bm *BusinessMetrics) RecordMailboxProvision(ctx context.Context, provider string, seconds float64) {
	bm.mailboxProvisionTotal.Inc(ctx, AttrProvider.String(provider))
	bm.mailboxProvisionLatency.Record(ctx, seconds, AttrProvider.String(provider))
}

// RecordWorkflowDeploy counts a workflow deployment
func (bm *BusinessMetrics) RecordWorkflowDeploy(ctx context.Context, provider string) {
	bm.workflowDeployTotal.Inc(ctx, AttrProvider.String(provider))
}
