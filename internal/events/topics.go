package events

// Topic constants for domain events emitted by the service.
const (
	TopicPaymentCaptured    = "payment.captured"
	TopicPaymentFailed      = "payment.failed"
	TopicEnrolmentDelivered = "enrolment.delivered"
)

// DefaultTopics returns the canonical list of topics emitted by the capture workflow.
func DefaultTopics() []string {
	return []string{
		TopicPaymentCaptured,
		TopicPaymentFailed,
		TopicEnrolmentDelivered,
	}
}
