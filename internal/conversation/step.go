package conversation

// Step is the position of a conversation in the payment flow. Steps are
// persisted as strings so the stored state stays readable.
type Step string

const (
	StepInitial              Step = "initial"
	StepProcessingOrder      Step = "processing_order"
	StepConfirmOrder         Step = "confirm_order"
	StepSplitBill            Step = "split_bill"
	StepSplitBillNumber      Step = "split_bill_number"
	StepWaitingForContacts   Step = "waiting_for_contacts"
	StepExtraTip             Step = "extra_tip"
	StepWaitingForPayment    Step = "waiting_for_payment"
	StepAwaitingUserDecision Step = "awaiting_user_decision"
	StepOverpaymentDecision  Step = "overpayment_decision"
	StepPaymentReminder      Step = "payment_reminder"
	StepFeedback             Step = "feedback"
	StepFeedbackDetail       Step = "feedback_detail"
	StepCompleted            Step = "completed"
	StepIncompleteOrder      Step = "incomplete_order"
	StepOrderNotFound        Step = "order_not_found"
	StepPaymentInvalid       Step = "payment_invalid"
	StepPaymentAssistance    Step = "payment_assistance"
)

// Terminal steps end the conversation: the state is removed and the order
// claim released.
func (s Step) Terminal() bool {
	return s == StepCompleted || s == StepIncompleteOrder
}

// Absorbing steps hold the conversation for human handoff; inbound events
// only get a "an attendant will help you" reply.
func (s Step) Absorbing() bool {
	switch s {
	case StepOrderNotFound, StepPaymentInvalid, StepPaymentAssistance:
		return true
	}
	return false
}
