package gateway

type Action string

const (
	ActionRetry               Action = "retry"
	ActionChangePaymentMethod Action = "change_payment_method"
	ActionContactBank         Action = "contact_bank"
	ActionContactSupport      Action = "contact_support"
)

// CodeUnavailable marks failures to reach the processor at all.
const CodeUnavailable = "gateway_unavailable"

var declineActions = map[string]Action{
	"insufficient_funds":              ActionChangePaymentMethod,
	"expired_card":                    ActionChangePaymentMethod,
	"incorrect_cvc":                   ActionChangePaymentMethod,
	"incorrect_number":                ActionChangePaymentMethod,
	"incorrect_zip":                   ActionChangePaymentMethod,
	"invalid_account":                 ActionChangePaymentMethod,
	"card_not_supported":              ActionChangePaymentMethod,
	"currency_not_supported":          ActionChangePaymentMethod,
	"lost_card":                       ActionChangePaymentMethod,
	"stolen_card":                     ActionChangePaymentMethod,
	"pickup_card":                     ActionChangePaymentMethod,
	"do_not_honor":                    ActionContactBank,
	"call_issuer":                     ActionContactBank,
	"card_velocity_exceeded":          ActionContactBank,
	"withdrawal_count_limit_exceeded": ActionContactBank,
	"transaction_not_allowed":         ActionContactBank,
	"restricted_card":                 ActionContactBank,
	"security_violation":              ActionContactBank,
	"generic_decline":                 ActionContactBank,
	"authentication_required":         ActionRetry,
	"processing_error":                ActionRetry,
	"try_again_later":                 ActionRetry,
	"reenter_transaction":             ActionRetry,
	"issuer_not_available":            ActionRetry,
	"approve_with_id":                 ActionRetry,
	"duplicate_transaction":           ActionContactSupport,
	"fraudulent":                      ActionContactSupport,
	"merchant_blacklist":              ActionContactSupport,
	"testmode_decline":                ActionChangePaymentMethod,
}

var codeActions = map[string]Action{
	CodeUnavailable:                         ActionRetry,
	"processing_error":                      ActionRetry,
	"rate_limit":                            ActionRetry,
	"lock_timeout":                          ActionRetry,
	"payment_intent_authentication_failure": ActionRetry,
	"authentication_required":               ActionRetry,
	"card_declined":                         ActionChangePaymentMethod,
	"expired_card":                          ActionChangePaymentMethod,
	"incorrect_cvc":                         ActionChangePaymentMethod,
	"incorrect_number":                      ActionChangePaymentMethod,
	"invalid_cvc":                           ActionChangePaymentMethod,
	"invalid_expiry_month":                  ActionChangePaymentMethod,
	"invalid_expiry_year":                   ActionChangePaymentMethod,
	"invalid_number":                        ActionChangePaymentMethod,
	"payment_method_unactivated":            ActionChangePaymentMethod,
	"payment_intent_payment_attempt_failed": ActionChangePaymentMethod,
}

// RecoveryAction maps a processor failure code and decline code to what the
// shopper can do about it. The decline code is more specific and wins.
func RecoveryAction(code, declineCode string) Action {
	if a, ok := declineActions[declineCode]; ok {
		return a
	}
	if a, ok := codeActions[code]; ok {
		return a
	}
	if code == "" && declineCode == "" {
		return ActionChangePaymentMethod
	}
	return ActionContactSupport
}
