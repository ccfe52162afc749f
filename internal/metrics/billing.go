package metrics

// PaymentRecorded records an invoice payment stored from a webhook.
func PaymentRecorded() {
	PaymentsRecorded.Inc()
}
