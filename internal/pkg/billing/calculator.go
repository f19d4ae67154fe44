package billing

// LifecycleBill computes the next invoice amount after a subscription
// lifecycle event. The setup fee is added only for the first subscription.
func LifecycleBill(isFirstSubscription bool, activeProductsCount, perProductPrice, setupFee int) int {
	fee := 0
	if isFirstSubscription {
		fee = setupFee
	}
	return fee + activeProductsCount*perProductPrice
}

// PostPaymentBill computes the next invoice amount after a successful
// payment. Any setup fee was captured by the invoice just paid.
func PostPaymentBill(activeProductsCount, perProductPrice int) int {
	return activeProductsCount * perProductPrice
}
