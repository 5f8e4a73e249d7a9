package httpapi

import "github.com/kyungseok/orderflow-saga/internal/common/money"

func moneyFromRequest(amount int64, currency string) (money.Money, error) {
	return money.New(amount, currency)
}
