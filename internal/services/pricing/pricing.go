// Package pricing определяет цену подписки по истории пользователя.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/golden-pips/internal/models"
)

// Цены в USD, оплата в USDT.
var (
	FirstTimePrice = decimal.NewFromInt(25)
	RegularPrice   = decimal.NewFromInt(49)
)

// Quote возвращает цену для последней строки подписки пользователя.
// Без подписки пользователь считается новым.
func Quote(sub *models.Subscription) models.Quote {
	isFirstTime := true
	if sub != nil {
		isFirstTime = sub.IsFirstTimeUser
	}
	if isFirstTime {
		return models.Quote{Amount: FirstTimePrice, IsFirstTime: true}
	}
	return models.Quote{Amount: RegularPrice, IsFirstTime: false}
}
