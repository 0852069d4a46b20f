package app

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// formatShillings renders an amount with English digit grouping, e.g. 450,000.
func formatShillings(amount int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", amount)
}
