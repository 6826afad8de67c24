package payout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"partner-bot/internal/apperr"
)

var (
	ErrAmountMissing = fmt.Errorf("%w: amount not found", apperr.ErrValidation)

	amountPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
)

type Input struct {
	Details string
	Amount  decimal.Decimal
}

// ParseInput reads the free-text payout form: requisites on the first line and
// the amount on the last one. A single-line message carries both.
func ParseInput(text string) (Input, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	details := strings.TrimSpace(lines[0])

	amountText := text
	if len(lines) > 1 {
		amountText = lines[len(lines)-1]
	}

	match := amountPattern.FindString(amountText)
	if match == "" {
		return Input{}, ErrAmountMissing
	}
	amount, err := decimal.NewFromString(strings.Replace(match, ",", ".", 1))
	if err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrAmountMissing, err)
	}
	return Input{Details: details, Amount: amount}, nil
}
