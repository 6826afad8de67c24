package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		details string
		amount  string
	}{
		{name: "two lines", text: "4276 1234 5678 9012\n1500", details: "4276 1234 5678 9012", amount: "1500"},
		{name: "comma decimal", text: "+79990001122\nсумма 1200,50 руб", details: "+79990001122", amount: "1200.5"},
		{name: "single line", text: "1000", details: "1000", amount: "1000"},
		{name: "extra lines", text: "wallet 41001\ncomment\n2000.75", details: "wallet 41001", amount: "2000.75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseInput(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.details, in.Details)
			assert.Equal(t, tt.amount, in.Amount.String())
		})
	}
}

func TestParseInputWithoutAmount(t *testing.T) {
	_, err := ParseInput("card number\nsoon")

	assert.ErrorIs(t, err, ErrAmountMissing)
}
