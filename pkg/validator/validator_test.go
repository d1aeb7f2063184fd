package validator

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tradeInput struct {
	GiverID         uint      `validate:"required"`
	ReceiverID      uint      `validate:"required,nefield=GiverID"`
	Amount          float64   `validate:"gt=0"`
	TransactionDate time.Time `validate:"required,notfuture"`
}

func TestNotFuture(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterOn(v))

	valid := tradeInput{GiverID: 1, ReceiverID: 2, Amount: 10, TransactionDate: time.Now().Add(-time.Hour)}
	assert.NoError(t, v.Struct(valid))

	future := valid
	future.TransactionDate = time.Now().Add(48 * time.Hour)
	err := v.Struct(future)
	require.Error(t, err)
	assert.Equal(t, "Transaction date must not be in the future", FormatValidationError(err))
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterOn(v))

	err := v.Struct(tradeInput{GiverID: 1, ReceiverID: 1, Amount: 0, TransactionDate: time.Now().Add(-time.Minute)})
	require.Error(t, err)

	assert.Equal(t,
		"Receiver pharmacy must differ from Giver pharmacy; Amount must be greater than 0",
		FormatValidationError(err))
}
