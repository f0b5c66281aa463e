package keyboard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnOnePerRow(t *testing.T) {
	markup := Column(
		Button{Text: "5-8 лет", Unique: "age", Payload: "5-8"},
		Button{Text: "9-11 лет", Unique: "age", Payload: "9-11"},
	)

	require.Len(t, markup.InlineKeyboard, 2)
	for _, row := range markup.InlineKeyboard {
		assert.Len(t, row, 1)
	}
	assert.Equal(t, "5-8 лет", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "age", markup.InlineKeyboard[0][0].Unique)
	assert.Equal(t, "5-8", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "9-11", markup.InlineKeyboard[1][0].Data)
}

func TestButtonValidate(t *testing.T) {
	require.NoError(t, Validate(
		Button{Text: "5-8 лет", Unique: "age", Payload: "5-8"},
		Button{Text: "ok", Unique: "age", Payload: strings.Repeat("x", MaxCallbackData-5)},
	))

	cases := map[string]Button{
		"no text":       {Unique: "age", Payload: "5-8"},
		"no unique":     {Text: "5-8 лет", Payload: "5-8"},
		"separator":     {Text: "5-8 лет", Unique: "a|ge"},
		"payload bytes": {Text: "big", Unique: "age", Payload: strings.Repeat("я", 31)},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, b.Validate(), ErrCallbackData)
		})
	}
}

func TestContactRequest(t *testing.T) {
	markup := ContactRequest("Отправить номер телефона")

	assert.True(t, markup.ResizeKeyboard)
	require.Len(t, markup.ReplyKeyboard, 1)
	require.Len(t, markup.ReplyKeyboard[0], 1)
	btn := markup.ReplyKeyboard[0][0]
	assert.Equal(t, "Отправить номер телефона", btn.Text)
	assert.True(t, btn.Contact)
}

func TestRemove(t *testing.T) {
	assert.True(t, Remove().RemoveKeyboard)
}
