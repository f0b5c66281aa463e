package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/start":          "/start",
		"start":           "/start",
		" Start ":         "/start",
		"/start@leadbot":  "/start",
		"/status verbose": "/status",
		"/":               "",
		"   ":             "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestListedAndValid(t *testing.T) {
	h := func(tele.Context) error { return nil }

	assert.True(t, Command{Handler: h, Description: "start"}.Listed())
	assert.False(t, Command{Handler: h, Description: "status", AdminOnly: true}.Listed())
	assert.False(t, Command{Handler: h, Description: "debug", Hidden: true}.Listed())

	assert.True(t, Command{Handler: h, Description: "start"}.Valid())
	assert.False(t, Command{Handler: h, Description: " "}.Valid())
	assert.False(t, Command{Description: "start"}.Valid())
}
