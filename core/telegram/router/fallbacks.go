package router

import "github.com/m3rciful/leadbot/core/telegram/ui"

// Fallbacks splits a provider into the options of TextRoutes and CallbackRoute.
func Fallbacks(p ui.FallbackProvider) (TextOptions, CallbackOptions) {
	if p == nil {
		return TextOptions{}, CallbackOptions{}
	}
	text := TextOptions{
		UnknownText:     p.UnknownText(),
		UnknownContact:  p.UnknownContact(),
		UnknownDocument: p.UnknownDocument(),
	}
	return text, CallbackOptions{NotFound: p.UnknownCallback()}
}
