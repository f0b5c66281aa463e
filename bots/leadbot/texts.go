package leadbot

import (
	"fmt"

	"github.com/m3rciful/leadbot/core/telegram/keyboard"
)

const (
	callbackAge = "age"
	tempAge     = "age"

	// NoHandle is sent to the CRM when the user has no Telegram username.
	NoHandle = "Не указан"
)

// AgeBracket is one inline button of the welcome keyboard.
type AgeBracket struct {
	Label string
	Value string
}

// AgeBrackets lists the selectable age groups in display order.
var AgeBrackets = []AgeBracket{
	{Label: "5-8 лет", Value: "5-8"},
	{Label: "9-11 лет", Value: "9-11"},
	{Label: "12-14 лет", Value: "12-14"},
}

const (
	welcomeText = "<b>В Казани на этой неделе пройдет бесплатный мастер-класс для детей 5-14 лет!</b>\n\n" +
		"Ваш ребенок:\n\n" +
		"⭐️ Постучит на барабанах, сыграет на гитаре и фортепиано свои первые композиции\n\n" +
		"⭐️ Попробует себя в вокале, споет любимую песню под руководством опытного педагога\n\n" +
		"✅ Текущий уровень не важен. Для детей возраста 5-14 лет\n\n" +
		"✅ Продолжительность – 1,5 часа. Ничего брать с собой не нужно\n\n" +
		"Чтобы записаться на бесплатный мастер-класс, укажите возраст вашего ребенка 👇"

	phonePromptText = "Спасибо! Остался последний шаг😊\n\n" +
		"Укажите ваш номер телефона.\n" +
		"Наш администратор отправит вам расписание мастер-классов на ближайшую неделю и согласует точное время 🤗"

	phoneButtonText = "Отправить номер телефона"

	phoneRepeatText = "Пожалуйста, нажмите кнопку «" + phoneButtonText + "» ниже 👇"

	thanksText = "Спасибо!\n\n" +
		"Скоро наш администратор свяжется с вами и согласует дату и время мастер-класса!"

	channelText = "\n\nПодпишитесь на наш канал в Telegram, чтобы быть в курсе акций и новых предложений: "

	submitErrorText = "Произошла ошибка при обработке вашей заявки. Пожалуйста, попробуйте позже."

	startHintText     = "Чтобы записаться на бесплатный мастер-класс, нажмите /start"
	contactHintText   = "Сначала выберите возраст ребенка: нажмите /start"
	staleCallbackText = "Кнопка устарела, нажмите /start"
	rateLimitedText   = "Слишком часто, попробуйте через секунду"
	adminOnlyText     = "Команда доступна только администратору"
	statusMissingText = "CRM: авторизация не выполнена, запустите leadbot authorize --code <код>"
	statusErrorText   = "CRM: не удалось прочитать учетные данные"
	statusTimeLayout  = "02.01.2006 15:04:05 MST"
	startDescription  = "Записаться на мастер-класс"
	statusDescription = "Состояние авторизации CRM"
)

func ageChosenText(age string) string {
	return "Вы выбрали: " + age
}

func thanks(channelURL string) string {
	if channelURL == "" {
		return thanksText
	}
	return thanksText + channelText + channelURL
}

func statusText(expiresAt string, expired bool) string {
	if expired {
		return fmt.Sprintf("CRM: токен истек %s, обновится при следующей заявке", expiresAt)
	}
	return fmt.Sprintf("CRM: авторизация активна, токен действует до %s", expiresAt)
}

func ageKeyboardButtons() []keyboard.Button {
	buttons := make([]keyboard.Button, 0, len(AgeBrackets))
	for _, b := range AgeBrackets {
		buttons = append(buttons, keyboard.Button{Text: b.Label, Unique: callbackAge, Payload: b.Value})
	}
	return buttons
}
