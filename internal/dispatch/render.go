package dispatch

import (
	"fmt"

	"torfbot/internal/alert"
)

// Recipient-facing HTML message. The wording is the historical alert
// text field teams already recognize; do not reword casually.
const alertTemplate = "🛑 АЛЕРТ: Обнаружена термоточка в торфянике \"%s\"!\n" +
	"📍 Координаты в регионе %s: <a href=\"%s\">%.5f, %.5f</a>\n" +
	"🚨 Необходимо выездное обследование!\n" +
	"🔗 <a href=\"%s\">Подробности в вики</a>"

func renderMessage(a alert.Alert) string {
	return fmt.Sprintf(alertTemplate, a.Title, a.Region, a.MapURL, a.Lat, a.Lon, a.WikiURL)
}
