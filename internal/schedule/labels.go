package schedule

import (
	"fmt"
	"strings"

	"gobarber/client/internal/domain"
)

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

var weekdayNames = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

// weekdayInitials heads the calendar columns, Sunday first.
var weekdayInitials = [7]string{"D", "S", "T", "Q", "Q", "S", "S"}

// DateLabel formats d as "Dia 05 de outubro".
func DateLabel(d domain.Date) string {
	return fmt.Sprintf("Dia %02d de %s", d.Day, monthNames[d.Month-1])
}

func WeekdayLabel(d domain.Date) string {
	return weekdayNames[d.Weekday()]
}

// MonthLabel formats m as a calendar header, e.g. "Outubro 2024".
func MonthLabel(m domain.Month) string {
	name := monthNames[m.Month-1]
	return fmt.Sprintf("%s%s %d", strings.ToUpper(name[:1]), name[1:], m.Year)
}

func WeekdayInitials() [7]string { return weekdayInitials }
