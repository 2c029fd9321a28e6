package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"text/tabwriter"
	"time"

	"gobarber/client/internal/api"
	"gobarber/client/internal/domain"
	"gobarber/client/internal/schedule"
)

type dashboardFlags struct {
	date      string
	month     string
	nextMonth int
	prevMonth int
}

func (f *dashboardFlags) calendar(a *app) (*schedule.Calendar, bool) {
	cal := schedule.NewCalendar(a.now(), a.cfg.Location)
	if f.date != "" {
		d, err := domain.ParseDate(f.date)
		if err != nil {
			fmt.Fprintln(a.stderr, err)
			return nil, false
		}
		if !cal.Select(d) {
			fmt.Fprintf(a.stderr, "%s não pode ser selecionado: só dias úteis a partir de %s\n", d, cal.Earliest())
			return nil, false
		}
		cal.ShowMonth(d.CalendarMonth())
	}
	if f.month != "" {
		m, err := domain.ParseMonth(f.month)
		if err != nil {
			fmt.Fprintln(a.stderr, err)
			return nil, false
		}
		if !cal.ShowMonth(m) {
			fmt.Fprintf(a.stderr, "%s é anterior a %s\n", m, cal.Earliest())
			return nil, false
		}
	}
	for i := 0; i < f.nextMonth; i++ {
		cal.NextMonth()
	}
	for i := 0; i < f.prevMonth; i++ {
		if !cal.PrevMonth() {
			fmt.Fprintf(a.stderr, "não é possível voltar antes de %s\n", cal.Earliest())
			return nil, false
		}
	}
	return cal, true
}

func runDashboard(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "dashboard")
	var f dashboardFlags
	fs.StringVar(&f.date, "date", "", "dia selecionado (YYYY-MM-DD)")
	fs.StringVar(&f.month, "month", "", "mês exibido no calendário (YYYY-MM)")
	fs.IntVar(&f.nextMonth, "next-month", 0, "avança o calendário N meses")
	fs.IntVar(&f.prevMonth, "prev-month", 0, "volta o calendário N meses")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}
	cal, ok := f.calendar(a)
	if !ok {
		return exitUsage
	}

	loader := schedule.NewLoader(a.client, schedule.LoaderOptions{Metrics: a.metrics, Logger: a.log})
	user, _ := a.session.User()

	monthErr, dayErr := a.load(ctx, loader, user.ID, cal.Selected(), cal.Month())
	if code, stop := a.loadFailure(monthErr, dayErr); stop {
		return code
	}

	renderDashboard(a.stdout, user, loader.Snapshot(cal.Selected(), cal.Month(), a.now(), a.cfg.Location), a.cfg.Location)
	if monthErr != nil || dayErr != nil {
		return exitError
	}
	return exitOK
}

func runWatch(ctx context.Context, a *app, args []string) int {
	fs := newFlagSet(a, "watch")
	var f dashboardFlags
	var iterations int
	interval := a.cfg.WatchInterval
	metricsAddr := a.cfg.MetricsAddr
	fs.StringVar(&f.date, "date", "", "dia selecionado (YYYY-MM-DD); padrão: hoje")
	fs.DurationVar(&interval, "interval", interval, "intervalo entre atualizações")
	fs.StringVar(&metricsAddr, "metrics-addr", metricsAddr, "endereço para expor /metrics")
	fs.IntVar(&iterations, "iterations", 0, "número de atualizações antes de sair (0 = sem limite)")
	if code, ok := parseFlags(a, fs, args); !ok {
		return code
	}
	if interval <= 0 {
		fmt.Fprintln(a.stderr, "--interval deve ser positivo")
		return exitUsage
	}
	if _, ok := f.calendar(a); !ok {
		return exitUsage
	}

	if metricsAddr != "" {
		srv := a.serveMetrics(metricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	loader := schedule.NewLoader(a.client, schedule.LoaderOptions{Metrics: a.metrics, Logger: a.log})
	user, _ := a.session.User()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		// without --date the selection follows today, so a watch left
		// running overnight moves on to the next day
		cal, ok := f.calendar(a)
		if !ok {
			return exitUsage
		}
		monthErr, dayErr := a.load(ctx, loader, user.ID, cal.Selected(), cal.Month())
		if ctx.Err() != nil {
			return exitOK
		}
		if code, stop := a.loadFailure(monthErr, dayErr); stop {
			return code
		}

		fmt.Fprintf(a.stdout, "== %s ==\n", a.now().In(a.cfg.Location).Format("15:04:05"))
		renderDashboard(a.stdout, user, loader.Snapshot(cal.Selected(), cal.Month(), a.now(), a.cfg.Location), a.cfg.Location)

		if iterations > 0 && n >= iterations {
			return exitOK
		}
		select {
		case <-ctx.Done():
			return exitOK
		case <-ticker.C:
		}
	}
}

// load fetches the month's availability and the day's appointments
// concurrently. Errors are returned per kind; the loader keeps earlier data
// when a fetch fails.
func (a *app) load(ctx context.Context, loader *schedule.Loader, providerID string, day domain.Date, month domain.Month) (monthErr, dayErr error) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		monthErr = loader.LoadMonth(ctx, providerID, month)
	}()
	go func() {
		defer wg.Done()
		dayErr = loader.LoadDay(ctx, day)
	}()
	wg.Wait()

	if errors.Is(monthErr, schedule.ErrSuperseded) {
		monthErr = nil
	}
	if errors.Is(dayErr, schedule.ErrSuperseded) {
		dayErr = nil
	}
	if monthErr != nil {
		a.log.Warn("month availability load failed", slog.String("month", month.String()), slog.Any("err", monthErr))
		fmt.Fprintln(a.stderr, "Não foi possível carregar a disponibilidade do mês")
	}
	if dayErr != nil {
		a.log.Warn("appointments load failed", slog.String("day", day.String()), slog.Any("err", dayErr))
		fmt.Fprintln(a.stderr, "Não foi possível carregar os agendamentos do dia")
	}
	return monthErr, dayErr
}

// loadFailure stops the command when the token was rejected; anything else
// is rendered with whatever data is held.
func (a *app) loadFailure(monthErr, dayErr error) (int, bool) {
	for _, err := range []error{monthErr, dayErr} {
		if api.IsUnauthorized(err) {
			writeNotification(a.stderr, noteSessionExpired)
			return exitError, true
		}
	}
	return 0, false
}

func (a *app) serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metricsHandler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("metrics listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", slog.Any("err", err))
		}
	}()
	return srv
}

func renderDashboard(w io.Writer, user domain.User, v schedule.View, loc *time.Location) {
	fmt.Fprintf(w, "Bem-vindo, %s\n\n", user.Name)
	fmt.Fprintln(w, "Horários agendados")

	header := v.DateLabel + " | " + v.WeekdayLabel
	if v.IsToday {
		header = "Hoje | " + header
	}
	fmt.Fprintln(w, header)
	if v.StaleAppointments {
		fmt.Fprintln(w, "(agendamentos de outro dia, aguardando atualização)")
	}

	if v.Next != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Atendimento a seguir")
		fmt.Fprintf(w, "  %s  %s\n", v.Next.Date.In(loc).Format("15:04"), v.Next.Client.Name)
	}

	renderPeriod(w, "Manhã", v.Morning)
	renderPeriod(w, "Tarde", v.Afternoon)

	fmt.Fprintln(w)
	renderCalendar(w, v)
}

func renderPeriod(w io.Writer, title string, appts []domain.Appointment) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	if len(appts) == 0 {
		fmt.Fprintln(w, "  Nenhum agendamento neste período")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, ap := range appts {
		fmt.Fprintf(tw, "  %s\t%s\n", ap.HourFormatted, ap.Client.Name)
	}
	_ = tw.Flush()
}

// renderCalendar prints the month grid. The selected day is marked with *
// and days that cannot be booked with -.
func renderCalendar(w io.Writer, v schedule.View) {
	fmt.Fprintln(w, v.MonthLabel)
	if v.StaleAvailability {
		fmt.Fprintln(w, "(disponibilidade do mês ainda não carregada)")
	}

	for i, s := range schedule.WeekdayInitials() {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "%2s ", s)
	}
	fmt.Fprintln(w)

	col := 0
	cell := func(s string) {
		if col > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, s)
		col++
		if col == 7 {
			fmt.Fprintln(w)
			col = 0
		}
	}
	for i := 0; i < int(v.Month.Date(1).Weekday()); i++ {
		cell("   ")
	}
	for day := 1; day <= v.Month.Days(); day++ {
		d := v.Month.Date(day)
		mark := " "
		switch {
		case d == v.Selected:
			mark = "*"
		case v.Disabled.Contains(d):
			mark = "-"
		}
		cell(fmt.Sprintf("%2d%s", day, mark))
	}
	if col != 0 {
		fmt.Fprintln(w)
	}
}
