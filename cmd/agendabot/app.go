package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/agendabot/internal/calendar/google"
	"github.com/user/agendabot/internal/config"
	"github.com/user/agendabot/internal/datetime"
	"github.com/user/agendabot/internal/delivery"
	"github.com/user/agendabot/internal/dispatch"
	"github.com/user/agendabot/internal/notify"
	"github.com/user/agendabot/internal/state"
	"github.com/user/agendabot/internal/types"
	"github.com/user/agendabot/internal/whatsapp"
)

// app holds the components shared by serve, ask and notify.
type app struct {
	cfg        *config.Config
	loc        *time.Location
	calendar   types.Calendar
	calName    string
	delivery   *delivery.Registry
	resolver   *datetime.Resolver
	dispatcher *dispatch.Dispatcher
	notifier   *notify.Engine
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	cal, name, err := openCalendar(ctx, cfg, loc)
	if err != nil {
		return nil, err
	}

	reg := delivery.NewRegistry()
	if cfg.WhatsApp.Token != "" && cfg.WhatsApp.PhoneNumberID != "" {
		wa := whatsapp.NewClient(cfg.WhatsApp.APIBaseURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Token)
		reg.Register(whatsapp.Channel+":", wa.Send)
	} else {
		slog.Warn("whatsapp delivery disabled (no token or phone number id)")
	}

	var opts []datetime.Option
	if cfg.Parser.Fallback {
		opts = append(opts, datetime.WithFallback(datetime.NewDateParser(loc)))
	}
	resolver := datetime.NewResolver(loc, opts...)

	a := &app{
		cfg:      cfg,
		loc:      loc,
		calendar: cal,
		calName:  name,
		delivery: reg,
		resolver: resolver,
	}
	a.dispatcher = dispatch.New(cal, reg, resolver,
		dispatch.WithHorizonDays(cfg.Calendar.HorizonDays),
		dispatch.WithCalendarName(name),
	)
	a.notifier = notify.New(cal, reg, notify.FixedRecipient(recipientKey(cfg.Notify.Recipient)), loc,
		notify.WithLookAhead(time.Duration(cfg.Notify.LookAheadMinutes)*time.Minute),
	)
	return a, nil
}

func openCalendar(ctx context.Context, cfg *config.Config, loc *time.Location) (types.Calendar, string, error) {
	switch cfg.Calendar.Backend {
	case "google":
		cal, err := google.New(ctx, cfg.Calendar.CalendarID, loc,
			google.CredentialOptions(cfg.Calendar.CredentialsJSON, cfg.Calendar.CredentialsFile)...)
		if err != nil {
			return nil, "", err
		}
		return cal, google.Name, nil
	case "ics", "":
		return state.NewCalendarStore(cfg.Calendar.ICSPath, loc), "tu calendario", nil
	default:
		return nil, "", fmt.Errorf("unknown calendar backend %q", cfg.Calendar.Backend)
	}
}

// recipientKey treats a bare phone number as a WhatsApp recipient.
func recipientKey(recipient string) types.SenderKey {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || strings.Contains(recipient, ":") {
		return types.SenderKey(recipient)
	}
	return types.NewSenderKey(whatsapp.Channel, strings.TrimPrefix(recipient, "+"))
}
