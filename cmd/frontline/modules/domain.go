package modules

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/memohai/frontline/internal/alerts"
	"github.com/memohai/frontline/internal/analytics"
	"github.com/memohai/frontline/internal/config"
	"github.com/memohai/frontline/internal/consent"
	"github.com/memohai/frontline/internal/conversations"
	"github.com/memohai/frontline/internal/customers"
	"github.com/memohai/frontline/internal/identity"
	"github.com/memohai/frontline/internal/routing"
	"github.com/memohai/frontline/internal/webhook"
)

var DomainModule = fx.Module(
	"domain",
	fx.Provide(
		provideResolver,
		provideIdentityService,
		provideConsentFilter,
		provideDispatcher,
	),
)

// ---------------------------------------------------------------------------
// domain providers (interface adaptation / config extraction)
// ---------------------------------------------------------------------------

func provideResolver(log *slog.Logger, directory customers.Directory, gateway conversations.Gateway, rnd routing.Rand) *routing.Resolver {
	return routing.NewResolver(log, directory, gateway, rnd)
}

func provideIdentityService(log *slog.Logger, directory customers.Directory, gateway conversations.Gateway) *identity.Service {
	return identity.NewService(log, directory, gateway)
}

func provideConsentFilter(log *slog.Logger, cfg config.Config, directory customers.Directory, gateway conversations.Gateway, mailer alerts.Mailer, tracker analytics.Tracker) *consent.Filter {
	if cfg.Consent.AlertRecipient == "" {
		log.Warn("consent.alert_recipient is empty; compliance alerts will fail to send")
	}
	return consent.NewFilter(log, consent.RulesFromConfig(cfg), directory, gateway, mailer, tracker)
}

func provideDispatcher(log *slog.Logger, cfg config.Config, directory customers.Directory, resolver *routing.Resolver, identityService *identity.Service, filter *consent.Filter) *webhook.Dispatcher {
	return webhook.NewDispatcher(log, directory, resolver, identityService, filter, cfg.Directory.PageSize)
}
