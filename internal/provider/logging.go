package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/pmarasse/cas-persondir-ldap/internal/logging"
)

// initializeLogging creates the provider, ldap and persondir subsystems on ctx.
// Call it at the beginning of Configure and of each data source Read, since
// the loggers held by the LDAP client and the engine write to these subsystems.
//
// Levels follow TF_LOG_PROVIDER_PERSONDIR_<SUBSYSTEM>.
func initializeLogging(ctx context.Context) context.Context {
	ctx = tflog.NewSubsystem(ctx, logging.SubsystemProvider,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_PERSONDIR_PROVIDER"))
	ctx = tflog.NewSubsystem(ctx, logging.SubsystemLDAP,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_PERSONDIR_LDAP"),
		tflog.WithAdditionalLocationOffset(1))
	ctx = tflog.NewSubsystem(ctx, logging.SubsystemPersondir,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_PERSONDIR_ENGINE"),
		tflog.WithAdditionalLocationOffset(1))
	return ctx
}
