package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	version = "dev"
	cli     struct {
		EnvFile string           `help:"Load environment variables from this file when present." default:".env" type:"path"`
		Version kong.VersionFlag `help:"Print the version and exit."`

		Serve     ServeCmd     `cmd:"" default:"1" help:"Run the HTTP API."`
		Reconcile ReconcileCmd `cmd:"" help:"Repair state left by interrupted operations and exit."`
		Events    EventsCmd    `cmd:"" help:"Print organization lifecycle events as they are published."`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("tenantry"),
		kong.Description("Multi-tenant organization management service."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)))

	if err := godotenv.Load(cli.EnvFile); err == nil {
		log.Debug().Str("file", cli.EnvFile).Msg("loaded environment file")
	}

	cmd.FatalIfErrorf(cmd.Run(&Globals{Version: version}))
}

// Globals are shared by every command.
type Globals struct {
	Version string
}
