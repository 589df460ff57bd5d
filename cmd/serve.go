package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (default is server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := setup(ctx)
	defer env.close()

	srv := api.New(api.Options{
		Catalog:        env.catalog,
		Intake:         env.intake(),
		Clients:        env.clients,
		Activity:       env.activity,
		Assistant:      env.assistant(ctx),
		AllowedOrigins: env.config.Server.AllowedOrigins,
		Logger:         env.logger,
	})

	if err := srv.ListenAndServe(ctx, env.config.Server.Addr); err != nil {
		env.logger.Error("serving", zap.Error(err))
		return
	}
	env.logger.Info("stopped")
}
