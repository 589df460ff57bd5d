package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Inspect saved clients",
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved clients, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		listClients()
	},
}

var clientsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a client with dependents",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		showClient(args[0])
	},
}

func init() {
	clientsCmd.AddCommand(clientsListCmd, clientsShowCmd)
	rootCmd.AddCommand(clientsCmd)
}

func listClients() {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	list, err := env.clients.List(ctx, env.config.User)
	if err != nil {
		env.logger.Fatal("listing clients", zap.Error(err))
	}

	env.logger.Info("saved clients", zap.Int("count", len(list)))
	for _, c := range list {
		fmt.Printf("%s\t%s\t%s\t%d dependents\t%s\n", c.ID, c.FullName, c.State, len(c.Dependents), c.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func showClient(id string) {
	ctx := context.Background()

	env := setup(ctx)
	defer env.close()

	c, err := env.clients.Get(ctx, id)
	if err != nil {
		env.logger.Fatal("getting client", zap.String("client_id", id), zap.Error(err))
	}

	if err := printJSON(c); err != nil {
		env.logger.Fatal("printing client", zap.Error(err))
	}
}
