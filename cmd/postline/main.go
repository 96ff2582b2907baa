package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/postline/postline/internal/app"
)

func main() {
	root := &cobra.Command{
		Use:   "postline",
		Short: "GraphQL posts service with live subscriptions",
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Load()
			if err != nil {
				return err
			}

			rt, err := app.NewRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			return rt.Run(cmd.Context())
		},
	})

	if err := root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
