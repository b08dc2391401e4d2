package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davicafu/csamarket/internal/config"
	"github.com/davicafu/csamarket/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel)
	log := logger.Logger()
	defer log.Sync()

	root := &cobra.Command{
		Use:          "csamarket",
		Short:        "Marketplace de granjas y cuotas CSA",
		SilenceUsage: true,
		// sin subcomando arranca el servidor
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}
	root.PersistentFlags().StringVar(&cfg.StorageDriver, "driver", cfg.StorageDriver, "storage driver: sqlite, postgres o mongodb")
	root.AddCommand(newServeCmd(cfg, log), newMigrateCmd(cfg, log))

	if err := root.Execute(); err != nil {
		log.Error("❌ Comando fallido", zap.Error(err))
		os.Exit(1)
	}
}

func newServeCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Arranca la API HTTP, el relayer del outbox y los consumidores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "puerto HTTP")
	return cmd
}

func newMigrateCmd(cfg *config.Config, log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Crea tablas e índices del driver seleccionado y termina",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStorage(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.close()
			if err := st.migrate(cmd.Context()); err != nil {
				return err
			}
			log.Info("✅ Migración completada", zap.String("driver", cfg.StorageDriver))
			return nil
		},
	}
}
