package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talk2data/talk2data/internal/server"
)

func newServeCmd(version string) *cobra.Command {
	var (
		host  string
		port  int
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Talk2Data API server",
		Long:  "Start the HTTP server that answers analytics questions over a JSON API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(debug, version)
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))

	return cmd
}

func runServe(debug bool, version string) error {
	logger := newLogger(debug)

	deps, err := buildPipeline(logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	cfg := deps.cfg
	srv := server.New(server.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		APIKey:            cfg.Server.APIKey,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Version:           version,
	}, deps.pipeline, deps.graph, deps.executor, logger)

	fmt.Printf("Talk2Data listening on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  API:      http://%s:%d/api/v1\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  OpenAPI:  http://%s:%d/openapi.json\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("  Health:   http://%s:%d/healthz\n", cfg.Server.Host, cfg.Server.Port)

	return srv.ListenAndServe()
}
