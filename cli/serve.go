package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maastricht-university/scribe/clients"
	"github.com/maastricht-university/scribe/orchestrator"
	"github.com/maastricht-university/scribe/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser upload form",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			conf.Server.Addr = serveAddr
		}
		if !log.IsLevelEnabled(log.DebugLevel) {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.WithFields(log.Fields{
			"engine":    conf.Engine.URL,
			"model":     conf.Pipeline.ModelSize,
			"env_token": conf.HasToken(),
		}).Info("starting scribe web")

		engine := clients.NewHTTP(conf.Engine.URL, 10*time.Second)
		return web.New(conf, orchestrator.NewPipeline(conf), engine).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :7860)")
}
