package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/cloudkitchen/services/ordering/config"
	"example.com/cloudkitchen/services/ordering/internal/client"
	"example.com/cloudkitchen/services/ordering/internal/messaging"
	"example.com/cloudkitchen/services/ordering/internal/metrics"
	"example.com/cloudkitchen/services/ordering/internal/repositories"
	"example.com/cloudkitchen/services/ordering/internal/search"
	"example.com/cloudkitchen/services/ordering/internal/services"
	"example.com/cloudkitchen/services/ordering/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to process order status events from Azure Service Bus and reconcile order records`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	// Initialize database connection
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize the order status service
	kitchenClient := client.New(cfg.Kitchen)
	orderRepo := repositories.NewOrderRecordRepository(db)
	statusService := services.NewOrderStatusService(kitchenClient, orderRepo, elasticClient, metricsCollector)

	// Initialize Azure Service Bus client
	azureBus, err := messaging.NewAzureServiceBus(cfg.Azure, tracer)
	if err != nil {
		return err
	}
	defer azureBus.Close()

	// Start the service bus processor
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Azure Service Bus processor")
		return azureBus.ProcessMessages(ctx, statusService.ProcessMessage)
	})

	// Start the status reconciliation cron job as a fallback mechanism
	g.Go(func() error {
		log.Info().Msg("Starting order status reconciliation cron job as fallback mechanism")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// Less frequent than the event stream since it only catches
		// missed messages
		_, err = scheduler.NewJob(
			gocron.DurationJob(5*time.Minute),
			gocron.NewTask(func() {
				if err := statusService.Reconcile(ctx); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile order statuses in fallback job")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	// Wait for any goroutine to exit
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
