// Command smppclient runs a single bound SMPP session against the
// config file named by --client (spec.md §6 "Command-line surface").
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaysms/smppclient/internal/config"
	"github.com/relaysms/smppclient/internal/logger"
	"github.com/relaysms/smppclient/internal/metrics"
	"github.com/relaysms/smppclient/pkg/smpp"
)

const clientVersion = "0.1.0"

// Exit codes (spec.md §6): 0 normal shutdown, 2 configuration error, 1
// unhandled runtime error.
const (
	exitOK        = 0
	exitRuntime   = 1
	exitConfigErr = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("smppclient", flag.ContinueOnError)
	clientPath := fs.String("client", "", "path to a client configuration file")
	showVersion := fs.Bool("version", false, "print the client version and exit")
	if err := fs.Parse(args); err != nil {
		return exitConfigErr
	}

	if *showVersion {
		fmt.Println("smppclient", clientVersion)
		return exitOK
	}

	if *clientPath == "" {
		fmt.Fprintln(os.Stderr, "smppclient: --client <path-to-config> is required")
		fs.Usage()
		return exitConfigErr
	}

	loaded, err := config.Load(*clientPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smppclient: %v\n", err)
		return exitConfigErr
	}

	appLogger := logger.NewDefaultLogger(loaded.LogLevel)
	if len(loaded.Client.LogMetadata) > 0 {
		fields := make(map[string]interface{}, len(loaded.Client.LogMetadata))
		for k, v := range loaded.Client.LogMetadata {
			fields[k] = v
		}
		appLogger = appLogger.WithFields(fields)
	}

	collector := metrics.NewPrometheusCollector(loaded.MetricsPort)
	defer collector.Stop()

	brokerCapacity := loaded.BrokerCapacity
	if brokerCapacity <= 0 {
		brokerCapacity = smpp.DefaultBrokerCapacity
	}
	broker := smpp.NewSimpleBroker(brokerCapacity)

	client, err := smpp.NewClient(loaded.Client, smpp.ClientDependencies{
		Broker:  broker,
		Logger:  appLogger,
		Metrics: collector,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "smppclient: %v\n", err)
		return exitConfigErr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		appLogger.Info("received shutdown signal")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), loaded.Client.SocketTimeout)
		defer stopCancel()
		if err := client.Stop(stopCtx); err != nil {
			appLogger.Error("error during graceful stop", "error", err)
		}
		cancel()
	}()

	appLogger.Info("starting smpp client",
		"smsc_host", loaded.Client.SMSCHost,
		"smsc_port", loaded.Client.SMSCPort,
		"system_id", loaded.Client.SystemID,
		"client_id", loaded.Client.ClientID)

	if err := client.Run(ctx); err != nil {
		appLogger.Error("client exited with error", "error", err)
		return exitRuntime
	}

	appLogger.Info("client shut down normally")
	return exitOK
}
