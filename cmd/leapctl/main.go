// Package main is the entry point for leapctl, a command-line client
// for Lutron LEAP lighting bridges.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nugget/leapctl/internal/buildinfo"
	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/config"
	"github.com/nugget/leapctl/internal/history"
	"github.com/nugget/leapctl/internal/lutronleap"
	"github.com/nugget/leapctl/internal/mqtt"
	"github.com/nugget/leapctl/internal/session"
	"github.com/nugget/leapctl/internal/session/pairing"
	"github.com/nugget/leapctl/internal/web"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() == 0 {
		printUsage()
		return
	}

	switch flag.Arg(0) {
	case "connect":
		runConnect(logger, *configPath)
	case "topology":
		runTopology(logger, *configPath)
	case "send":
		if flag.NArg() < 3 {
			fmt.Fprintln(os.Stderr, "usage: leapctl send <device-id> <level>")
			os.Exit(1)
		}
		runSend(logger, *configPath, flag.Arg(1), flag.Arg(2))
	case "unpack-bundle":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "usage: leapctl unpack-bundle <bundle.p12> [cert.crt key.key ca.crt]")
			os.Exit(1)
		}
		runUnpackBundle(logger, flag.Arg(1), flag.Args()[2:])
	case "version":
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.Info() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("leapctl - Lutron LEAP bridge client")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  connect   Connect and hold the session open, logging state changes")
	fmt.Println("  topology  Connect, dump discovered topology, and exit")
	fmt.Println("  send      Connect and set one device's level")
	fmt.Println("  unpack-bundle  Decode a LAP pairing .p12 into cert/key/ca PEM files")
	fmt.Println("  version   Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func loadBridge(logger *slog.Logger, configPath string) (*lutronleap.SmartBridge, *config.Config, error) {
	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	connector, err := session.NewTLSConnector(cfg.Bridge.Host, cfg.Bridge.Port, cfg.Bridge.CertFile, cfg.Bridge.KeyFile, cfg.Bridge.CAFile)
	if err != nil {
		return nil, nil, fmt.Errorf("connector: %w", err)
	}

	sb := lutronleap.New(lutronleap.Options{
		Connector:      connector,
		Logger:         logger,
		ConnectTimeout: cfg.Session.ConnectTimeout(),
		RequestTimeout: cfg.Session.RequestTimeout(),
		PingInterval:   cfg.Session.PingInterval(),
		ReconnectDelay: cfg.Session.ReconnectDelay(),
	})
	return sb, cfg, nil
}

func runConnect(logger *slog.Logger, configPath string) {
	sb, cfg, err := loadBridge(logger, configPath)
	if err != nil {
		logger.Error("leapctl setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connectCancel()
	if err := sb.Connect(connectCtx); err != nil {
		logger.Error("leap connect failed", "error", err)
		os.Exit(1)
	}
	logger.Info("leap session established, holding connection open")

	if cfg.MQTT.Enabled() {
		instanceID, err := mqtt.LoadOrCreateInstanceID(".")
		if err != nil {
			logger.Error("mqtt instance id failed", "error", err)
		} else {
			pub := mqtt.New(cfg.MQTT, instanceID, sb, logger)
			go func() {
				if err := pub.Start(ctx); err != nil {
					logger.Error("mqtt publisher stopped", "error", err)
				}
			}()
			defer func() {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer stopCancel()
				pub.Stop(stopCtx)
			}()
		}
	}

	var histStore *history.Store
	if hs, err := history.Open("leapctl-history.db"); err != nil {
		logger.Warn("history store disabled", "error", err)
	} else {
		histStore = hs
		defer histStore.Close()
		rec := history.NewRecorder(histStore, logger)
		rec.Attach(sb)
		go rec.RunPruneLoop(ctx, 30*24*time.Hour, time.Hour)
	}

	if cfg.Web.Enabled() {
		var hist web.History
		if histStore != nil {
			hist = histStore
		}
		dash := web.New(sb, hist, logger)
		go dash.Run(ctx)
		srv := &http.Server{Addr: cfg.Web.Addr, Handler: dash.Routes()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("dashboard server stopped", "error", err)
			}
		}()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			srv.Shutdown(stopCtx)
		}()
	}

	for _, d := range sb.GetDevices() {
		d := d
		sb.AddSubscriber(d.ID, func(upd *bridgemodel.Device) {
			logger.Info("leap device update", "device_id", upd.ID, "name", upd.Name, "level", upd.CurrentLevel)
		})
	}

	<-ctx.Done()
	logger.Info("shutting down")
	sb.Close()
}

func runTopology(logger *slog.Logger, configPath string) {
	sb, _, err := loadBridge(logger, configPath)
	if err != nil {
		logger.Error("leapctl setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sb.Connect(ctx); err != nil {
		logger.Error("leap connect failed", "error", err)
		os.Exit(1)
	}
	defer sb.Close()

	for _, d := range sb.GetDevices() {
		fmt.Printf("device %-6s %-30s type=%-28s domain=%-8s level=%d\n", d.ID, d.Name, d.Type, d.Domain, d.CurrentLevel)
	}
	for _, s := range sb.GetScenes() {
		fmt.Printf("scene  %-6s %s\n", s.ID, s.Name)
	}
}

func runUnpackBundle(logger *slog.Logger, bundlePath string, outPaths []string) {
	certFile, keyFile, caFile := "caseta.crt", "caseta.key", "caseta-bridge.crt"
	if len(outPaths) == 3 {
		certFile, keyFile, caFile = outPaths[0], outPaths[1], outPaths[2]
	}

	b, err := pairing.LoadP12(bundlePath, "")
	if err != nil {
		logger.Error("unpack bundle failed", "error", err)
		os.Exit(1)
	}
	if err := b.WriteFiles(certFile, keyFile, caFile); err != nil {
		logger.Error("write bundle materials failed", "error", err)
		os.Exit(1)
	}
	logger.Info("bundle unpacked", "cert_file", certFile, "key_file", keyFile, "ca_file", caFile)
}

func runSend(logger *slog.Logger, configPath, deviceID, levelStr string) {
	var level int
	if _, err := fmt.Sscanf(levelStr, "%d", &level); err != nil {
		fmt.Fprintf(os.Stderr, "invalid level %q: %v\n", levelStr, err)
		os.Exit(1)
	}

	sb, _, err := loadBridge(logger, configPath)
	if err != nil {
		logger.Error("leapctl setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sb.Connect(ctx); err != nil {
		logger.Error("leap connect failed", "error", err)
		os.Exit(1)
	}
	defer sb.Close()

	if err := sb.SetValue(ctx, deviceID, level, nil); err != nil {
		logger.Error("leap set value failed", "device_id", deviceID, "level", level, "error", err)
		os.Exit(1)
	}
	logger.Info("leap set value sent", "device_id", deviceID, "level", level)
}
