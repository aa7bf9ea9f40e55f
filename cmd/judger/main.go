package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ptoj-judger/internal/config"
	"ptoj-judger/internal/health"
	"ptoj-judger/internal/language"
	"ptoj-judger/internal/metrics"
	"ptoj-judger/internal/worker"
	"ptoj-judger/pkg/logger"
)

var configFile = flag.String("f", "etc/judger.yaml", "the config file")

func main() {
	flag.Parse()

	c := config.Load(*configFile)

	logLevel := "info"
	if c.Debug {
		logLevel = "debug"
	}
	if err := logger.Init(logger.Config{
		Level:      logLevel,
		Format:     "console",
		OutputPath: c.LogFile,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	logger.Info(ctx, "judger starting",
		zap.String("redis", c.Redis.URL),
		zap.String("sandbox", c.Sandbox.Endpoint),
		zap.Int("workers", c.InitConcurrent))

	lang := registerLanguages(c)

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	healthSrv := health.New(c.HealthAddr)
	healthSrv.Start()

	sched := worker.New(worker.Config{
		RedisURL:        c.Redis.URL,
		SandboxEndpoint: c.Sandbox.Endpoint,
		InitConcurrent:  c.InitConcurrent,
	}, lang, reg, logger.Get())

	if err := sched.Start(ctx); err != nil {
		logger.Error(ctx, "scheduler failed to start", zap.Error(err))
		os.Exit(1)
	}
	healthSrv.SetReady(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info(ctx, "shutdown signal received")
	healthSrv.SetReady(false)
	sched.Stop(ctx)
	_ = healthSrv.Stop(ctx)
	logger.Info(ctx, "judger stopped")
}

// registerLanguages builds the static language table and registers any
// etc/judger.yaml entries on top. An entry whose tag is already
// registered is logged and skipped, so defaults are never replaced.
func registerLanguages(c config.Config) *language.Table {
	t := language.Defaults()
	for _, o := range c.Languages {
		compileCmd, err := language.ParseCommand(o.CompileCmd)
		if err != nil {
			logger.Error(context.Background(), "invalid language override compile command", zap.String("tag", o.Tag), zap.Error(err))
			continue
		}
		runCmd, err := language.ParseCommand(o.RunCmd)
		if err != nil {
			logger.Error(context.Background(), "invalid language override run command", zap.String("tag", o.Tag), zap.Error(err))
			continue
		}
		entry := language.Entry{
			SourceFilename:   o.SourceFilename,
			CompiledFilename: o.CompiledFilename,
			NeedsCompile:     o.NeedsCompile,
			CompileCmd:       compileCmd,
			RunCmd:           runCmd,
			TimeFactor:       o.TimeFactor,
			MemoryFactor:     o.MemoryFactor,
		}
		if err := t.Register(o.Tag, entry); err != nil {
			logger.Error(context.Background(), "language override registration failed", zap.String("tag", o.Tag), zap.Error(err))
		}
	}
	return t
}
