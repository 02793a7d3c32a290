// Command pgautoscaler runs the PG autoscaler control loop standalone,
// against either the in-memory mock cluster fixture or a real Kubernetes
// cluster used solely as a status-report sink (see internal/collaborators).
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	pgav1alpha1 "github.com/cephstor/pgautoscaler/api/v1alpha1"
	"github.com/cephstor/pgautoscaler/internal/apiserver"
	"github.com/cephstor/pgautoscaler/internal/autoscaler"
	"github.com/cephstor/pgautoscaler/internal/collaborators/k8sreport"
	"github.com/cephstor/pgautoscaler/internal/collaborators/mock"
	"github.com/cephstor/pgautoscaler/internal/config"
	intmetrics "github.com/cephstor/pgautoscaler/internal/metrics"
	"github.com/cephstor/pgautoscaler/internal/store"
	"github.com/cephstor/pgautoscaler/pkg/placement"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(pgav1alpha1.AddToScheme(scheme))
}

func main() {
	var configFile string
	var metricsAddr string
	var probeAddr string
	var clusterName string

	flag.StringVar(&configFile, "config", "/etc/pgautoscaler/config.yaml", "Path to config file")
	flag.StringVar(&metricsAddr, "metrics-bind-address", ":9090", "The address the metric endpoint binds to")
	flag.StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to")
	flag.StringVar(&clusterName, "cluster-name", "", "Cluster name used to key the PGPoolReport CRD, when report.backend is k8s")

	opts := zap.Options{Development: false}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		setupLog.Error(err, "failed to load config file, falling back to defaults/env", "path", configFile)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		setupLog.Error(err, "invalid configuration", "configFile", configFile)
		os.Exit(1)
	}

	setupLog.Info("starting pg-autoscaler",
		"profile", cfg.AutoscaleProfile,
		"sleepInterval", cfg.SleepInterval,
		"reportBackend", cfg.Report.Backend,
	)

	var appDB *store.DB
	if cfg.Database.Path != "" {
		var dbErr error
		appDB, dbErr = store.Open(store.Config{Path: cfg.Database.Path, RetentionDays: cfg.Database.RetentionDays})
		if dbErr != nil {
			setupLog.Info("database open failed, continuing with in-memory mode", "error", dbErr)
		} else {
			setupLog.Info("database opened", "path", cfg.Database.Path)
		}
	}

	var sqlDBRef *sql.DB
	var dbWriter *store.Writer
	if appDB != nil {
		sqlDBRef = appDB.RawDB()
		dbWriter = store.NewWriter(sqlDBRef, 4096)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if dbWriter != nil {
		dbWriter.Run(ctx)
	}

	audit := store.NewAuditStore(dbWriter)
	history := intmetrics.NewHistory(time.Duration(cfg.Database.RetentionDays)*24*time.Hour, audit)

	options := autoscaler.Options{
		Profile:           cfg.AutoscaleProfile,
		MonTargetPGPerOSD: cfg.MonTargetPGPerOSD,
		Threshold:         cfg.Threshold,
	}

	var snapshots placement.SnapshotProvider
	var commands placement.CommandTransport
	var progress placement.ProgressBus
	var health placement.HealthBus
	var reporter *k8sreport.Reporter

	switch cfg.Report.Backend {
	case "k8s":
		mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
			Scheme:                 scheme,
			Metrics:                metricsserver.Options{BindAddress: metricsAddr},
			HealthProbeBindAddress: probeAddr,
			LeaderElection:         true,
			LeaderElectionID:       "pgautoscaler-leader",
		})
		if err != nil {
			setupLog.Error(err, "unable to create manager")
			os.Exit(1)
		}
		if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
			setupLog.Error(err, "unable to set up health check")
			os.Exit(1)
		}
		if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
			setupLog.Error(err, "unable to set up ready check")
			os.Exit(1)
		}
		reporter = k8sreport.NewReporter(mgr.GetClient(), clusterName, cfg.AutoscaleProfile)
		progress = reporter
		health = reporter

		go func() {
			setupLog.Info("starting manager")
			if err := mgr.Start(ctx); err != nil {
				setupLog.Error(err, "manager exited with error")
			}
		}()
		// The k8s report backend still needs a real cluster snapshot and
		// command transport; those are Ceph-side concerns outside this
		// module's scope (spec §6 assumes a host process supplies them),
		// so default to the mock cluster for the snapshot/command side
		// even when publishing status to Kubernetes.
		cluster := mock.NewCluster(8, 1)
		snapshots = mock.SnapshotProvider{C: cluster}
		commands = mock.CommandTransport{C: cluster}
	default:
		cluster := mock.NewCluster(8, 1)
		snapshots = mock.SnapshotProvider{C: cluster}
		commands = mock.CommandTransport{C: cluster}
		progress = mock.ProgressBus{C: cluster}
		health = mock.HealthBus{C: cluster}
	}

	loop := autoscaler.NewLoop(snapshots, commands, progress, health, cfg.SleepInterval, options)
	loop.History = history
	loop.Audit = audit

	cache := autoscaler.NewResultCache()
	loop.OnTick = func(ctx context.Context, results []autoscaler.PoolResult) {
		cache.Set(results)
		if reporter != nil {
			entries := make([]pgav1alpha1.PGPoolStatusEntry, 0, len(results))
			for _, r := range results {
				entries = append(entries, pgav1alpha1.PGPoolStatusEntry{
					PoolID: r.PoolID, PoolName: r.PoolName, SizeBytes: r.LogicalUsed,
					TargetSizeBytes: r.TargetBytes, CapacityRatio: r.CapacityRatio,
					TargetRatio: r.TargetRatio, EffectiveTargetRatio: r.EffectiveTargetRatio,
					Bias: r.Bias, PGNum: r.PGNumTarget, PGNumFinal: r.PGNumFinal,
					Mode: string(r.Mode), WouldAdjust: r.WouldAdjust,
				})
			}
			if err := reporter.Flush(ctx, entries); err != nil {
				setupLog.Error(err, "failed to publish PGPoolReport status")
			}
		}
	}

	retention := cron.New()
	if _, err := retention.AddFunc("@daily", func() {
		if appDB != nil {
			if err := appDB.Cleanup(); err != nil {
				setupLog.Error(err, "audit retention cleanup failed")
			}
		}
		history.Cleanup()
	}); err != nil {
		setupLog.Error(err, "unable to schedule retention cleanup")
		os.Exit(1)
	}
	retention.Start()
	defer retention.Stop()

	var apiSrv *http.Server
	if cfg.APIServer.Enabled {
		apiSrv = apiserver.NewServer(cfg, cache, loop)
		go func() {
			addr := fmt.Sprintf("%s:%d", cfg.APIServer.Address, cfg.APIServer.Port)
			setupLog.Info("starting status API server", "address", addr)
			if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				setupLog.Error(err, "status API server error")
			}
		}()
	}

	setupLog.Info("starting control loop")
	if err := loop.Start(ctx); err != nil {
		setupLog.Error(err, "control loop exited with error")
		os.Exit(1)
	}

	if appDB != nil {
		if dbWriter != nil {
			dbWriter.Drain()
		}
		_ = appDB.Close()
	}
	if apiSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = apiSrv.Shutdown(shutdownCtx)
	}
	setupLog.Info("pg-autoscaler stopped")
}
