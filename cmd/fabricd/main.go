/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yyang13/leafspine/fabric"
	"github.com/yyang13/leafspine/flow"
	"github.com/yyang13/leafspine/network"
	"github.com/yyang13/leafspine/topology"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/superkkt/go-logging"
	"golang.org/x/sync/errgroup"
)

const (
	programName    = "fabricd"
	programVersion = "0.1.0"
)

var (
	logger = logging.MustGetLogger("main")
)

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var (
		configFile  string
		showVersion bool
	)

	v := viper.New()
	setDefaults(v)

	cmd := &cobra.Command{
		Use:          programName,
		Short:        "OpenFlow 1.3 controller of a leaf-spine switching fabric",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("%v v%v\n", programName, programVersion)
				return nil
			}

			conf, err := readConfig(v, configFile)
			if err != nil {
				return err
			}
			leveled, err := initLog(conf)
			if err != nil {
				return errors.Wrap(err, "initializing the log")
			}
			if configFile != "" {
				watchConfig(v, leveled)
			}

			return run(cmd.Context(), conf)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", fmt.Sprintf("/usr/local/etc/%v.yaml", programName), "path of the configuration file")
	cmd.Flags().BoolVar(&showVersion, "version", false, "show program version and exit")
	addFlags(cmd.Flags())
	if err := bindFlags(v, cmd.Flags()); err != nil {
		panic(err)
	}

	return cmd
}

func initLog(conf *config) (logging.LeveledBackend, error) {
	var backend logging.Backend
	if conf.syslog {
		b, err := newSyslog(programName)
		if err != nil {
			return nil, err
		}
		backend = logging.NewBackendFormatter(b, logging.MustStringFormatter(`%{level}: %{shortpkg}.%{shortfunc}: %{message}`))
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
		backend = logging.NewBackendFormatter(backend, logging.MustStringFormatter(`%{time} [%{pid}] %{level}: %{shortpkg}.%{shortfunc}: %{message}`))
	}

	leveled := logging.AddModuleLevel(backend)
	// Set log level for all modules
	leveled.SetLevel(getLogLevel(conf.logLevel), "")
	logging.SetBackend(leveled)

	return leveled, nil
}

func run(ctx context.Context, conf *config) error {
	topo, err := topology.Load(conf.topologyFile)
	if err != nil {
		return errors.Wrap(err, "loading the topology")
	}
	logger.Infof("loaded %v switches and %v hosts from %v", len(topo.Switches), len(topo.Hosts), conf.topologyFile)

	installer := flow.NewInstaller(conf.suppressWindow)
	app := fabric.NewApp(topo, installer, fabric.Config{
		LearningTTL:      conf.learningTTL,
		LearningCapacity: conf.learningCapacity,
	})
	controller := network.NewController(app)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	go dumpOnHangup(ctx, controller, app)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", conf.port))
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("listening on %v port", conf.port))
	}

	g, errCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serve(errCtx, listener, controller)
	})
	g.Go(func() error {
		return app.Run(errCtx, conf.sweepInterval)
	})
	if conf.metricsAddress != "" {
		g.Go(func() error {
			return serveMetrics(errCtx, conf.metricsAddress)
		})
	}
	logger.Infof("%v (version %v) is listening on %v port", programName, programVersion, conf.port)

	err = g.Wait()
	logger.Infof("%v (version %v) shutdown complete!", programName, programVersion)

	return err
}

type keepAliver interface {
	SetKeepAlive(keepalive bool) error
	SetKeepAlivePeriod(d time.Duration) error
}

// serve accepts switch connections until ctx is canceled.
func serve(ctx context.Context, listener net.Listener, controller *network.Controller) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			// Check shutdown signal
			if ctx.Err() != nil {
				logger.Info("socket listener is finished by the shutdown signal")
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Errorf("failed to accept a new connection: %v", err)
				continue
			}
			return errors.Wrap(err, "accepting a new connection")
		}
		logger.Infof("new device is connected from %v", conn.RemoteAddr())

		if v, ok := conn.(keepAliver); ok {
			if err := v.SetKeepAlive(true); err == nil {
				// Makes a broken connection will be disconnected within 45 seconds.
				v.SetKeepAlivePeriod(5 * time.Second)
			} else {
				logger.Errorf("failed to enable socket keepalive: %v", err)
			}
		}
		controller.AddConnection(ctx, conn)
	}
}

func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	logger.Infof("serving metrics on %v", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "serving metrics")
	}

	return nil
}

func dumpOnHangup(ctx context.Context, controller *network.Controller, app *fabric.App) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)
	defer signal.Stop(c)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c:
			fmt.Println("* Controller status:")
			fmt.Println(controller.String())
			fmt.Printf("\n* Fabric status:\n")
			fmt.Println(app.String())
		}
	}
}
