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
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/superkkt/go-logging"
)

const (
	defaultLogLevel = logging.INFO
)

type config struct {
	port             int
	logLevel         string
	syslog           bool
	topologyFile     string
	learningTTL      time.Duration
	learningCapacity uint64
	sweepInterval    time.Duration
	suppressWindow   time.Duration
	metricsAddress   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default.port", 6633)
	v.SetDefault("default.log_level", "info")
	v.SetDefault("default.syslog", false)
	v.SetDefault("topology.file", "/usr/local/etc/leafspine.yaml")
	v.SetDefault("learning.ttl", time.Duration(0))
	v.SetDefault("learning.capacity", 0)
	v.SetDefault("learning.sweep_interval", time.Minute)
	v.SetDefault("flow.suppress_window", 5*time.Second)
	v.SetDefault("metrics.address", "")
}

// addFlags declares the command-line overrides of the configuration file.
func addFlags(flags *pflag.FlagSet) {
	flags.Int("port", 6633, "TCP port for the OpenFlow switches")
	flags.String("log-level", "info", "log level (debug, info, notice, warning, error, critical)")
	flags.String("topology", "", "path of the topology descriptor")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"default.port":      "port",
		"default.log_level": "log-level",
		"topology.file":     "topology",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return errors.Wrap(err, fmt.Sprintf("binding flag %v", name))
		}
	}

	return nil
}

// readConfig reads path into v. An empty path only uses the defaults and the
// command-line flags.
func readConfig(v *viper.Viper, path string) (*config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading the config file")
		}
	}

	return parseConfig(v)
}

func parseConfig(v *viper.Viper) (*config, error) {
	c := &config{
		port:             v.GetInt("default.port"),
		logLevel:         v.GetString("default.log_level"),
		syslog:           v.GetBool("default.syslog"),
		topologyFile:     v.GetString("topology.file"),
		learningTTL:      v.GetDuration("learning.ttl"),
		learningCapacity: v.GetUint64("learning.capacity"),
		sweepInterval:    v.GetDuration("learning.sweep_interval"),
		suppressWindow:   v.GetDuration("flow.suppress_window"),
		metricsAddress:   v.GetString("metrics.address"),
	}
	if err := c.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return c, nil
}

func (r *config) validate() error {
	if r.port <= 0 || r.port > 0xFFFF {
		return fmt.Errorf("invalid default.port: %v", r.port)
	}
	if r.topologyFile == "" {
		return errors.New("empty topology.file")
	}
	if r.learningTTL < 0 || r.sweepInterval < 0 || r.suppressWindow < 0 {
		return errors.New("negative duration")
	}

	return nil
}

// watchConfig applies log level changes of the config file at runtime. Other
// keys need a restart.
func watchConfig(v *viper.Viper, leveled logging.LeveledBackend) {
	v.OnConfigChange(func(e fsnotify.Event) {
		// Ignore all the fsnotify operations except WRITE to avoid reading empty config.
		if e.Op&fsnotify.Write == 0 {
			return
		}
		logger.Infof("config file changed: %v", e.Name)
		leveled.SetLevel(getLogLevel(v.GetString("default.log_level")), "")
	})
	v.WatchConfig()
}

func getLogLevel(level string) logging.Level {
	level = strings.ToUpper(level)
	ret, err := logging.LogLevel(level)
	if err != nil {
		logger.Errorf("invalid log level=%v, defaulting to %v..", level, defaultLogLevel)
		return defaultLogLevel
	}

	return ret
}
