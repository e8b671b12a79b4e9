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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newTestViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addFlags(flags)
	require.NoError(t, flags.Parse(args))

	v := viper.New()
	setDefaults(v)
	require.NoError(t, bindFlags(v, flags))

	return v
}

func TestReadSampleConfig(t *testing.T) {
	conf, err := readConfig(newTestViper(t), "../../configs/fabricd.yaml")
	require.NoError(t, err)

	want := &config{
		port:             6633,
		logLevel:         "info",
		topologyFile:     "/usr/local/etc/leafspine.yaml",
		learningTTL:      5 * time.Minute,
		learningCapacity: 4096,
		sweepInterval:    time.Minute,
		suppressWindow:   5 * time.Second,
		metricsAddress:   "127.0.0.1:9100",
	}
	require.Equal(t, want, conf)
}

func TestFlagsOverrideConfig(t *testing.T) {
	conf, err := readConfig(newTestViper(t, "--port", "6653", "--topology", "/tmp/fabric.yaml"), "../../configs/fabricd.yaml")
	require.NoError(t, err)
	require.Equal(t, 6653, conf.port)
	require.Equal(t, "/tmp/fabric.yaml", conf.topologyFile)
}

func TestDefaultsWithoutFile(t *testing.T) {
	conf, err := readConfig(newTestViper(t), "")
	require.NoError(t, err)
	require.Equal(t, 6633, conf.port)
	require.Zero(t, conf.learningTTL)
	require.Zero(t, conf.learningCapacity)
	require.Equal(t, 5*time.Second, conf.suppressWindow)
	require.Empty(t, conf.metricsAddress)
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fabricd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default:\n  port: 70000\n"), 0644))

	_, err := readConfig(newTestViper(t), path)
	require.Error(t, err)
}
