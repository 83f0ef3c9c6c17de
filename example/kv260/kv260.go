// SPDX-License-Identifier: MIT
//
// Copyright © 2026 Kent Gibson <warthog618@gmail.com>.

//go:build linux
// +build linux

package main

import (
	"fmt"

	"github.com/warthog618/axiqspi"
	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
)

// This example exercises an AXI Quad SPI controller instantiated in a KV260
// bitstream, with the controller registers exported via UIO.
// The device and clock mode are defined in loadConfig, but can be altered via
// configuration (env, flag or config file).
// Each transfer is printed, so with MOSI looped back to MISO each line should
// echo the bytes sent.
func main() {
	cfg := loadConfig()
	regs, err := axiqspi.Open(
		cfg.MustGet("device").String(),
		int64(cfg.MustGet("base").Int()),
		axiqspi.MemLength)
	if err != nil {
		panic(err)
	}
	defer regs.Close()
	c := axiqspi.New(regs,
		axiqspi.WithTimeout(cfg.MustGet("timeout").Duration()),
		axiqspi.WithFIFODepth(cfg.MustGet("fifo-depth").Int()))
	err = c.Init(axiqspi.Config{
		Phase:    cfg.MustGet("phase").Int(),
		Polarity: cfg.MustGet("polarity").Int(),
		Slave:    cfg.MustGet("slave").Int(),
	})
	if err != nil {
		panic(err)
	}
	for i := 0; i < 10; i++ {
		transfer(c, []byte{byte(128 + i), byte(i*i + 2)})
	}
	for i := 0; i < 40; i++ {
		transfer(c, []byte{byte(i)})
	}
	transfer(c, []byte{128 + 5, 9})
	transfer(c, []byte{128 + 35, 9, 128 + 37, 7, 128 + 39, 9})
}

func transfer(c *axiqspi.Controller, tx []byte) {
	rx, err := c.Transfer(tx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("tx=% x rx=% x\n", tx, rx)
}

func loadConfig() *config.Config {
	defaultConfig := map[string]interface{}{
		"device":     "/dev/uio0",
		"base":       0,
		"phase":      0,
		"polarity":   0,
		"slave":      0,
		"timeout":    "100ms",
		"fifo-depth": 16,
	}
	def := dict.New(dict.WithMap(defaultConfig))
	cfg := config.New(
		pflag.New(pflag.WithFlags(
			[]pflag.Flag{{Short: 'c', Name: "config-file"}})),
		env.New(env.WithEnvPrefix("KV260_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "kv260.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust)
	return cfg
}
