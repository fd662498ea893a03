package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dxengine/internal/cache"
	"dxengine/internal/config"
	"dxengine/internal/dxc"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the content-addressed task cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Destroy all cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		mgr := cache.New(cfg.CacheDir, cfg.CacheMaxSize, cache.WithLogger(logger))
		return mgr.Clear()
	},
}

var cacheVerifyCmd = &cobra.Command{
	Use:   "verify <entry.dxc>",
	Short: "Decode a cache record and check its signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		entry, err := dxc.DecodeRecord(data)
		if err != nil {
			return err
		}

		fmt.Printf("task hash: %x\nfiles: %d (%d bytes)\n", entry.TaskHash, len(entry.Files), entry.TotalSize())

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		mgr := cache.New(cfg.CacheDir, cfg.CacheMaxSize)
		ok, err := mgr.Verify(entry)
		if err != nil {
			return err
		}
		if ok {
			fmt.Println("signature: valid")
		} else {
			fmt.Println("signature: absent")
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd, cacheVerifyCmd)
}
