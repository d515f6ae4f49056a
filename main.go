// Simchange detects changepoints that many time series share.
package main

import (
	"github.com/huangsam/simchange/cmd"
	"github.com/huangsam/simchange/internal/contract"
	"github.com/huangsam/simchange/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute()

	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseCaching()

	if err != nil {
		contract.LogFatal("simchange failed", err)
	}
}
