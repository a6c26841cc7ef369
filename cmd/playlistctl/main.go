// Package main playlistctl：在本进程内导入播放列表并提问
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
