package cmd

import (
	"ScoreRack/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动ScoreRack服务器",
	Long:  `启动乐谱资源系统的HTTP服务器，提供谱面分配矩阵、文件查看器和目录API`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
