package main

import (
	"log"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "1.0.0"
)

var rootCmd = &cobra.Command{
	Use:     "review-server",
	Short:   "训练数据人工审核服务",
	Long:    "审核员对生成的训练数据投票，达到通过阈值后进入最终数据集，达到拒绝阈值后根据拒绝意见重新生成。",
	Version: version,
	RunE:    runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务和重新生成队列",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "迁移数据库并写入初始账号和拒绝理由",
	RunE:  runMigrate,
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "检查重新生成任务，报告卡住的数据",
	RunE:  runRecover,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径，默认在 . 和 ./config 下查找 config.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recoverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
