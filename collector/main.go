package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kaguyact/majsoul-api/collector/app"
	"github.com/kaguyact/majsoul-api/common/config"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/common/metrics"
	"github.com/kaguyact/majsoul-api/core/container"
	"github.com/kaguyact/majsoul-api/core/parser"
	"github.com/kaguyact/majsoul-api/framework/majsoul"

	"github.com/spf13/cobra"
)

var (
	configFile string
	gameUUID   string
	friendlyID int
)

var rootCmd = &cobra.Command{
	Use:   "collector",
	Short: "collector 雀魂比赛牌谱采集",
	Long:  `collector 登录雀魂，持续采集配置的比赛牌谱，解析后写入 mongodb 并发布到 nats`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(configFile); err != nil {
			return err
		}
		log.InitLog(config.Conf.AppName, config.Conf.Log.Level)
		config.Watch(configFile, func(conf *config.Config) {
			log.SetLevel(conf.Log.Level)
			log.Info("配置文件已更新, 日志级别 %s", conf.Log.Level)
		})
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		log.Info("比赛: %v, 资源站: %s", config.Conf.Majsoul.Contests, config.Conf.Majsoul.ResourceUrl)

		go func() {
			log.Info("启动监控..., URL: http://localhost:%d/debug/statsviz/", config.Conf.MetricPort)
			err := metrics.Serve(fmt.Sprintf("0.0.0.0:%d", config.Conf.MetricPort))
			if err != nil {
				log.Error("监控服务退出: %v", err)
			}
		}()

		if err := app.Run(context.Background()); err != nil {
			log.Error("发生异常: %v", err)
			os.Exit(-1)
		}
	},
}

// parseCmd 拉取一场牌谱并输出解析结果，不写数据库
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "解析一场牌谱并输出 json",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		api, err := logIn(ctx)
		if err != nil {
			return err
		}
		defer api.Dispose()

		game, err := api.GetGame(ctx, gameUUID)
		if err != nil {
			return err
		}
		result := parser.ParseGameRecordResponse(game)
		if result == nil {
			return fmt.Errorf("牌谱 %s 无法解析", gameUUID)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// playerCmd 按好友 ID 查找玩家
var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "按好友 ID 查找玩家",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		api, err := logIn(ctx)
		if err != nil {
			return err
		}
		defer api.Dispose()

		player, err := api.FindPlayerByFriendlyId(ctx, friendlyID)
		if err != nil {
			return err
		}
		if player == nil {
			return fmt.Errorf("好友 ID %d 不存在", friendlyID)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", player.Nickname, player.MajsoulID, majsoul.GetPlayerZone(player.MajsoulID))
		return err
	},
}

func logIn(ctx context.Context) (*majsoul.Api, error) {
	api, err := container.NewApiFromConfig(ctx, config.Conf.Majsoul)
	if err != nil {
		return nil, err
	}
	passport := config.Conf.Majsoul.Passport
	if _, err := api.LogIn(ctx, majsoul.Passport{Uid: passport.Uid, AccessToken: passport.AccessToken}); err != nil {
		api.Dispose()
		return nil, err
	}
	return api, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "configFile", "resource/application.yml", "config file")
	parseCmd.Flags().StringVar(&gameUUID, "game", "", "game record uuid")
	_ = parseCmd.MarkFlagRequired("game")
	playerCmd.Flags().IntVar(&friendlyID, "id", 0, "friendly id")
	_ = playerCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(parseCmd, playerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("error happen: %#v", err)
		os.Exit(1)
	}
}
