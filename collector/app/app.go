package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kaguyact/majsoul-api/common/config"
	"github.com/kaguyact/majsoul-api/common/log"
	"github.com/kaguyact/majsoul-api/core/container"
)

// Run 初始化容器 -> 登录并开始采集 -> 等待信号或采集器退出
func Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collectorContainer, err := container.NewCollectorContainer(ctx, config.Conf)
	if err != nil {
		log.Error("collector 容器初始化失败: %v", err)
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- collectorContainer.Collector.Run(ctx)
	}()

	stop := func() {
		log.Info("正在关闭 collector 服务...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			log.Warn("采集器没有在 5 秒内退出")
		}
		if err := collectorContainer.Close(); err != nil {
			log.Warn("关闭 collector 容器失败: %v", err)
		}
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	for {
		select {
		case err := <-done:
			// 采集器自行退出，写回 done 让 stop 不必等待
			done <- err
			stop()
			return err
		case s := <-c:
			switch s {
			case syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT:
				stop()
				log.Info("中断信号，服务停止")
				return nil
			case syscall.SIGHUP:
				log.Info("挂起信号，重新加载日志级别")
				log.SetLevel(config.Conf.Log.Level)
			default:
				stop()
				return nil
			}
		}
	}
}
