package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var Conf *Config

type Config struct {
	AppName      string       `mapstructure:"appName"`
	Log          LogConf      `mapstructure:"log"`
	MetricPort   int          `mapstructure:"metricPort"`
	Majsoul      MajsoulConf  `mapstructure:"majsoul"`
	DatabaseConf DatabaseConf `mapstructure:"database"`
	NatsConfig   NatsConfig   `mapstructure:"nats"`
	CacheConf    CacheConf    `mapstructure:"cache"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type MajsoulConf struct {
	ResourceUrl string       `mapstructure:"resourceUrl"`
	ServerIndex int          `mapstructure:"serverIndex"` // -1 表示随机选择
	Proxy       string       `mapstructure:"proxy"`
	Heartbeat   int          `mapstructure:"heartbeat"`        // 心跳间隔，单位秒
	HeartbeatTO int          `mapstructure:"heartbeatTimeout"` // 心跳超时，单位毫秒
	FetchRate   int          `mapstructure:"fetchRate"`        // 每秒最多拉取的牌谱数
	ScanMinutes int          `mapstructure:"scanMinutes"`      // 定期全量同步比赛的间隔
	IndexDays   int          `mapstructure:"indexDays"`        // 已处理牌谱索引的保留天数，0 为永久
	Contests    []int        `mapstructure:"contests"`
	Passport    PassportConf `mapstructure:"passport"`
}

type PassportConf struct {
	Uid         string `mapstructure:"uid"`
	AccessToken string `mapstructure:"accessToken"`
}

type DatabaseConf struct {
	MongoConf MongoConf `mapstructure:"mongo"`
	RedisConf RedisConf `mapstructure:"redis"`
}

type MongoConf struct {
	Url         string `mapstructure:"url"`
	Db          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"minPoolSize"`
	MaxPoolSize int    `mapstructure:"maxPoolSize"`
}

type RedisConf struct {
	Addr         string   `mapstructure:"addr"`
	ClusterAddrs []string `mapstructure:"clusterAddrs"`
	Password     string   `mapstructure:"password"`
	PoolSize     int      `mapstructure:"poolSize"`
	MinIdleConns int      `mapstructure:"minIdleConns"`
	Host         string   `mapstructure:"host"`
	Port         int      `mapstructure:"port"`
}

type NatsConfig struct {
	URL     string `json:"url" mapstructure:"url"`
	Subject string `json:"subject" mapstructure:"subject"`
}

type CacheConf struct {
	MaxCost int64 `mapstructure:"maxCost"`
	TTL     int   `mapstructure:"ttl"` // 单位秒
}

// HeartbeatInterval 心跳间隔，默认 60 秒
func (m MajsoulConf) HeartbeatInterval() time.Duration {
	if m.Heartbeat <= 0 {
		return time.Minute
	}
	return time.Duration(m.Heartbeat) * time.Second
}

// HeartbeatTimeout 心跳超时，默认 3 秒
func (m MajsoulConf) HeartbeatTimeout() time.Duration {
	if m.HeartbeatTO <= 0 {
		return 3 * time.Second
	}
	return time.Duration(m.HeartbeatTO) * time.Millisecond
}

// ScanInterval 默认 10 分钟
func (m MajsoulConf) ScanInterval() time.Duration {
	if m.ScanMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(m.ScanMinutes) * time.Minute
}

func (m MajsoulConf) IndexTTL() time.Duration {
	if m.IndexDays <= 0 {
		return 0
	}
	return time.Duration(m.IndexDays) * 24 * time.Hour
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "collector")
	v.SetDefault("log.level", "info")
	v.SetDefault("metricPort", 5854)
	v.SetDefault("majsoul.resourceUrl", "https://mahjongsoul.game.yo-star.com/")
	v.SetDefault("majsoul.serverIndex", -1)
	v.SetDefault("majsoul.heartbeat", 60)
	v.SetDefault("majsoul.heartbeatTimeout", 3000)
	v.SetDefault("majsoul.fetchRate", 2)
	v.SetDefault("majsoul.scanMinutes", 10)
	v.SetDefault("majsoul.indexDays", 90)
	// 没有默认值的 key 不会参与 Unmarshal，环境变量也就无法覆盖
	v.SetDefault("majsoul.passport.uid", "")
	v.SetDefault("majsoul.passport.accessToken", "")
	v.SetDefault("nats.subject", "majsoul")
	v.SetDefault("cache.maxCost", 1<<26)
	v.SetDefault("cache.ttl", 600)
}

// Load 读取配置文件，环境变量可以覆盖同名配置（majsoul.passport.uid -> MAJSOUL_PASSPORT_UID）
func Load(configFile string) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configFile)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// 代理沿用 http_proxy 环境变量
	if err := v.BindEnv("majsoul.proxy", "MAJSOUL_PROXY", "http_proxy", "HTTP_PROXY"); err != nil {
		return err
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件出错: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("解析配置文件出错: %w", err)
	}
	Conf = cfg
	return nil
}

// Watch 监听配置文件变化，onChange 收到重新解析后的配置
func Watch(configFile string, onChange func(*Config)) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return
	}
	v.OnConfigChange(func(in fsnotify.Event) {
		cfg := new(Config)
		if err := v.Unmarshal(cfg); err != nil {
			return
		}
		Conf = cfg
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}
