package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	viper "github.com/spf13/viper"
)

var configSingleton *ConfigSingleTon
var muonce sync.Once

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	ServerPort         string        `mapstructure:"SERVER_PORT"`
	DbName             string        `mapstructure:"POSTGRES_DB"`
	DbHost             string        `mapstructure:"POSTGRES_HOST"`
	DbPort             string        `mapstructure:"POSTGRES_PORT"`
	DbUser             string        `mapstructure:"POSTGRES_USER"`
	DbPas              string        `mapstructure:"POSTGRES_PASSWORD"`
	RedisAddr          string        `mapstructure:"REDIS_ADDR"`
	RedisPassword      string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int           `mapstructure:"REDIS_DB"`
	CartAesKey         string        `mapstructure:"CART_AES_KEY"`
	AuthTokenKey       string        `mapstructure:"AUTH_TOKEN_KEY"`
	CartMergePolicy    string        `mapstructure:"CART_MERGE_POLICY"`
	RankingInterval    time.Duration `mapstructure:"RANKING_REFRESH_INTERVAL"`
	SmtpHost           string        `mapstructure:"SMTP_HOST"`
	SmtpPort           string        `mapstructure:"SMTP_PORT"`
	SmtpAuthKey        string        `mapstructure:"SMTP_AUTH_KEY"`
	EmailAccount       string        `mapstructure:"EMAIL_ACCOUNT"`
	Environment        string        `mapstructure:"ENVIRONMENT"`
}

func GetConfig() *Config {
	initConfig()
	configSingleton.mu.RLock()
	defer configSingleton.mu.RUnlock()
	return configSingleton.Config
}

func initConfig() {
	if configSingleton == nil {
		muonce.Do(func() {
			configSingleton = &ConfigSingleTon{}
			if cf, err := loadConfig(); err == nil {
				configSingleton.Config = cf
			} else {
				log.Fatal("error read marketplace config")
			}
			viper.WatchConfig()
			viper.OnConfigChange(func(e fsnotify.Event) {
				if cf, err := loadConfig(); err == nil {
					configSingleton.Config = cf
				} else {
					log.Panic("failed to reload config file")
				}
			})
		})
	}
}

/*
單純回傳錯誤  由外部決定要不要Fatal, 畢竟有可能有替代方案
*/
func loadConfig() (cf *Config, err error) {
	configSingleton.mu.Lock()
	defer configSingleton.mu.Unlock()

	cf = &Config{}
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("RANKING_REFRESH_INTERVAL", 7*24*time.Hour)
	viper.SetDefault("CART_MERGE_POLICY", "sum")
	viper.SetDefault("REDIS_DB", 0)

	err = viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	err = viper.Unmarshal(cf)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cf, nil
}
