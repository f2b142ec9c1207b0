package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Email    EmailConfig    `mapstructure:"email"`
	Push     PushConfig     `mapstructure:"push"`
	Events   EventsConfig   `mapstructure:"events"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// 存储后端
const (
	BackendMemory   = "memory"
	BackendDatabase = "database"
	BackendRemote   = "remote"
)

// StoreConfig 存储后端选择
type StoreConfig struct {
	Backend    string `mapstructure:"backend"`
	FixtureDir string `mapstructure:"fixture_dir"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql | sqlite
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
	Path     string `mapstructure:"path"` // sqlite 文件路径
}

// RemoteConfig 记录服务配置
type RemoteConfig struct {
	BaseURL        string       `mapstructure:"base_url"`
	APIKey         string       `mapstructure:"api_key"`
	PageSize       int          `mapstructure:"page_size"`
	TimeoutSeconds int          `mapstructure:"timeout_seconds"`
	Tables         RemoteTables `mapstructure:"tables"`
}

// RemoteTables 各实体在记录服务中的表名
type RemoteTables struct {
	Transactions string `mapstructure:"transactions"`
	Budgets      string `mapstructure:"budgets"`
	Categories   string `mapstructure:"categories"`
	Goals        string `mapstructure:"goals"`
}

// Timeout 请求超时
func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpireHours int           `mapstructure:"expire_hours"`
	ExpireTime  time.Duration `mapstructure:"-"`
}

// AuthConfig 登录账号配置（单账号）
type AuthConfig struct {
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	PasswordHash       string `mapstructure:"password_hash"`
	MaxLoginAttempts   int    `mapstructure:"max_login_attempts"`
	LoginWindowMinutes int    `mapstructure:"login_window_minutes"`
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"` // 预算提醒收件人
}

// PushConfig 推送配置（Webhook）
type PushConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
}

// EventsConfig 记录变更事件配置，amqp_url 为空时不发布
type EventsConfig struct {
	AMQPURL  string `mapstructure:"amqp_url"`
	Exchange string `mapstructure:"exchange"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
)

// LoadConfig 加载配置
// 优先级: 环境变量 > 外部配置文件 > 嵌入的默认配置
// configPath: 可选的外部配置文件路径
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 首先加载嵌入的默认配置
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("读取内置配置失败: %w", err)
	}
	logrus.Debug("已加载内置默认配置")

	// 2. 尝试加载外部配置文件（可选，用于覆盖默认配置）
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			logrus.Warnf("无法读取指定配置文件 %s: %v", configPath, err)
		} else {
			logrus.Infof("已合并外部配置文件: %s", configPath)
		}
	} else {
		externalViper := viper.New()
		externalViper.SetConfigName("config")
		externalViper.SetConfigType("yaml")
		externalViper.AddConfigPath(".")
		externalViper.AddConfigPath("./config")
		externalViper.AddConfigPath("/etc/smartbudget")
		externalViper.AddConfigPath("$HOME/.smartbudget")

		if err := externalViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(externalViper.AllSettings()); err != nil {
				logrus.Warnf("合并外部配置失败: %v", err)
			} else {
				logrus.Infof("已合并外部配置文件: %s", externalViper.ConfigFileUsed())
			}
		}
	}

	// 3. 环境变量覆盖，如 SMARTBUDGET_STORE_BACKEND=remote
	v.SetEnvPrefix("SMARTBUDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	GlobalConfig = &cfg
	return &cfg, nil
}

// normalize 填充缺省值并校验取值范围
func (c *Config) normalize() error {
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 24
	}
	c.JWT.ExpireTime = time.Duration(c.JWT.ExpireHours) * time.Hour

	if c.Auth.MaxLoginAttempts <= 0 {
		c.Auth.MaxLoginAttempts = 5
	}
	if c.Auth.LoginWindowMinutes <= 0 {
		c.Auth.LoginWindowMinutes = 15
	}
	if c.Remote.PageSize <= 0 {
		c.Remote.PageSize = 100
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "":
		c.Store.Backend = BackendMemory
	case BackendMemory, BackendDatabase, BackendRemote:
	default:
		return fmt.Errorf("不支持的存储后端: %s", c.Store.Backend)
	}
	if c.Store.Backend == BackendRemote && c.Remote.BaseURL == "" {
		return fmt.Errorf("remote 后端需要配置 remote.base_url")
	}
	if c.Store.Backend == BackendDatabase {
		switch c.Database.Driver {
		case "mysql", "sqlite":
		default:
			return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
		}
	}
	return nil
}

// PrintConfig 打印当前配置（隐藏敏感信息）
func PrintConfig() {
	if GlobalConfig == nil {
		return
	}
	c := GlobalConfig
	fields := logrus.Fields{
		"port":    c.Server.Port,
		"mode":    c.Server.Mode,
		"backend": c.Store.Backend,
		"email":   c.Email.Enabled,
		"push":    c.Push.Enabled,
		"events":  c.Events.AMQPURL != "",
	}
	switch c.Store.Backend {
	case BackendDatabase:
		if c.Database.Driver == "sqlite" {
			fields["database"] = "sqlite:" + c.Database.Path
		} else {
			fields["database"] = fmt.Sprintf("%s@%s:%s/%s", c.Database.Username, c.Database.Host, c.Database.Port, c.Database.DBName)
		}
	case BackendRemote:
		fields["remote"] = c.Remote.BaseURL
	}
	logrus.WithFields(fields).Info("当前配置")
}
