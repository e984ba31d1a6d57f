package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jyfmidi/shuxinyuan-express/internal/logger"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"3000"`

	WeComCorpID      string `env:"WECHAT_CORP_ID"`
	WeComAgentID     string `env:"WECHAT_AGENT_ID"`
	WeComAgentSecret string `env:"WECHAT_AGENT_SECRET"`

	// BaseURL is the externally reachable base URL of this service.
	// The WeCom callback redirect URI is derived from it.
	BaseURL        string `env:"BASE_URL"`
	FrontendOrigin string `env:"FRONTEND_ORIGIN"`
	APIBasePath    string `env:"API_BASE_PATH" envDefault:"/api/wechat"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"5s"`
	SecureCookie bool          `env:"SECURE_COOKIE" envDefault:"false"`

	// EnableTestLogin opens the test-login bypass. Must stay off in
	// production deployments.
	EnableTestLogin bool `env:"ENABLE_TEST_LOGIN" envDefault:"false"`

	// Overridable for tests; defaults are the production WeCom hosts.
	WeComAPIBase       string `env:"WECHAT_API_BASE" envDefault:"https://qyapi.weixin.qq.com"`
	WeComAuthorizeBase string `env:"WECHAT_AUTHORIZE_BASE" envDefault:"https://open.weixin.qq.com"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RedirectURI is the callback address registered with WeCom.
func (c Config) RedirectURI() string {
	return strings.TrimRight(c.BaseURL, "/") + c.APIBasePath + "/callback"
}

// Validate reports required variables that are missing. Each one is
// also logged as a warning so a misconfigured deployment is visible
// at startup.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"WECHAT_CORP_ID", c.WeComCorpID},
		{"WECHAT_AGENT_ID", c.WeComAgentID},
		{"WECHAT_AGENT_SECRET", c.WeComAgentSecret},
		{"BASE_URL", c.BaseURL},
		{"FRONTEND_ORIGIN", c.FrontendOrigin},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			logger.Warn("missing required configuration", map[string]any{
				"variable": r.name,
			})
			missing = append(missing, r.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
