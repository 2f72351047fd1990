package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
)

// ServerConfig is one monitored guild. Immutable after Load.
type ServerConfig struct {
	GuildID      string
	GuildName    string
	LogChannelID string
}

// WebhookConfig is one notification target. A webhook with an empty Scope is
// a general target and receives every notice not claimed by a scoped one.
type WebhookConfig struct {
	URL   string
	Scope string
}

type BotConfig struct {
	Token string
}

type ClassifierConfig struct {
	APIKey         string
	Model          string
	Temperature    float64
	RequestTimeout time.Duration
	RetryDelay     time.Duration
}

type PipelineConfig struct {
	BanInterval     time.Duration
	WebhookInterval time.Duration
	BanTimeout      time.Duration
	WebhookTimeout  time.Duration
}

type WebConfig struct {
	Addr string
}

type Config struct {
	Bot        BotConfig
	Classifier ClassifierConfig
	Pipeline   PipelineConfig
	Web        WebConfig
	Servers    []ServerConfig
	Webhooks   []WebhookConfig
}

var GlobalConfig *Config

// Load reads the configuration snapshot from the environment. A .env file in
// the working directory is honored when present. Any missing or malformed
// required value is a fatal load error; the process must not start without a
// valid snapshot.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment overrides from .env")
	}

	token := os.Getenv("badbot_discord_token")
	if token == "" {
		return nil, fmt.Errorf("environment variable badbot_discord_token is required")
	}

	apiKey := os.Getenv("badbot_openai_key")
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable badbot_openai_key is required")
	}

	servers, err := ParseServers(os.Getenv("badbot_automod_servers"))
	if err != nil {
		return nil, err
	}

	webhooks := ParseWebhooks(os.Getenv("badbot_automod_webhookurls"))
	if len(webhooks) == 0 {
		logging.Warn("No webhooks configured, notifications will be disabled")
	}

	temperature := 0.0
	if raw := os.Getenv("openai_temperature"); raw != "" {
		temperature, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid openai_temperature %q: %w", raw, err)
		}
	}

	model := os.Getenv("openai_model")
	if model == "" {
		model = "gpt-4o-mini"
	}

	addr := os.Getenv("badbot_health_addr")
	if addr == "" {
		addr = ":8080"
	}

	cfg := &Config{
		Bot: BotConfig{Token: token},
		Classifier: ClassifierConfig{
			APIKey:         apiKey,
			Model:          model,
			Temperature:    temperature,
			RequestTimeout: 30 * time.Second,
			RetryDelay:     3 * time.Second,
		},
		Pipeline: PipelineConfig{
			BanInterval:     2 * time.Second,
			WebhookInterval: 1 * time.Second,
			BanTimeout:      5 * time.Second,
			WebhookTimeout:  10 * time.Second,
		},
		Web:      WebConfig{Addr: addr},
		Servers:  servers,
		Webhooks: webhooks,
	}

	GlobalConfig = cfg
	return cfg, nil
}

// ParseServers parses the badbot_automod_servers value. Entries are comma
// separated in the form guildID:guildName:logChannelID; the log channel part
// may be omitted.
func ParseServers(raw string) ([]ServerConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("environment variable badbot_automod_servers is required")
	}

	seen := make(map[string]bool)
	var servers []ServerConfig

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.Split(pair, ":")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("invalid server entry %q (expected guildID:guildName:logChannelID)", pair)
		}

		guildID := strings.TrimSpace(parts[0])
		if _, err := strconv.ParseUint(guildID, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid guild ID in server entry %q", pair)
		}
		if seen[guildID] {
			return nil, fmt.Errorf("duplicate guild ID %s in badbot_automod_servers", guildID)
		}
		seen[guildID] = true

		guildName := strings.TrimSpace(parts[1])
		if guildName == "" {
			return nil, fmt.Errorf("empty guild name in server entry %q", pair)
		}

		logChannelID := ""
		if len(parts) == 3 {
			logChannelID = strings.TrimSpace(parts[2])
			if _, err := strconv.ParseUint(logChannelID, 10, 64); err != nil {
				return nil, fmt.Errorf("invalid log channel ID in server entry %q", pair)
			}
		}

		servers = append(servers, ServerConfig{
			GuildID:      guildID,
			GuildName:    guildName,
			LogChannelID: logChannelID,
		})
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("badbot_automod_servers contains no valid entries")
	}

	return servers, nil
}

// ParseWebhooks parses the badbot_automod_webhookurls value. Entries are
// comma separated; an entry may carry a server scope after a pipe, e.g.
// https://discord.com/api/webhooks/...|Server Name. Malformed entries are
// skipped with a warning rather than failing startup, since notifications
// are an optional feature.
func ParseWebhooks(raw string) []WebhookConfig {
	var webhooks []WebhookConfig

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		url := entry
		scope := ""
		if idx := strings.Index(entry, "|"); idx >= 0 {
			url = strings.TrimSpace(entry[:idx])
			scope = strings.TrimSpace(entry[idx+1:])
		}

		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			logging.Warn("Skipping webhook entry with invalid URL: %q", entry)
			continue
		}

		webhooks = append(webhooks, WebhookConfig{URL: url, Scope: scope})
	}

	return webhooks
}

// FindServer returns the monitored server for a guild ID, if any.
func (c *Config) FindServer(guildID string) (ServerConfig, bool) {
	for _, s := range c.Servers {
		if s.GuildID == guildID {
			return s, true
		}
	}
	return ServerConfig{}, false
}

func Get() *Config {
	return GlobalConfig
}
