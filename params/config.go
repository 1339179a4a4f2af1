package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Shop struct {
	URL         string
	AccessToken string
	// Language selects the outbound message catalog (EN or FR).
	Language string
}

type Server struct {
	Addr string
}

type Queue struct {
	PollInterval    time.Duration
	SecondsPerTrade time.Duration
	// DiscardClaimed lets an explicit removal flag an in-flight trade so its
	// result is discarded, instead of letting it stand.
	DiscardClaimed bool
}

type Workers struct {
	Count int
	// TradeDuration paces the simulated executor in development.
	TradeDuration time.Duration
}

type Events struct {
	Brokers []string
	Topic   string
}

type Config struct {
	Shop    Shop
	Server  Server
	Queue   Queue
	Workers Workers
	Events  Events

	DataDir string
	LogFile string
	// TradeSet is the set description traded for every order until line-item
	// templating is sourced from the order itself.
	TradeSet string
}

const defaultTradeSet = "Charizard @ Choice Specs\r\nAbility: Solar Power\r\nTera Type: Fire\r\nEVs: 252 SpA / 4 SpD / 252 Spe\r\nTimid Nature\r\nIVs: 0 Atk\r\nWeather Ball\r\nFocus Blast\r\nSolar Beam"

func Default() Config {
	return Config{
		Shop: Shop{
			Language: "FR",
		},
		Server: Server{
			Addr: ":8080",
		},
		Queue: Queue{
			PollInterval:    5 * time.Second,
			SecondsPerTrade: 90 * time.Second,
			DiscardClaimed:  true,
		},
		Workers: Workers{
			Count:         2,
			TradeDuration: 30 * time.Second,
		},
		Events: Events{
			Topic: "trade-events",
		},
		DataDir:  "data",
		LogFile:  "data/server.log",
		TradeSet: defaultTradeSet,
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults. The result is
// immutable for the process lifetime.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("SHOP_URL"); v != "" {
		cfg.Shop.URL = v
	}
	if v := os.Getenv("SHOP_ACCESS_TOKEN"); v != "" {
		cfg.Shop.AccessToken = v
	}
	if v := os.Getenv("LANGUAGE"); v != "" {
		cfg.Shop.Language = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Queue.PollInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("SECONDS_PER_TRADE"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil {
			cfg.Queue.SecondsPerTrade = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv("DISCARD_CLAIMED"); v != "" {
		cfg.Queue.DiscardClaimed = v == "true"
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers.Count = n
		}
	}
	if v := os.Getenv("TRADE_DURATION_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Workers.TradeDuration = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Events.Topic = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("TRADE_SET"); v != "" {
		cfg.TradeSet = v
	}

	return cfg
}
