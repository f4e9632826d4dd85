package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	DiscordBotToken string
	DiscordGuildID  string
	DatabasePath    string
	ServerPort      string
	PublicHost      string

	// SyncIntervalMinutes controls the periodic pull from Discord. Zero
	// disables the background job; manual sync stays available.
	SyncIntervalMinutes int

	// Optional Telegram ops notifier.
	TelegramToken   string
	AdminTelegramID int64
}

func Load() (*Config, error) {
	token := os.Getenv("DISCORD_BOT_TOKEN")
	guildID := os.Getenv("DISCORD_GUILD_ID")
	if token != "" && guildID == "" {
		return nil, fmt.Errorf("DISCORD_GUILD_ID is required when DISCORD_BOT_TOKEN is set")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/calendar.db"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	publicHost := os.Getenv("PUBLIC_HOST")
	if publicHost == "" {
		publicHost = "localhost"
	}

	syncInterval := 30
	if v := os.Getenv("SYNC_INTERVAL_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid SYNC_INTERVAL_MINUTES: %q", v)
		}
		syncInterval = n
	}

	var adminID int64
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %q", v)
		}
		adminID = id
	}

	return &Config{
		DiscordBotToken:     token,
		DiscordGuildID:      guildID,
		DatabasePath:        dbPath,
		ServerPort:          serverPort,
		PublicHost:          publicHost,
		SyncIntervalMinutes: syncInterval,
		TelegramToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminTelegramID:     adminID,
	}, nil
}
