package telegram

import (
	"fmt"

	"github.com/celestix/gotgproto"
	"github.com/celestix/gotgproto/sessionMaker"
	"github.com/glebarez/sqlite"

	"github.com/blockedby/tg-inviter/internal/config"
)

// NewProtoClient logs in with the credential the config selects.
//
// User mode restores the string session in memory and writes nothing to disk.
// Bot mode keeps its session and peer cache in the BotSessionDB sqlite file.
func NewProtoClient(cfg *config.Config) (*gotgproto.Client, error) {
	var (
		client *gotgproto.Client
		err    error
	)

	switch cfg.Mode() {
	case config.ModeBot:
		client, err = gotgproto.NewClient(
			cfg.TGApiID,
			cfg.TGApiHash,
			gotgproto.ClientTypeBot(cfg.TGBotToken),
			&gotgproto.ClientOpts{
				Session:          sessionMaker.SqlSession(sqlite.Open(cfg.BotSessionDB)),
				DisableCopyright: true,
			},
		)
	default:
		client, err = gotgproto.NewClient(
			cfg.TGApiID,
			cfg.TGApiHash,
			gotgproto.ClientTypePhone(""), // empty = use session
			&gotgproto.ClientOpts{
				Session:          sessionMaker.StringSession(cfg.TGSessionStr),
				InMemory:         true,
				DisableCopyright: true,
			},
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return client, nil
}
