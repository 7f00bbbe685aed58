// Package board implements the message board commands: the five record
// operations, the owner history reads, and the supporting watch, tui,
// archive, and stats commands.
package board

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RpGmAx/ronin-mission-5/internal/config"
	"github.com/RpGmAx/ronin-mission-5/internal/contract"
	"github.com/RpGmAx/ronin-mission-5/internal/contract/physical"
	"github.com/RpGmAx/ronin-mission-5/internal/events"
	"github.com/RpGmAx/ronin-mission-5/internal/keyring"
	"github.com/RpGmAx/ronin-mission-5/internal/observability"
	"github.com/RpGmAx/ronin-mission-5/internal/storage"
	"github.com/RpGmAx/ronin-mission-5/pkg/identity"
	"github.com/RpGmAx/ronin-mission-5/pkg/logging"

	// State backends register themselves.
	_ "github.com/RpGmAx/ronin-mission-5/internal/contract/physical/badger"
	_ "github.com/RpGmAx/ronin-mission-5/internal/contract/physical/memory"
	_ "github.com/RpGmAx/ronin-mission-5/internal/contract/physical/redis"
	_ "github.com/RpGmAx/ronin-mission-5/internal/contract/physical/sqlite"
)

// Commands returns the board commands for the root command.
func Commands(v *viper.Viper) []*cobra.Command {
	b := &boardCmd{v: v}
	return []*cobra.Command{
		newCreateCmd(b),
		newReadCmd(b),
		newListCmd(b),
		newUpdateCmd(b),
		newDeleteCmd(b),
		newHistoryCmd(b),
		newWatchCmd(b),
		newTUICmd(b),
		newArchiveCmd(b),
		newStatsCmd(b),
	}
}

type boardCmd struct {
	v *viper.Viper
}

// session holds everything an invocation needs: merged config, the
// caller's keypair, and an opened contract.
type session struct {
	cfg      config.Config
	caller   *keyring.Key
	contract *contract.Contract
	metrics  *observability.Metrics
}

func (s *session) close() {
	if s.contract != nil {
		_ = s.contract.Close()
	}
}

// open loads config, resolves the caller, and opens the contract
// against the configured state backend.
func (b *boardCmd) open(cmd *cobra.Command) (*session, error) {
	cfg, err := b.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	caller, err := b.loadCaller(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	sink, err := buildSink(cmd.Context(), cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}

	ct, err := contract.Open(cmd.Context(), backend, caller.ID(),
		contract.WithSink(sink),
		contract.WithMetrics(metrics),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &session{cfg: cfg, caller: caller, contract: ct, metrics: metrics}, nil
}

func (b *boardCmd) loadConfig(cmd *cobra.Command) (config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(b.v, configFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	return cfg, nil
}

func (b *boardCmd) loadCaller(ctx context.Context, cfg config.Config) (*keyring.Key, error) {
	kr := keyring.New(cfg.ResolvedDataDir())
	if cfg.KeyName != "" {
		key, err := kr.Load(ctx, cfg.KeyName)
		if err != nil {
			return nil, fmt.Errorf("load key %q: %w", cfg.KeyName, err)
		}
		return key, nil
	}
	key, err := kr.LoadDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default key (run 'ronin keys generate' first): %w", err)
	}
	return key, nil
}

// openBackend builds the configured state backend, pointing file-backed
// stores into the data directory unless a path is set explicitly.
func openBackend(ctx context.Context, cfg config.Config) (physical.Backend, error) {
	name := cfg.Storage.State.Backend
	if name == "" {
		name = "badger"
	}

	conf := storage.MergeConfig(nil, cfg.Storage.State.Config)
	if conf == nil {
		conf = make(map[string]string)
	}
	if conf["path"] == "" {
		switch name {
		case "badger":
			conf["path"] = filepath.Join(cfg.ResolvedDataDir(), "state")
		case "sqlite":
			conf["path"] = filepath.Join(cfg.ResolvedDataDir(), "state.db")
		}
	}

	backend, err := physical.New(ctx, name, conf)
	if err != nil {
		return nil, fmt.Errorf("open state backend: %w", err)
	}
	return backend, nil
}

func buildSink(ctx context.Context, cfg config.Config) (events.Sink, error) {
	switch cfg.Events.Sink {
	case "", "log":
		return events.NewSlogSink(nil), nil
	case "redis":
		sink, err := events.NewRedisSink(ctx, cfg.Events.Config)
		if err != nil {
			return nil, fmt.Errorf("open event sink: %w", err)
		}
		return sink, nil
	case "none":
		return events.NopSink{}, nil
	default:
		return nil, fmt.Errorf("unknown event sink %q (available: log, redis, none)", cfg.Events.Sink)
	}
}

// resolveSender turns a positional argument into an identity key: a
// keyring alias first, then a raw hex key.
func (b *boardCmd) resolveSender(ctx context.Context, cfg config.Config, arg string) (identity.Key, error) {
	kr := keyring.New(cfg.ResolvedDataDir())
	if key, err := kr.Load(ctx, arg); err == nil {
		return key.ID(), nil
	}
	sender, err := identity.Parse(arg)
	if err != nil {
		return identity.Key{}, fmt.Errorf("%q is neither a known alias nor a public key hex", arg)
	}
	return sender, nil
}
