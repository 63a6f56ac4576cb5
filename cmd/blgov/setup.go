package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/identity"
	"github.com/srg/blgov/internal/manager"
	"github.com/srg/blgov/internal/transport/goble"
	"github.com/srg/blgov/pkg/config"
)

// platform is what the commands need from the transport layer
type platform interface {
	manager.Transport
	Read(obj governor.Object) ([]byte, error)
	Write(obj governor.Object, data []byte, withResponse bool) error
}

type goblePlatform struct {
	*goble.Transport
}

func (goblePlatform) Read(obj governor.Object) ([]byte, error) { return goble.Read(obj) }

func (goblePlatform) Write(obj governor.Object, data []byte, withResponse bool) error {
	return goble.Write(obj, data, withResponse)
}

// platformFactory creates the transport (can be overridden in tests)
var platformFactory = func(cfg *config.Config, logger *logrus.Logger) platform {
	return goblePlatform{Transport: goble.New(logger, cfg.ConnectTimeout)}
}

// loadConfig reads --config (if any) and applies flag overrides on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("refresh-interval") {
		cfg.RefreshInterval, _ = flags.GetDuration("refresh-interval")
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout, _ = flags.GetDuration("connect-timeout")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session bundles everything a command run needs
type session struct {
	cfg      *config.Config
	logger   *logrus.Logger
	platform platform
	manager  *manager.Manager
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())

	p := platformFactory(cfg, logger)
	m := manager.New(p,
		manager.WithLogger(logger),
		manager.WithRefreshInterval(cfg.RefreshInterval),
	)

	return &session{cfg: cfg, logger: logger, platform: p, manager: m}, nil
}

func (s *session) close() {
	if err := s.manager.Dispose(); err != nil {
		s.logger.WithError(err).Warn("Shutdown was not clean")
	}
}

// track registers governors for ids and all their ancestors, so cascades and
// parent-first refresh cover the whole chain. Returns the governors for ids.
func (s *session) track(ids []identity.Identity) []*governor.Governor {
	govs := make([]*governor.Governor, 0, len(ids))
	for _, id := range ids {
		for p, ok := id.Parent(); ok; p, ok = p.Parent() {
			s.manager.Governor(p)
		}
		govs = append(govs, s.manager.Governor(id))
	}
	return govs
}

func parseIdentities(args []string) ([]identity.Identity, error) {
	ids := make([]identity.Identity, 0, len(args))
	for _, arg := range args {
		id, err := identity.Parse(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseCharacteristic(arg string) (identity.Identity, error) {
	id, err := identity.Parse(arg)
	if err != nil {
		return identity.Identity{}, err
	}
	if kind := governor.KindOf(id); kind != governor.KindCharacteristic {
		return identity.Identity{}, fmt.Errorf("%s is a %s, a characteristic identity is required", id, kind)
	}
	return id, nil
}
