package app

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	apperrors "costdeploy/internal/errors"
	"costdeploy/internal/metadata"
)

// DiscoverEndpointStep looks up the public address, falling back to a placeholder.
type DiscoverEndpointStep struct {
	*toolbox
}

func (s *DiscoverEndpointStep) Name() string        { return "discover-endpoint" }
func (s *DiscoverEndpointStep) Description() string { return "Discovering public address" }
func (s *DiscoverEndpointStep) Fatal() bool         { return false }

// Timeout leaves headroom over the metadata lookup bound.
func (s *DiscoverEndpointStep) Timeout() time.Duration { return s.cfg.Metadata.Timeout + time.Second }

func (s *DiscoverEndpointStep) Execute(ctx context.Context, state *ExecutionState) error {
	resolver := s.factory.MetadataResolver(s.cfg.Metadata.Endpoint)

	addr, err := metadata.Discover(ctx, resolver, s.cfg.Metadata.Timeout, s.cfg.Metadata.Placeholder)
	state.PublicAddress = addr
	if err != nil {
		return apperrors.NewMetadataError(s.Name(),
			fmt.Sprintf("Public address unavailable, using %s", s.cfg.Metadata.Placeholder),
			err.Error(),
			"Replace the placeholder with the instance's public address",
			err)
	}

	s.console.PrintSuccess(fmt.Sprintf("Public address %s", addr))
	return nil
}

// AnnounceStep prints where the dashboard can be reached.
type AnnounceStep struct {
	*toolbox
}

func (s *AnnounceStep) Name() string        { return "announce" }
func (s *AnnounceStep) Description() string { return "Deployment summary" }
func (s *AnnounceStep) Fatal() bool         { return false }

func (s *AnnounceStep) Execute(ctx context.Context, state *ExecutionState) error {
	addr := state.PublicAddress
	if addr == "" {
		addr = s.cfg.Metadata.Placeholder
	}
	state.Endpoint = "http://" + net.JoinHostPort(addr, strconv.Itoa(s.cfg.App.Port))

	if s.dryRun {
		s.console.PrintSuccess("DRY RUN COMPLETED - no changes were made")
	} else {
		s.console.PrintSuccess("Deployment complete!")
	}
	s.console.Println(fmt.Sprintf("Access the dashboard at: %s", state.Endpoint))
	return nil
}
