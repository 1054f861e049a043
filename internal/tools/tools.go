// Package tools implements the creative generation flows: images, logos,
// image edits, websites, slides, books, and long-running videos. Every
// flow registers a ledger entry before any remote work starts and
// resolves it when the job ends, so the creations list always reflects
// reality.
package tools

import (
	"context"

	"mzassist/internal/gateway"
	"mzassist/internal/ledger"
	"mzassist/internal/poller"
	"mzassist/internal/types"
)

// Generator is the slice of the gateway the tools need. Satisfied by
// *gateway.Client.
type Generator interface {
	GenerateImages(ctx context.Context, prompt string, count int, aspect gateway.AspectRatio) ([]string, error)
	GenerateLogo(ctx context.Context, prompt, style string) ([]string, error)
	EditImage(ctx context.Context, image types.InlineImage, prompt string) (string, error)
	GenerateWebsite(ctx context.Context, prompt string, stack types.WebTechStack, language string) (string, error)
	GenerateSlides(ctx context.Context, topic string) ([]types.Slide, error)
	GenerateBook(ctx context.Context, topic string) (*types.BookContent, error)
	GenerateVideo(ctx context.Context, prompt string, image *types.InlineImage) (*gateway.VideoOperation, error)
	PollVideoStatus(ctx context.Context, op *gateway.VideoOperation) (*gateway.VideoOperation, error)
	DownloadVideo(ctx context.Context, uri string) ([]byte, error)
}

// Service runs generation flows against a gateway and records them in
// the ledger.
type Service struct {
	gen     Generator
	ledger  *ledger.Ledger
	pollCfg poller.Config
}

// NewService builds a tools service. The poll config sets the cadence
// for long-running jobs; zero fields fall back to poller defaults.
func NewService(gen Generator, l *ledger.Ledger, pollCfg poller.Config) *Service {
	return &Service{gen: gen, ledger: l, pollCfg: pollCfg}
}

// Ledger exposes the creations ledger backing this service.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}
