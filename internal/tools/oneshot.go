package tools

import (
	"context"

	"mzassist/internal/gateway"
	"mzassist/internal/logging"
	"mzassist/internal/types"
)

// run wraps a one-shot generation flow with ledger bookkeeping: register
// pending, execute, resolve. The ledger resolution errors are logged but
// never mask the generation outcome.
func (s *Service) run(creationType types.CreationType, prompt string, do func() (interface{}, error)) (interface{}, error) {
	id, err := s.ledger.Register(creationType, prompt)
	if err != nil {
		return nil, err
	}

	result, err := do()
	if err != nil {
		if ferr := s.ledger.Fail(id, gateway.UserMessage(err)); ferr != nil {
			logging.Ledger("Failed to record failure for %s: %v", id, ferr)
		}
		return nil, err
	}
	if cerr := s.ledger.Complete(id, result); cerr != nil {
		logging.Ledger("Failed to record completion for %s: %v", id, cerr)
	}
	return result, nil
}

// CreateImages generates count images for the prompt and returns them as
// data URLs.
func (s *Service) CreateImages(ctx context.Context, prompt string, count int, aspect gateway.AspectRatio) ([]string, error) {
	result, err := s.run(types.CreationImage, prompt, func() (interface{}, error) {
		return s.gen.GenerateImages(ctx, prompt, count, aspect)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// CreateLogo generates four logo variants in the given style.
func (s *Service) CreateLogo(ctx context.Context, prompt, style string) ([]string, error) {
	result, err := s.run(types.CreationLogo, prompt, func() (interface{}, error) {
		return s.gen.GenerateLogo(ctx, prompt, style)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

// EditImage applies an instruction to an image and returns the edited
// image as a data URL.
func (s *Service) EditImage(ctx context.Context, image types.InlineImage, prompt string) (string, error) {
	result, err := s.run(types.CreationEditedImage, prompt, func() (interface{}, error) {
		data, err := s.gen.EditImage(ctx, image, prompt)
		if err != nil {
			return nil, err
		}
		return "data:image/png;base64," + data, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// CreateWebsite generates a complete single-file website.
func (s *Service) CreateWebsite(ctx context.Context, prompt string, stack types.WebTechStack, language string) (string, error) {
	result, err := s.run(types.CreationWebsite, prompt, func() (interface{}, error) {
		return s.gen.GenerateWebsite(ctx, prompt, stack, language)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// CreateSlides generates a slide deck on a topic.
func (s *Service) CreateSlides(ctx context.Context, topic string) ([]types.Slide, error) {
	result, err := s.run(types.CreationSlides, topic, func() (interface{}, error) {
		return s.gen.GenerateSlides(ctx, topic)
	})
	if err != nil {
		return nil, err
	}
	return result.([]types.Slide), nil
}

// CreateBook drafts a full book plan on a topic.
func (s *Service) CreateBook(ctx context.Context, topic string) (*types.BookContent, error) {
	result, err := s.run(types.CreationBook, topic, func() (interface{}, error) {
		return s.gen.GenerateBook(ctx, topic)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.BookContent), nil
}
