package pushrules

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tOgg1/mxview/internal/logging"
	"github.com/tOgg1/mxview/internal/matrix"
)

// Service applies keyword rule edits to the viewer's account data. Every
// edit is a read-modify-write of the whole m.push_rules event.
type Service struct {
	data   matrix.AccountData
	userID string
	logger zerolog.Logger
}

// NewService creates a Service for userID.
func NewService(data matrix.AccountData, userID string) *Service {
	return &Service{
		data:   data,
		userID: userID,
		logger: logging.Component("pushrules"),
	}
}

// Load fetches and decodes the current rules.
func (s *Service) Load(ctx context.Context) (*PushRules, error) {
	raw, err := s.data.AccountData(ctx, AccountDataType)
	if err != nil {
		return nil, fmt.Errorf("load push rules: %w", err)
	}
	return Parse(raw)
}

// SetMode changes one managed rule's mode.
func (s *Service) SetMode(ctx context.Context, ruleID string, mode Mode) error {
	return s.update(ctx, func(p *PushRules) (bool, error) {
		if current, ok := p.Modes()[ruleID]; ok && current == mode {
			return false, nil
		}
		return true, p.SetMode(ruleID, mode, s.userID)
	})
}

// AddKeyword adds a keyword rule. Blank keywords are rejected.
func (s *Service) AddKeyword(ctx context.Context, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("keyword is required")
	}
	return s.update(ctx, func(p *PushRules) (bool, error) {
		return p.AddKeyword(keyword), nil
	})
}

// RemoveKeyword removes a keyword rule.
func (s *Service) RemoveKeyword(ctx context.Context, keyword string) error {
	return s.update(ctx, func(p *PushRules) (bool, error) {
		if !p.RemoveKeyword(keyword) {
			return false, fmt.Errorf("keyword %q not found", keyword)
		}
		return true, nil
	})
}

func (s *Service) update(ctx context.Context, edit func(*PushRules) (bool, error)) error {
	rules, err := s.Load(ctx)
	if err != nil {
		return err
	}
	changed, err := edit(rules)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.data.SetAccountData(ctx, AccountDataType, rules); err != nil {
		return fmt.Errorf("save push rules: %w", err)
	}
	s.logger.Debug().Int("keywords", len(rules.Keywords())).Msg("push rules updated")
	return nil
}
