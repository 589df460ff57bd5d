package intake

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/eligibility"
	"github.com/spigell/broker-genie/internal/filtering"
	"github.com/spigell/broker-genie/internal/logger"
	"github.com/spigell/broker-genie/internal/plans"
)

var ErrInvalidView = errors.New("invalid view options")

// View holds presentation options applied after eligibility matching.
// Without Sort the plans keep catalog order.
type View struct {
	Category string
	Search   string
	Sort     string
	Desc     bool
}

type Result struct {
	Client    *clients.Client    `json:"client"`
	Plans     []*plans.Plan      `json:"plans"`
	Saved     bool               `json:"saved"`
	SaveError string             `json:"save_error,omitempty"`
	Filters   []filtering.Status `json:"-"`
}

type Service struct {
	catalog  catalog.Source
	clients  clients.Repository
	activity activity.Recorder
	logger   *zap.Logger
}

func New(src catalog.Source, repo clients.Repository, rec activity.Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: src, clients: repo, activity: rec, logger: logger}
}

// Browse lists the catalog with the view applied and no eligibility matching.
func (s *Service) Browse(ctx context.Context, view View) (*plans.Plans, error) {
	sortField, err := parseView(view)
	if err != nil {
		return nil, err
	}

	all, err := s.catalog.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	listed, err := filtering.New([]filtering.Filter{
		filtering.NewCategory(view.Category),
		filtering.NewSearch(view.Search),
	}, s.logger).RunFilters(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}

	if sortField != "" {
		listed.Sort(sortField, view.Desc)
	}
	return listed, nil
}

// Match builds the client from the submission and returns the plans it qualifies for. Nothing is persisted.
func (s *Service) Match(ctx context.Context, userID string, sub *clients.Submission, view View) (*Result, error) {
	res, err := s.match(ctx, userID, sub, view)
	if err != nil {
		return nil, err
	}

	s.record(ctx, userID, activity.TypePlanMatch, map[string]any{
		"client_name": res.Client.FullName,
		"plans":       len(res.Plans),
	})
	return res, nil
}

func (s *Service) match(ctx context.Context, userID string, sub *clients.Submission, view View) (*Result, error) {
	sortField, err := parseView(view)
	if err != nil {
		return nil, err
	}

	c, err := clients.Build(userID, sub)
	if err != nil {
		return nil, err
	}

	all, err := s.catalog.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	log := logger.WithFields(s.logger, logger.ClientFields(userID, c.ID, c.State)...)

	pipeline := filtering.New([]filtering.Filter{
		filtering.NewEligibility(c.Profile(), log),
		filtering.NewCategory(view.Category),
		filtering.NewSearch(view.Search),
	}, log)

	matched, err := pipeline.RunFilters(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("matching plans: %w", err)
	}

	if sortField != "" {
		matched.Sort(sortField, view.Desc)
	}

	log.Info("matched plans", zap.Int("catalog", all.Len()), zap.Int("eligible", matched.Len()))

	return &Result{Client: c, Plans: matched.Items, Filters: pipeline.Describe()}, nil
}

// Save persists the client with its dependents.
func (s *Service) Save(ctx context.Context, c *clients.Client) error {
	if s.clients == nil {
		return errors.New("client storage is not configured")
	}
	if err := s.clients.Create(ctx, c); err != nil {
		return fmt.Errorf("saving client: %w", err)
	}

	s.record(ctx, c.UserID, activity.TypeClientIntake, map[string]any{"client_id": c.ID})
	return nil
}

// Submit matches and then saves. Only the intake is recorded as activity.
// A failed save is reported in the result and does not discard the match.
func (s *Service) Submit(ctx context.Context, userID string, sub *clients.Submission, view View) (*Result, error) {
	res, err := s.match(ctx, userID, sub, view)
	if err != nil {
		return nil, err
	}

	if err := s.Save(ctx, res.Client); err != nil {
		s.logger.Error("client was matched but not saved",
			append(logger.ClientFields(userID, res.Client.ID, res.Client.State), zap.Error(err))...,
		)
		res.SaveError = err.Error()
		return res, nil
	}

	res.Saved = true
	return res, nil
}

// Explain returns the verdict for every catalog plan, including the reason a plan was excluded.
func (s *Service) Explain(ctx context.Context, profile *clients.Profile) ([]eligibility.Verdict, error) {
	all, err := s.catalog.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return eligibility.Explain(profile, all.Items), nil
}

func parseView(view View) (plans.SortField, error) {
	if view.Sort == "" {
		return "", nil
	}
	field, err := plans.ParseSortField(view.Sort)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidView, err)
	}
	return field, nil
}

func (s *Service) record(ctx context.Context, userID string, t activity.Type, details map[string]any) {
	if userID == "" || s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, activity.NewEntry(userID, t, details)); err != nil {
		s.logger.Warn("recording activity", zap.String("activity_type", string(t)), zap.Error(err))
	}
}
