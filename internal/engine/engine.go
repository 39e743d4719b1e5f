package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// Gateway is the record store the composer reads from and writes to.
//
// Point lookups return ir.ErrNoRecord (possibly wrapped) when nothing
// matches. Multi-id lookups return only the records that exist, inactive
// ones included; callers decide what "missing" means. List methods return
// empty slices, never nil.
//
// Batch writes:
//   - ir.ContinueOnError executes every item and reports one outcome per
//     item; the error return is reserved for failures that stopped the
//     batch as a whole.
//   - ir.FailFast stops at the first failing item, keeps no partial state,
//     and returns a non-nil error.
type Gateway interface {
	GetProject(ctx context.Context, projectID string) (ir.Project, error)
	ListTemplateLines(ctx context.Context, templateID string) ([]ir.ProductTemplateLine, error)
	ListConfigurationQuestions(ctx context.Context, productID string) ([]ir.ConfigurationQuestion, error)
	ListAnswerSelections(ctx context.Context, projectID string) ([]ir.ProjectAnswerSelection, error)
	ListDependencyRules(ctx context.Context, sourceQuestionIDs []string) ([]ir.DependencyRule, error)
	GetModules(ctx context.Context, moduleIDs []string) ([]ir.Module, error)
	GetQuestionBanks(ctx context.Context, ids []string) ([]ir.QuestionBank, error)
	ListQuestionnaireLines(ctx context.Context, projectID string, scope ir.LineScope) ([]ir.QuestionnaireLine, error)
	CreateLines(ctx context.Context, lines []ir.QuestionnaireLine, mode ir.BatchMode) ([]ir.ItemOutcome, error)
	UpdateLines(ctx context.Context, updates []ir.LineUpdate, mode ir.BatchMode) ([]ir.ItemOutcome, error)
}

// Composer runs the questionnaire composition operations against a Gateway.
//
// Every operation runs synchronously on the caller's goroutine. The
// composer holds no locks; two concurrent requests against the same
// project can compute the same displacement and race.
type Composer struct {
	gw       Gateway
	expander *Expander
	ids      IDGenerator
	logger   *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the structured diagnostics sink.
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIDGenerator sets the generator for new line ids.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Composer) {
		if g != nil {
			c.ids = g
		}
	}
}

// New creates a Composer over the given gateway.
func New(gw Gateway, opts ...Option) *Composer {
	c := &Composer{
		gw:     gw,
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.expander = NewExpander(gw)
	return c
}

// loadProject fetches a project, mapping a missing record to ProjectNotFound.
func (c *Composer) loadProject(ctx context.Context, projectID string) (ir.Project, error) {
	p, err := c.gw.GetProject(ctx, projectID)
	if errors.Is(err, ir.ErrNoRecord) {
		return ir.Project{}, &Error{
			Code:     ErrCodeNotFound,
			Reason:   ReasonProjectNotFound,
			Messages: []string{fmt.Sprintf("Project '%s' not found.", projectID)},
			Err:      err,
		}
	}
	if err != nil {
		return ir.Project{}, fmt.Errorf("load project %s: %w", projectID, err)
	}
	return p, nil
}
