package session

import (
	"context"
	"sync"

	"github.com/ppiankov/distortia/internal/catalog"
	"github.com/ppiankov/distortia/internal/model"
	"github.com/ppiankov/distortia/internal/reconcile"
)

// Analyzer runs one analysis
type Analyzer interface {
	Validate(text string) error
	Analyze(ctx context.Context, text string) (*model.AnalysisResult, error)
}

// Sender delivers one feedback record
type Sender interface {
	Send(ctx context.Context, record model.FeedbackRecord) error
}

// Snapshot is a copy of the machine's observable state
type Snapshot struct {
	State         State
	View          *reconcile.View
	Panel         *reconcile.Info
	Affordance    Affordance
	Analyzing     bool
	Error         string
	FeedbackError string
}

// Controller runs analysis and feedback requests in the background and
// feeds their outcomes back through a Loop. The two kinds of request are
// independent of each other.
type Controller struct {
	loop     *Loop
	analyzer Analyzer
	sender   Sender
	catalog  *catalog.Catalog
	wg       sync.WaitGroup
}

// NewController creates a controller. Run the loop before using it.
func NewController(loop *Loop, analyzer Analyzer, sender Sender, cat *catalog.Catalog) *Controller {
	if cat == nil {
		cat = catalog.Default()
	}
	return &Controller{loop: loop, analyzer: analyzer, sender: sender, catalog: cat}
}

// Analyze validates text and starts an analysis. Invalid input fills the
// error slot and starts nothing.
func (c *Controller) Analyze(ctx context.Context, text string) error {
	if err := c.analyzer.Validate(text); err != nil {
		_ = c.loop.Do(ctx, func(m *Machine) { m.Reject(err) })
		return err
	}

	var ticket AnalysisTicket
	if err := c.loop.Do(ctx, func(m *Machine) { ticket = m.BeginAnalysis() }); err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result, err := c.analyzer.Analyze(ctx, text)
		// The outcome must reach the machine even when ctx is done, or the
		// loading state is never cleared
		_ = c.loop.Send(context.WithoutCancel(ctx), func(m *Machine) {
			if err != nil {
				m.AnalysisFailed(ticket, err)
				return
			}
			m.AnalysisSucceeded(ticket, reconcile.Reconcile(result, c.catalog))
		})
	}()
	return nil
}

// Accept submits "prediction is correct" for unit i
func (c *Controller) Accept(ctx context.Context, i int) error {
	return c.submit(ctx, i, true, nil)
}

// Correct submits label as the right answer for unit i
func (c *Controller) Correct(ctx context.Context, i int, label model.Label) error {
	return c.submit(ctx, i, false, &label)
}

func (c *Controller) submit(ctx context.Context, i int, accepted bool, correction *model.Label) error {
	var ticket FeedbackTicket
	var refused error
	if err := c.loop.Do(ctx, func(m *Machine) {
		ticket, refused = m.BeginFeedback(i, accepted, correction, c.catalog)
	}); err != nil {
		return err
	}
	if refused != nil {
		return refused
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.sender.Send(ctx, ticket.Record)
		_ = c.loop.Send(context.WithoutCancel(ctx), func(m *Machine) {
			if err != nil {
				m.FeedbackFailed(ticket, err)
				return
			}
			m.FeedbackSucceeded(ticket)
		})
	}()
	return nil
}

// PointerEnter hovers unit i
func (c *Controller) PointerEnter(ctx context.Context, i int) error {
	return c.loop.Do(ctx, func(m *Machine) { m.PointerEnter(i) })
}

// PointerLeave leaves unit i
func (c *Controller) PointerLeave(ctx context.Context, i int) error {
	return c.loop.Do(ctx, func(m *Machine) { m.PointerLeave(i) })
}

// Click toggles the selection of unit i
func (c *Controller) Click(ctx context.Context, i int) error {
	return c.loop.Do(ctx, func(m *Machine) { m.Click(i) })
}

// Wait blocks until every background request has reported back
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Snapshot copies the current state
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.loop.Do(ctx, func(m *Machine) {
		s = Snapshot{
			State:         m.State(),
			View:          m.View(),
			Affordance:    m.Affordance(),
			Analyzing:     m.Analyzing(),
			Error:         m.Error(),
			FeedbackError: m.FeedbackError(),
		}
		if info, ok := m.Panel(); ok {
			s.Panel = &info
		}
	})
	return s, err
}
