package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"papertrade/internal/ledger"
	"papertrade/internal/logger"
	"papertrade/internal/market"
	"papertrade/internal/store"
	"papertrade/internal/types"
)

// ErrValidation reports a malformed trade request. Surfaced as 400 before any
// side effect.
var ErrValidation = errors.New("invalid trade request")

// Request is one trade submission.
type Request struct {
	Owner      string
	Side       types.Side
	Symbol     string
	Quantity   float64
	OrderType  types.OrderType
	LimitPrice float64
	StopLoss   float64
	TakeProfit float64
}

// Result carries the settled order and the updated ledger back to the caller.
type Result struct {
	Order     *types.Order
	Portfolio *types.Portfolio
}

// Collaborators are notified after settlement, fire-and-forget.
type Collaborators struct {
	OnTrade []func(ctx context.Context, user types.User, order *types.Order)
}

// Engine settles trades. All work for one owner runs on that owner's serial
// lane, so two concurrent requests against the same ledger can never interleave
// between the sufficiency check and the write-back. The store's version column
// covers the multi-process case on top.
type Engine struct {
	store        store.Store
	market       *market.Service
	collab       Collaborators
	startingCash float64
	feeRate      float64
	historyLimit int

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// ErrShuttingDown reports a submission that arrived during Stop.
var ErrShuttingDown = errors.New("trader is shutting down")

// laneIdleTimeout bounds how long an empty lane keeps its goroutine. Reaped
// lanes are recreated on the owner's next submission.
const laneIdleTimeout = time.Minute

type job struct {
	ctx   context.Context
	run   func(ctx context.Context) (*Result, error)
	reply chan jobReply
}

type jobReply struct {
	res *Result
	err error
}

// lane is one owner's serial executor. pending counts jobs accepted by submit
// but not yet finished by the lane loop; it is guarded by Engine.mu and keeps
// the idle reaper from racing an in-flight send on jobs.
type lane struct {
	jobs    chan job
	pending int
}

// Options tunes the engine.
type Options struct {
	StartingCash float64
	FeeRate      float64
	HistoryLimit int
}

func NewEngine(st store.Store, mkt *market.Service, opts Options, collab Collaborators) *Engine {
	if opts.StartingCash <= 0 {
		opts.StartingCash = 100000
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = ledger.DefaultHistoryLimit
	}
	return &Engine{
		store:        st,
		market:       mkt,
		collab:       collab,
		startingCash: opts.StartingCash,
		feeRate:      opts.FeeRate,
		historyLimit: opts.HistoryLimit,
		lanes:        make(map[string]*lane),
		done:         make(chan struct{}),
	}
}

// Stop drains every lane. New submissions fail once Stop has begun. The jobs
// channels are never closed: shutdown is signalled through done, so a
// submitter parked on a send cannot panic.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.done)
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *Engine) submit(ctx context.Context, owner string, run func(ctx context.Context) (*Result, error)) (*Result, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrShuttingDown
	}
	l, ok := e.lanes[owner]
	if !ok {
		l = &lane{jobs: make(chan job, 16)}
		e.lanes[owner] = l
		e.wg.Add(1)
		go e.runLane(owner, l)
	}
	l.pending++
	e.mu.Unlock()

	j := job{ctx: ctx, run: run, reply: make(chan jobReply, 1)}
	select {
	case l.jobs <- j:
	case <-ctx.Done():
		e.release(l)
		return nil, ctx.Err()
	case <-e.done:
		e.release(l)
		return nil, ErrShuttingDown
	}
	select {
	case r := <-j.reply:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		// The lane may already be running this job; give its reply priority
		// over reporting shutdown.
		select {
		case r := <-j.reply:
			return r.res, r.err
		default:
			return nil, ErrShuttingDown
		}
	}
}

// release undoes a pending count for a job the lane will never see.
func (e *Engine) release(l *lane) {
	e.mu.Lock()
	l.pending--
	e.mu.Unlock()
}

func (e *Engine) runLane(owner string, l *lane) {
	defer e.wg.Done()
	idle := time.NewTimer(laneIdleTimeout)
	defer idle.Stop()
	for {
		select {
		case j := <-l.jobs:
			e.runJob(l, j)
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(laneIdleTimeout)
		case <-e.done:
			// Flush whatever is queued so no submitter waits forever.
			for {
				select {
				case j := <-l.jobs:
					j.reply <- jobReply{err: ErrShuttingDown}
					e.release(l)
				default:
					logger.Debugf("trader: lane for %s drained", owner)
					return
				}
			}
		case <-idle.C:
			// Reap only when no submitter holds a claim on this lane; a
			// claimed lane loops and waits for the send to land.
			e.mu.Lock()
			if l.pending == 0 {
				delete(e.lanes, owner)
				e.mu.Unlock()
				logger.Debugf("trader: idle lane for %s reaped", owner)
				return
			}
			e.mu.Unlock()
			idle.Reset(laneIdleTimeout)
		}
	}
}

func (e *Engine) runJob(l *lane, j job) {
	defer e.release(l)
	if err := j.ctx.Err(); err != nil {
		j.reply <- jobReply{err: err}
		return
	}
	res, err := j.run(j.ctx)
	j.reply <- jobReply{res: res, err: err}
}

// Execute settles one trade request: quote fetch, sufficiency checks, order
// creation and ledger mutation, all atomically against the store. Collaborator
// hooks fire asynchronously after commit.
func (e *Engine) Execute(ctx context.Context, user types.User, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	res, err := e.submit(ctx, req.Owner, func(ctx context.Context) (*Result, error) {
		return e.settle(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	for _, hook := range e.collab.OnTrade {
		go func(h func(context.Context, types.User, *types.Order)) {
			hctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			h(hctx, user, res.Order)
		}(hook)
	}
	return res, nil
}

func validate(req Request) error {
	if req.Owner == "" {
		return fmt.Errorf("%w: missing owner", ErrValidation)
	}
	if !req.Side.Valid() {
		return fmt.Errorf("%w: side must be buy or sell", ErrValidation)
	}
	if req.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrValidation)
	}
	if req.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	switch req.OrderType {
	case types.OrderTypeMarket, types.OrderTypeLimit:
	case "":
		return fmt.Errorf("%w: missing order type", ErrValidation)
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrValidation, req.OrderType)
	}
	return nil
}

func (e *Engine) settle(ctx context.Context, req Request) (*Result, error) {
	quote, err := e.market.Quote(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	fees := e.feeRate * req.Quantity * quote.Price

	order, portfolio, err := e.store.SettleTrade(ctx, req.Owner, e.startingCash, func(p *types.Portfolio) (*types.Order, error) {
		var profitLoss float64
		switch req.Side {
		case types.SideBuy:
			if err := ledger.ApplyBuy(p, req.Symbol, req.Quantity, quote.Price, fees, now); err != nil {
				return nil, err
			}
		case types.SideSell:
			pl, err := ledger.ApplySell(p, req.Symbol, req.Quantity, quote.Price, fees, now)
			if err != nil {
				return nil, err
			}
			profitLoss = pl
		}
		ledger.Revalue(p, map[string]float64{req.Symbol: quote.Price}, e.startingCash, e.historyLimit, now)
		return &types.Order{
			ID:          uuid.NewString(),
			Owner:       req.Owner,
			Side:        req.Side,
			Symbol:      req.Symbol,
			Quantity:    req.Quantity,
			Price:       quote.Price,
			OrderType:   req.OrderType,
			LimitPrice:  req.LimitPrice,
			StopLoss:    req.StopLoss,
			TakeProfit:  req.TakeProfit,
			Status:      types.OrderStatusCompleted,
			Fees:        fees,
			TotalAmount: ledger.Cost(req.Quantity, quote.Price, fees),
			ProfitLoss:  profitLoss,
			ExecutedAt:  now,
			CreatedAt:   now,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("trader: settled %s %g %s @ %.2f for %s", order.Side, order.Quantity, order.Symbol, order.Price, order.Owner)
	return &Result{Order: order, Portfolio: portfolio}, nil
}

// PortfolioView revalues the owner's ledger at current quotes and persists the
// resulting history point, mirroring settlement's step 6-7 on the read path.
func (e *Engine) PortfolioView(ctx context.Context, owner string) (*types.Portfolio, error) {
	res, err := e.submit(ctx, owner, func(ctx context.Context) (*Result, error) {
		current, err := e.store.Portfolio(ctx, owner, e.startingCash)
		if err != nil {
			return nil, err
		}
		symbols := make([]string, 0, len(current.Holdings))
		for _, h := range current.Holdings {
			symbols = append(symbols, h.Symbol)
		}
		prices := e.market.Prices(ctx, symbols)
		_, p, err := e.store.SettleTrade(ctx, owner, e.startingCash, func(p *types.Portfolio) (*types.Order, error) {
			ledger.Revalue(p, prices, e.startingCash, e.historyLimit, time.Now())
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		return &Result{Portfolio: p}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.Portfolio, nil
}

// History returns the most recent orders for owner, newest first.
func (e *Engine) History(ctx context.Context, owner string, limit int) ([]types.Order, error) {
	return e.store.Orders(ctx, owner, limit)
}
