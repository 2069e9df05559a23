package feed

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/tradefeed/internal/observability"
	"github.com/danmuck/tradefeed/internal/protocol/frame"
	"github.com/danmuck/tradefeed/internal/protocol/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Config is the client side of one run.
type Config struct {
	Host    string
	Port    int
	Session session.Config
	// ResendInterval spaces successive resend connections. Zero sends them back to back.
	ResendInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:    "127.0.0.1",
		Port:    3000,
		Session: session.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return ErrHostRequired
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Client struct {
	cfg     Config
	dialer  session.Dialer
	limiter *rate.Limiter
}

// NewClient validates cfg. A nil dialer selects plain TCP with cfg.Session timeouts.
func NewClient(cfg Config, dialer session.Dialer) (*Client, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Session = cfg.Session.WithDefaults()
	if dialer == nil {
		dialer = session.NewTCPDialer(cfg.Session)
	}
	c := &Client{cfg: cfg, dialer: dialer}
	if cfg.ResendInterval > 0 {
		c.limiter = rate.NewLimiter(rate.Every(cfg.ResendInterval), 1)
	}
	return c, nil
}

// Result is the outcome of one run.
type Result struct {
	Report
	Failures []*ResendError
	Duration time.Duration
}

// Run fetches the stream, resends what is missing and sequences the merged set.
// The returned error is non-nil only when the stream phase failed; the Result
// then carries the decoded prefix for diagnostics.
func (c *Client) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	stream, err := c.StreamAll(ctx)
	if err != nil {
		log.Error().Err(err).Str("addr", c.cfg.Addr()).Int("decoded", len(stream)).Msg("stream fetch failed")
		return Result{Report: Sequence(stream, nil), Duration: time.Since(start)}, err
	}

	recovered, failures := c.ResolveGaps(ctx, stream)
	report := Sequence(stream, recovered)
	for _, g := range report.Gaps {
		if g.First == g.Last {
			log.Warn().Int32("sequence", g.First).Msg("persistent gap")
			continue
		}
		log.Warn().Int32("first", g.First).Int32("last", g.Last).Int64("count", g.Len()).Msg("persistent gap")
	}

	res := Result{Report: report, Failures: failures, Duration: time.Since(start)}
	observability.RecordRun(report.MissingCount(), res.Duration)
	log.Info().
		Int("streamed", len(stream)).
		Int("recovered", len(recovered)).
		Int64("missing", report.MissingCount()).
		Int32("max_sequence", report.MaxSequence).
		Dur("duration", res.Duration).
		Msg("run finished")
	return res, nil
}

// exchange opens a channel, sends req and hands the channel to fn. The channel
// is closed on every path, and closed early when ctx ends so a blocked read
// returns; the error is then ctx.Err().
func (c *Client) exchange(ctx context.Context, req frame.Request, fn func(session.Channel) error) error {
	ch, err := c.dialer.Open(ctx, c.cfg.Host, c.cfg.Port)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ConnectionError{Addr: c.cfg.Addr(), Op: "open", Err: err}
	}
	stop := context.AfterFunc(ctx, func() { _ = ch.Close() })
	defer func() {
		stop()
		if err := ch.Close(); err != nil {
			log.Debug().Err(err).Str("addr", c.cfg.Addr()).Msg("channel close")
		}
	}()

	if err := ch.Write(req.Bytes()); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &ConnectionError{Addr: c.cfg.Addr(), Op: "send", Err: err}
	}
	if err := fn(ch); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
