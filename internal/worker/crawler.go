// Package worker owns the crawler daemon's loop lifecycle: claiming jobs off
// the store, gating authority-service concurrency and rate, bounding feature
// extraction concurrency, and the catalog feed that keeps the link queue
// topped up. The pure per-job logic lives in internal/core/services; this
// package is the plumbing around it.
package worker

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/andrewbelles/ml-shuffle/internal/core/domain"
	"github.com/andrewbelles/ml-shuffle/internal/core/ports"
	"github.com/andrewbelles/ml-shuffle/internal/core/services"
	"github.com/andrewbelles/ml-shuffle/internal/metrics"
	"github.com/andrewbelles/ml-shuffle/internal/rategate"
)

// Limits bounds pipeline concurrency and pacing.
type Limits struct {
	AuthorityConcurrency int
	AuthorityInterval    time.Duration
	FeatureConcurrency   int
	QueuePoll            time.Duration
	FeedMinPendingLinks  int64
	FeedSearchPageSize   int
}

// Crawler runs the feed/link/features loops until its context is canceled.
type Crawler struct {
	store ports.Store
	link  *services.LinkResolver
	feat  *services.FeatureExtractor
	feed  *services.Feeder
	token ports.CatalogClient

	limits  Limits
	log     *zap.Logger
	metrics *metrics.Collector

	authoritySlots chan struct{}
	featureSlots   chan struct{}
	authorityRate  *rategate.Gate
}

// New builds a Crawler. token is the same catalog client the Feeder uses,
// kept separately here because token refresh is feed-loop lifecycle, not
// ingestion logic. collector may be nil, in which case job metrics are not
// recorded.
func New(store ports.Store, link *services.LinkResolver, feat *services.FeatureExtractor, feed *services.Feeder, token ports.CatalogClient, limits Limits, log *zap.Logger, collector *metrics.Collector) *Crawler {
	if limits.AuthorityConcurrency < 1 {
		limits.AuthorityConcurrency = 1
	}
	if limits.FeatureConcurrency < 1 {
		limits.FeatureConcurrency = 1
	}
	return &Crawler{
		store:          store,
		link:           link,
		feat:           feat,
		feed:           feed,
		token:          token,
		limits:         limits,
		log:            log,
		metrics:        collector,
		authoritySlots: make(chan struct{}, limits.AuthorityConcurrency),
		featureSlots:   make(chan struct{}, limits.FeatureConcurrency),
		authorityRate:  rategate.New(limits.AuthorityInterval),
	}
}

// Run starts the feed, link, and features loops, and blocks until ctx is
// canceled (e.g. by signal.NotifyContext in main) or one of the loops exits.
func (c *Crawler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.log.Info("crawler.start",
		zap.Int("authority_concurrency", c.limits.AuthorityConcurrency),
		zap.Int("feature_concurrency", c.limits.FeatureConcurrency))

	done := make(chan struct{}, 3)
	go func() { c.linkLoop(ctx); done <- struct{}{} }()
	go func() { c.featuresLoop(ctx); done <- struct{}{} }()
	go func() { c.feedLoop(ctx); done <- struct{}{} }()

	select {
	case <-ctx.Done():
	case <-done:
		cancel()
	}
	<-done
	<-done
	c.log.Info("crawler.exit")
	return nil
}

func (c *Crawler) linkLoop(ctx context.Context) {
	c.log.Info("crawler.link.loop.start")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("crawler.link.loop.stop")
			return
		default:
		}

		if err := c.authorityRate.Wait(ctx); err != nil {
			c.log.Info("crawler.link.loop.stop")
			return
		}

		job, err := c.store.ClaimOneJob(ctx, domain.JobLink)
		if err != nil {
			c.log.Error("claim_one_job(link) failed", zap.Error(err))
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}
		if job == nil {
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}

		select {
		case c.authoritySlots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		c.recordClaim(string(domain.JobLink))
		start := time.Now()
		func() {
			defer func() { <-c.authoritySlots }()
			if err := c.link.Resolve(ctx, job); err != nil {
				c.recordFailed(string(domain.JobLink))
				c.log.Error("link job failed", zap.Int64("job_id", job.ID), zap.Error(err))
				return
			}
			c.recordCompleted(string(domain.JobLink), time.Since(start).Seconds())
		}()
	}
}

func (c *Crawler) featuresLoop(ctx context.Context) {
	c.log.Info("crawler.features.loop.start")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("crawler.features.loop.stop")
			return
		default:
		}

		job, err := c.store.ClaimOneJob(ctx, domain.JobFeatures)
		if err != nil {
			c.log.Error("claim_one_job(features) failed", zap.Error(err))
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}
		if job == nil {
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}

		select {
		case c.featureSlots <- struct{}{}:
		case <-ctx.Done():
			return
		}
		c.recordClaim(string(domain.JobFeatures))
		start := time.Now()
		func() {
			defer func() { <-c.featureSlots }()
			if err := c.feat.Extract(ctx, job); err != nil {
				c.recordFailed(string(domain.JobFeatures))
				c.log.Error("features job failed", zap.Int64("job_id", job.ID), zap.Error(err))
				return
			}
			c.recordCompleted(string(domain.JobFeatures), time.Since(start).Seconds())
		}()
	}
}

func (c *Crawler) feedLoop(ctx context.Context) {
	c.log.Info("crawler.feed.loop.start")
	var bearer string
	var expiry time.Time

	for {
		select {
		case <-ctx.Done():
			c.log.Info("crawler.feed.loop.stop")
			return
		default:
		}

		pending, err := c.store.CountJobs(ctx, domain.JobLink, domain.JobPending)
		if err != nil {
			c.log.Error("count_jobs failed", zap.Error(err))
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}
		if c.metrics != nil {
			c.metrics.SetPending(string(domain.JobLink), pending)
		}
		if pending >= c.limits.FeedMinPendingLinks {
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}

		if bearer == "" || time.Now().After(expiry) {
			tok, expiresIn, err := c.token.Token(ctx)
			if err != nil {
				c.log.Error("catalog token request failed", zap.Error(err))
				bearer = ""
				sleepOrDone(ctx, c.limits.QueuePoll)
				continue
			}
			bearer = tok
			expiry = time.Now().Add(time.Duration(expiresIn-60) * time.Second)
		}

		year := 1950 + rand.Intn(76)
		offset := rand.Intn(1000)
		query := "year:" + strconv.Itoa(year)

		ids, err := c.feed.Search(ctx, bearer, query, c.limits.FeedSearchPageSize, offset)
		if err != nil {
			c.log.Warn("catalog search failed", zap.Error(err))
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}
		if len(ids) == 0 {
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}

		ensured, err := c.feed.Ingest(ctx, bearer, ids)
		if err != nil {
			c.log.Warn("catalog ingest failed", zap.Error(err))
			sleepOrDone(ctx, c.limits.QueuePoll)
			continue
		}
		if ensured > 0 {
			c.log.Debug("feed.added", zap.Int("count", ensured))
		}
		sleepOrDone(ctx, c.limits.QueuePoll)
	}
}

func (c *Crawler) recordClaim(kind string) {
	if c.metrics != nil {
		c.metrics.Claimed(kind)
	}
}

func (c *Crawler) recordCompleted(kind string, latencySeconds float64) {
	if c.metrics != nil {
		c.metrics.Completed(kind, latencySeconds)
	}
}

func (c *Crawler) recordFailed(kind string) {
	if c.metrics != nil {
		c.metrics.Failed(kind)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
