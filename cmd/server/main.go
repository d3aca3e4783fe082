package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"clubdomains/internal/admin"
	"clubdomains/internal/club"
	clubhandler "clubdomains/internal/club/handler"
	jwttoken "clubdomains/internal/jwt_token"
	"clubdomains/internal/membership/aggregator"
	"clubdomains/internal/membership/crosschain"
	memberhandler "clubdomains/internal/membership/handler"
	membermetrics "clubdomains/internal/membership/metrics"
	"clubdomains/internal/membership/pass"
	"clubdomains/internal/membership/subscription"
	"clubdomains/internal/membership/tokengate"
	"clubdomains/internal/oracle"
	"clubdomains/internal/platform/config"
	"clubdomains/internal/platform/httpserver"
	"clubdomains/internal/platform/logger"
	"clubdomains/internal/platform/metrics"
	"clubdomains/internal/platform/pause"
	"clubdomains/internal/platform/redis"
	"clubdomains/internal/ratelimit"
	"clubdomains/internal/registry"
	reghandler "clubdomains/internal/registry/handler"
	regmetrics "clubdomains/internal/registry/metrics"
	regservice "clubdomains/internal/registry/service"
	regstore "clubdomains/internal/registry/store"
	httptransport "clubdomains/internal/transport/http"
	id "clubdomains/pkg/domain"
	"clubdomains/pkg/platform/audit"
	auditpublisher "clubdomains/pkg/platform/audit/publisher"
	auditmemory "clubdomains/pkg/platform/audit/store/memory"
	auditpostgres "clubdomains/pkg/platform/audit/store/postgres"
	"clubdomains/pkg/platform/circuit"
)

const (
	clubSweepInterval = 5 * time.Minute
	autoRenewInterval = time.Hour
)

// main wires dependencies, mounts the router and runs the server with its
// background keepers until SIGINT/SIGTERM.
func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// ledger is a registry store that can also run transactions.
type ledger interface {
	registry.Store
	registry.Tx
}

type migrator interface {
	Migrate(ctx context.Context) error
}

type infra struct {
	db      *sql.DB
	redis   *redis.Client
	kafka   *kgo.Client
	results *kgo.Client
}

func (i *infra) close() {
	if i.results != nil {
		i.results.Close()
	}
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	owner, err := parseOptionalAddress(cfg.Server.OwnerAddress)
	if err != nil {
		return fmt.Errorf("OWNER_ADDRESS: %w", err)
	}
	if owner.IsZero() {
		log.Warn("no contract owner configured; owner-only operations are disabled")
	}

	deps := &infra{}
	defer deps.close()

	// Registry ledger, club and membership ledgers and the audit trail share
	// the database when one is configured.
	var (
		regStore  ledger
		auditLog  audit.Store        = auditmemory.NewInMemoryStore()
		clubStore club.Store         = club.NewMemoryStore()
		passStore pass.Store         = pass.NewMemoryStore()
		subStore  subscription.Store = subscription.NewMemoryStore()
		gateStore tokengate.Store    = tokengate.NewMemoryStore()
	)
	if cfg.Database.URL != "" {
		deps.db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		if err := deps.db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		pg := regstore.NewPostgres(deps.db)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		pgAudit := auditpostgres.New(deps.db)
		if err := pgAudit.Migrate(ctx); err != nil {
			return err
		}
		pgClubs := club.NewPostgresStore(deps.db)
		pgPasses := pass.NewPostgresStore(deps.db)
		pgSubs := subscription.NewPostgresStore(deps.db)
		pgGates := tokengate.NewPostgresStore(deps.db)
		for _, m := range []migrator{pgClubs, pgPasses, pgSubs, pgGates} {
			if err := m.Migrate(ctx); err != nil {
				return err
			}
		}
		regStore, auditLog = pg, pgAudit
		clubStore, passStore, subStore, gateStore = pgClubs, pgPasses, pgSubs, pgGates
		log.Info("using postgres stores")
	} else {
		regStore = regstore.NewMemory()
		log.Info("using in-memory stores")
	}
	auditPub := auditpublisher.NewPublisher(auditLog, auditpublisher.WithAsyncBuffer(1024), auditpublisher.WithLogger(log))
	defer auditPub.Close()

	deps.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	var (
		crossStore crosschain.Store = crosschain.NewMemoryStore()
		buckets    ratelimit.Bucket = ratelimit.NewMemoryBucket()
	)
	if deps.redis != nil {
		crossStore = crosschain.NewRedisStore(deps.redis.Client)
		buckets = ratelimit.NewRedisBucket(deps.redis.Client)
		log.Info("using redis cross-chain store and rate limit buckets")
	}
	limiter := ratelimit.New(buckets, log,
		ratelimit.WithFallback(ratelimit.NewMemoryBucket()),
		ratelimit.WithDisabled(cfg.RateLimit.Disabled),
		ratelimit.WithLimits(map[ratelimit.Class]ratelimit.Limit{
			ratelimit.ClassRead:  {Requests: cfg.RateLimit.Reads, Window: cfg.RateLimit.Window},
			ratelimit.ClassWrite: {Requests: cfg.RateLimit.Writes, Window: cfg.RateLimit.Window},
		}),
	)

	// Verification requests go to Kafka when brokers are configured, falling
	// back to the polled in-process log while the bus is unavailable.
	oracleMetrics := oracle.NewMetrics()
	requestLog := oracle.NewLog()
	var publisher oracle.Publisher = requestLog
	if len(cfg.Kafka.Brokers) > 0 {
		deps.kafka, err = kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return fmt.Errorf("kafka client: %w", err)
		}
		if err := oracle.EnsureTopics(ctx, deps.kafka, cfg.Kafka.RequestTopic, cfg.Kafka.ResultTopic); err != nil {
			return err
		}
		primary, err := oracle.NewKafkaPublisher(deps.kafka, cfg.Kafka.RequestTopic)
		if err != nil {
			return err
		}
		publisher, err = oracle.NewFallbackPublisher(primary, requestLog, circuit.New("oracle-bus"),
			oracle.WithFallbackLogger(log), oracle.WithFallbackMetrics(oracleMetrics))
		if err != nil {
			return err
		}
		log.Info("publishing verification requests to kafka", "topic", cfg.Kafka.RequestTopic)
	}

	oracles, err := parseAddresses(cfg.Membership.Oracles)
	if err != nil {
		return fmt.Errorf("ORACLE_ADDRESSES: %w", err)
	}

	switches := map[string]*pause.Switch{}
	sw := func(name string) *pause.Switch {
		s := pause.New(name, owner)
		switches[name] = s
		return s
	}

	registrySvc, err := regservice.New(regStore, regStore, cfg.Registry, sw("registry"),
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(auditPub),
		regservice.WithMetrics(regmetrics.New()),
	)
	if err != nil {
		return err
	}

	memberMetrics := membermetrics.New()
	passes, err := pass.New(passStore, sw("pass"),
		pass.WithLogger(log), pass.WithAuditPublisher(auditPub), pass.WithMetrics(memberMetrics))
	if err != nil {
		return err
	}
	subs, err := subscription.New(subStore, sw("subscription"), cfg.Membership.PlatformFeeBps,
		subscription.WithLogger(log), subscription.WithAuditPublisher(auditPub), subscription.WithMetrics(memberMetrics))
	if err != nil {
		return err
	}
	gates, err := tokengate.New(gateStore, tokengate.NewLedger(), sw("tokengate"),
		tokengate.WithLogger(log), tokengate.WithAuditPublisher(auditPub))
	if err != nil {
		return err
	}
	cross, err := crosschain.New(crossStore, gates, publisher, sw("crosschain"), cfg.Membership.VerificationFee,
		crosschain.WithLogger(log),
		crosschain.WithAuditPublisher(auditPub),
		crosschain.WithMetrics(memberMetrics),
		crosschain.WithOracles(oracles...),
	)
	if err != nil {
		return err
	}
	members, err := aggregator.New(passes, subs, gates, cross,
		aggregator.WithLogger(log), aggregator.WithMetrics(memberMetrics))
	if err != nil {
		return err
	}

	clubs, err := club.New(clubStore, registrySvc, passes, subs, gates, cfg.Club, sw("club"),
		club.WithLogger(log), club.WithAuditPublisher(auditPub))
	if err != nil {
		return err
	}
	passes.SetRoster(clubs)
	subs.SetRoster(clubs)
	registrySvc.AddListener(clubs)

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	adminHandler := admin.New(auditLog, map[string]admin.Job{
		"club-expiry": clubs.SweepExpired,
		"auto-renew":  registrySvc.RunAutoRenewals,
	}, pauseList(switches), log, admin.WithTokenIssuer(jwt))

	health := []httptransport.HealthCheck{}
	if deps.db != nil {
		health = append(health, httptransport.HealthCheck{Name: "postgres", Check: deps.db.PingContext})
	}
	if deps.redis != nil {
		health = append(health, httptransport.HealthCheck{Name: "redis", Check: deps.redis.Health})
	}
	if deps.kafka != nil {
		health = append(health, httptransport.HealthCheck{Name: "kafka", Check: deps.kafka.Ping})
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Metrics:    metrics.New(),
		Callers:    jwt,
		AdminToken: cfg.Server.AdminToken,
		RateLimit:  limiter,
		Handlers: []any{
			reghandler.New(registrySvc, log),
			clubhandler.New(clubs, log),
			memberhandler.New(members, passes, subs, gates, cross, log),
			oracle.NewHandler(requestLog, cross, log),
			adminHandler,
		},
		Health:         health,
		MetricsHandler: promhttp.Handler(),
	})
	srv := httpserver.New(cfg.Server.Addr, otelhttp.NewHandler(router, "clubdomains"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return httpserver.Run(ctx, srv, log) })
	g.Go(func() error { return ignoreCancel(clubs.StartExpirySweep(ctx, clubSweepInterval)) })
	g.Go(func() error { return ignoreCancel(registrySvc.StartAutoRenewals(ctx, autoRenewInterval)) })

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.OracleAddress != "" {
		oracleID, err := id.ParseAddress(cfg.Kafka.OracleAddress)
		if err != nil {
			return fmt.Errorf("ORACLE_SUBMITTER_ADDRESS: %w", err)
		}
		deps.results, err = kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.ConsumerGroup(cfg.Kafka.ConsumerGroup),
			kgo.ConsumeTopics(cfg.Kafka.ResultTopic),
			kgo.DisableAutoCommit(),
		)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		fulfiller, err := oracle.NewFulfiller(deps.results, cross, oracleID,
			oracle.WithFulfillerLogger(log), oracle.WithFulfillerMetrics(oracleMetrics))
		if err != nil {
			return err
		}
		g.Go(func() error { return ignoreCancel(fulfiller.Run(ctx)) })
		log.Info("oracle fulfiller started", "topic", cfg.Kafka.ResultTopic, "oracle", oracleID.String())
	}

	return g.Wait()
}

func parseOptionalAddress(raw string) (id.Address, error) {
	if raw == "" {
		return id.ZeroAddress, nil
	}
	return id.ParseAddress(raw)
}

func parseAddresses(raw []string) ([]id.Address, error) {
	out := make([]id.Address, 0, len(raw))
	for _, r := range raw {
		addr, err := id.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", r, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

func pauseList(m map[string]*pause.Switch) []*pause.Switch {
	out := make([]*pause.Switch, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}

func ignoreCancel(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
