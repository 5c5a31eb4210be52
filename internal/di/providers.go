package di

import (
	"context"
	"fmt"
	"time"

	"X402/internal/domain/models"
	drepo "X402/internal/domain/repository"
	dservice "X402/internal/domain/service"
	"X402/internal/handler/api"
	internalrepo "X402/internal/repository"
	"X402/internal/service/ratelimit"
	"X402/internal/services/classifier"
	"X402/internal/services/market"
	"X402/internal/services/news"
	"X402/internal/services/oracle"
	"X402/internal/services/payment"
	"X402/internal/settlement"
	"X402/internal/usecase"
	"X402/pkg/cache"
	"X402/pkg/chain"
	pkgch "X402/pkg/clickhouse"
	"X402/pkg/config"
	xhttp "X402/pkg/http"
	pkgkafka "X402/pkg/kafka"
	applogger "X402/pkg/logger"
	"X402/pkg/metrics"
	"X402/pkg/server"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
)

// ProvideLogger creates the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry shared by the domain
// recorder, the HTTP middleware and the Kafka producer.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config, reg *prometheus.Registry) drepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New(reg)
}

// ProvideRedis connects to Redis when the cache or the audit log uses it.
// It returns nil otherwise.
func ProvideRedis(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if cfg.Cache.Backend != "redis" && cfg.Audit.Backend != "redis" {
		return nil, func() {}, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(20, 2, 4*time.Second),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideCache picks the collaborator cache backend.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) (cache.Service, func()) {
	if cfg.Cache.Backend == "redis" {
		return rc, func() {}
	}
	mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxSize))
	return mc, func() { _ = mc.Close() }
}

// ProvideLogStore picks the audit log backend.
func ProvideLogStore(cfg *config.Config, rc *cache.RedisCache) drepo.LogStore {
	if cfg.Audit.Backend == "redis" {
		return internalrepo.NewRedisLogStore(rc.Client(), cfg.Audit.RedisKey, cfg.Audit.Capacity)
	}
	return internalrepo.NewMemoryLogStore(cfg.Audit.Capacity)
}

// ProvideLedger loads the persisted ledger. A corrupt file is fatal.
func ProvideLedger(cfg *config.Config, m drepo.Metrics, l *applogger.Logger) (*usecase.Ledger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ledger, err := usecase.NewLedger(ctx, internalrepo.NewFileLedgerStore(cfg.Ledger.Path), m, l)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", cfg.Ledger.Path, err)
	}
	return ledger, nil
}

func ProvideSettings(cfg *config.Config) (*usecase.Settings, error) {
	return usecase.NewSettings(cfg.Engine.Assets, cfg.Engine.DefaultAsset, cfg.Engine.RiskWeight)
}

func ProvideMarket(cfg *config.Config) dservice.MarketSnapshotBuilder {
	return market.NewYahooBuilder(cfg.Market.BaseURL, cfg.Market.Interval, cfg.Market.Range, cfg.Market.Timeout)
}

func ProvideFleet(cfg *config.Config, l *applogger.Logger) dservice.ClassifierFleet {
	fleet := classifier.NewHTTPFleet(cfg.Classifier.ServiceURL, cfg.Classifier.Assets, cfg.Classifier.Timeout)
	l.Info("classifier fleet ready", applogger.Strings("assets", fleet.Assets()))
	return fleet
}

func ProvideNews(cfg *config.Config, c cache.Service, l *applogger.Logger) dservice.NewsSource {
	return news.NewRSSDigest(cfg.News.FeedURL, cfg.News.Headlines, cfg.News.Timeout, cfg.News.CacheTTL, c, l)
}

func ProvideOracle(cfg *config.Config, l *applogger.Logger) (dservice.Oracle, error) {
	return oracle.New(oracle.Config{
		Provider:   cfg.Oracle.Provider,
		BaseURL:    cfg.Oracle.BaseURL,
		APIKey:     cfg.Oracle.APIKey,
		Model:      cfg.Oracle.Model,
		Timeout:    cfg.Oracle.Timeout,
		MaxRetries: cfg.Oracle.MaxRetries,
	}, l)
}

// ProvideNode dials the payment chain RPC endpoint.
func ProvideNode(cfg *config.Config) (*ethclient.Client, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	node, err := chain.Dial(ctx, cfg.Payment.RPCURL)
	if err != nil {
		return nil, nil, err
	}
	return node, node.Close, nil
}

func ProvideVerifier(cfg *config.Config, node *ethclient.Client, l *applogger.Logger) dservice.PaymentVerifier {
	return payment.NewChainVerifier(node, l,
		payment.WithConfirmTimeout(cfg.Payment.ConfirmTimeout),
		payment.WithPollInterval(cfg.Payment.PollInterval),
		payment.WithEnforceAmount(cfg.Payment.EnforceAmount),
	)
}

// ProvideChallenge converts the configured major-unit price into the
// fixed challenge served on every unpaid request.
func ProvideChallenge(cfg *config.Config) (models.Challenge, error) {
	price, err := decimal.NewFromString(cfg.Payment.Price)
	if err != nil {
		return models.Challenge{}, fmt.Errorf("payment.price: %w", err)
	}
	return models.Challenge{
		Price:        chain.ToMinorUnits(price, cfg.Payment.TokenDecimals),
		PayeeAddress: common.HexToAddress(cfg.Payment.PayeeAddress),
		TokenAddress: common.HexToAddress(cfg.Payment.TokenAddress),
	}, nil
}

// ProvideDecisionSink picks where decision events are recorded.
func ProvideDecisionSink(cfg *config.Config, reg *prometheus.Registry) (drepo.DecisionSink, error) {
	switch cfg.Sink.Backend {
	case "kafka":
		k := cfg.Sink.Kafka
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(k.Brokers),
			pkgkafka.WithCompression(k.Compression),
			pkgkafka.WithRequiredAcks(k.RequiredAcks),
			pkgkafka.WithWriteTimeout(k.WriteTimeout),
			pkgkafka.WithHashByKey(true),
			pkgkafka.WithRegisterer(reg),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaDecisionSink(producer, k.Topic), nil
	case "clickhouse":
		ch := cfg.Sink.ClickHouse
		client, err := pkgch.NewClient(
			pkgch.WithHost(ch.Host),
			pkgch.WithPort(ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithHTTP(ch.UseHTTP),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		table := ch.Database + "." + ch.Table
		if err := client.InitSchema(ctx, append([]string{
			"CREATE DATABASE IF NOT EXISTS " + ch.Database,
		}, internalrepo.DecisionEventsDDL(table)...)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return internalrepo.NewClickHouseDecisionSink(client.DB(), table, client.Close), nil
	default:
		return internalrepo.NopDecisionSink{}, nil
	}
}

func ProvideRecorder(cfg *config.Config, sink drepo.DecisionSink, m drepo.Metrics, l *applogger.Logger) *usecase.DecisionRecorder {
	return usecase.NewDecisionRecorder(sink, cfg.Sink.Backend, m, l)
}

// ProvideAgent builds the settlement agent. It returns nil without a
// private key; triggers then answer 503.
func ProvideAgent(cfg *config.Config, node *ethclient.Client, m drepo.Metrics, l *applogger.Logger) (*settlement.Agent, error) {
	if cfg.Agent.PrivateKey == "" {
		l.Info("agent wallet not configured, /trigger_agent disabled")
		return nil, nil
	}
	wallet, err := chain.NewWallet(node, cfg.Agent.PrivateKey, cfg.Payment.ChainID, cfg.Agent.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("agent wallet: %w", err)
	}
	return NewAgent(cfg, wallet, m, l), nil
}

// NewAgent configures a settlement agent paying through payer.
func NewAgent(cfg *config.Config, payer settlement.Payer, m drepo.Metrics, l *applogger.Logger) *settlement.Agent {
	return settlement.NewAgent(cfg.Agent.APIURL, payer, l,
		settlement.WithPolling(cfg.Agent.PollInterval, cfg.Agent.MaxAttempts),
		settlement.WithSource(cfg.Agent.Source),
		settlement.WithTokenDecimals(cfg.Payment.TokenDecimals),
		settlement.WithMetrics(m),
		settlement.WithClient(xhttp.NewClient(
			xhttp.WithTimeout(cfg.Agent.HTTPTimeout),
			xhttp.WithUserAgent("x402-agent/1.0"),
		)),
	)
}

func ProvideRunner(cfg *config.Config, agent *settlement.Agent, c cache.Service, l *applogger.Logger) (*settlement.Runner, error) {
	return settlement.NewRunner(agent, c, cfg.Agent.Schedule, l)
}

// ProvideRateLimit returns the /signal limiter, nil when disabled.
func ProvideRateLimit(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.RateLimit.RPS <= 0 {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware()
}

func ProvideHandlers(
	svc *usecase.SignalService,
	audit *usecase.AuditLog,
	settings *usecase.Settings,
	ledger *usecase.Ledger,
	runner *settlement.Runner,
	limit echo.MiddlewareFunc,
	l *applogger.Logger,
) []xhttp.Handler {
	return []xhttp.Handler{
		api.NewSignalHandler(svc, limit, l),
		api.NewAdminHandler(audit, settings, ledger, runner, l),
		api.NewLogStreamHandler(audit, l),
	}
}

func ProvideHTTPServer(cfg *config.Config, handlers []xhttp.Handler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true),
		xhttp.WithExposeHeaders(models.HeaderPrice, models.HeaderAddress, models.HeaderToken),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg, reg))
	}
	return xhttp.NewServer(l, handlers, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(srv *xhttp.Server, runner *settlement.Runner, recorder *usecase.DecisionRecorder, l *applogger.Logger) *server.App {
	return server.New(srv, runner, recorder, l)
}
