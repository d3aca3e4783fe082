package config

import (
	"math/big"
	"os"
	"strconv"
	"time"

	pstrings "clubdomains/pkg/platform/strings"
)

// Year is the registration and renewal unit.
const Year = 365 * 24 * time.Hour

// Config is the full process configuration.
type Config struct {
	Server     Server
	Database   Database
	Redis      RedisConfig
	Kafka      Kafka
	Registry   Registry
	Club       Club
	Membership Membership
	RateLimit  RateLimit
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
	// OwnerAddress is the contract owner for every ledger (pause, surplus, oracle allow-list).
	OwnerAddress string
}

// Database holds the PostgreSQL DSN. Empty selects in-memory stores.
type Database struct {
	URL string
}

// RedisConfig configures the cross-chain verification cache. Empty URL selects memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the oracle event bus. No brokers selects the in-process log.
type Kafka struct {
	Brokers       []string
	RequestTopic  string
	ResultTopic   string
	ConsumerGroup string
	// OracleAddress is the identity the fulfiller submits verifications as.
	OracleAddress string
}

// RateLimit sets per-window request allowances. Redis-backed when Redis is configured.
type RateLimit struct {
	Disabled bool
	Reads    int
	Writes   int
	Window   time.Duration
}

// Registry holds the domain lifecycle and pricing parameters.
type Registry struct {
	MinCommitmentAge      time.Duration
	MaxCommitmentAge      time.Duration
	GracePeriod           time.Duration
	GracePenaltyThreshold time.Duration
	// GracePenaltyRatio is applied as ratio/1000 once the penalty threshold has passed.
	GracePenaltyRatio int64
	MaxYears          int
	AutoRenewLeadTime time.Duration
	// Names up to PremiumMaxLength characters pay PremiumPrice per year.
	PremiumMaxLength int
	PremiumPrice     *big.Int
	BasePrice        *big.Int
}

// Club holds club lifecycle options.
type Club struct {
	// AutoActivateOnTransfer skips the explicit inheritance confirmation.
	AutoActivateOnTransfer bool
}

// Membership holds membership source parameters.
type Membership struct {
	PlatformFeeBps  int64
	VerificationFee *big.Int
	// Oracles is the initial cross-chain oracle allow-list.
	Oracles []string
}

// DefaultRegistry returns the production registry parameters.
func DefaultRegistry() Registry {
	return Registry{
		MinCommitmentAge:      time.Minute,
		MaxCommitmentAge:      24 * time.Hour,
		GracePeriod:           90 * 24 * time.Hour,
		GracePenaltyThreshold: 30 * 24 * time.Hour,
		GracePenaltyRatio:     1500,
		MaxYears:              10,
		AutoRenewLeadTime:     30 * 24 * time.Hour,
		PremiumMaxLength:      4,
		PremiumPrice:          mustBig("100000000000000000"),
		BasePrice:             mustBig("10000000000000000"),
	}
}

// DefaultMembership returns the production membership parameters.
func DefaultMembership() Membership {
	return Membership{
		PlatformFeeBps:  250,
		VerificationFee: mustBig("1000000000000000"),
	}
}

// FromEnv builds the config from environment variables so main stays lean.
// Callers may preload a .env file before calling it.
func FromEnv() Config {
	reg := DefaultRegistry()
	reg.MinCommitmentAge = getEnvDuration("REGISTRY_MIN_COMMITMENT_AGE", reg.MinCommitmentAge)
	reg.MaxCommitmentAge = getEnvDuration("REGISTRY_MAX_COMMITMENT_AGE", reg.MaxCommitmentAge)
	reg.GracePeriod = getEnvDuration("REGISTRY_GRACE_PERIOD", reg.GracePeriod)
	reg.GracePenaltyThreshold = getEnvDuration("REGISTRY_GRACE_PENALTY_THRESHOLD", reg.GracePenaltyThreshold)
	reg.GracePenaltyRatio = int64(getEnvInt("REGISTRY_GRACE_PENALTY_RATIO", int(reg.GracePenaltyRatio)))
	reg.MaxYears = getEnvInt("REGISTRY_MAX_YEARS", reg.MaxYears)
	reg.AutoRenewLeadTime = getEnvDuration("REGISTRY_AUTO_RENEW_LEAD_TIME", reg.AutoRenewLeadTime)
	reg.PremiumPrice = getEnvBig("REGISTRY_PREMIUM_PRICE", reg.PremiumPrice)
	reg.BasePrice = getEnvBig("REGISTRY_BASE_PRICE", reg.BasePrice)

	mem := DefaultMembership()
	mem.PlatformFeeBps = int64(getEnvInt("MEMBERSHIP_PLATFORM_FEE_BPS", int(mem.PlatformFeeBps)))
	mem.VerificationFee = getEnvBig("MEMBERSHIP_VERIFICATION_FEE", mem.VerificationFee)
	mem.Oracles = pstrings.SplitList(os.Getenv("ORACLE_ADDRESSES"))

	return Config{
		Server: Server{
			Addr:          getEnv("CLUBDOMAINS_ADDR", ":8080"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     getEnv("JWT_ISSUER", "clubdomains"),
			JWTAudience:   getEnv("JWT_AUDIENCE", "clubdomains-api"),
			AdminToken:    os.Getenv("ADMIN_API_TOKEN"),
			OwnerAddress:  os.Getenv("OWNER_ADDRESS"),
		},
		Database: Database{URL: os.Getenv("DATABASE_URL")},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       pstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			RequestTopic:  getEnv("KAFKA_VERIFICATION_REQUEST_TOPIC", "verification-requests"),
			ResultTopic:   getEnv("KAFKA_VERIFICATION_RESULT_TOPIC", "verification-results"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "clubdomains-oracle"),
			OracleAddress: os.Getenv("ORACLE_SUBMITTER_ADDRESS"),
		},
		Registry:   reg,
		Club:       Club{AutoActivateOnTransfer: os.Getenv("CLUB_AUTO_ACTIVATE_ON_TRANSFER") == "true"},
		Membership: mem,
		RateLimit: RateLimit{
			Disabled: os.Getenv("RATELIMIT_DISABLED") == "true",
			Reads:    getEnvInt("RATELIMIT_READS", 300),
			Writes:   getEnvInt("RATELIMIT_WRITES", 60),
			Window:   getEnvDuration("RATELIMIT_WINDOW", time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBig(key string, fallback *big.Int) *big.Int {
	if v := os.Getenv(key); v != "" {
		if n, ok := new(big.Int).SetString(v, 10); ok && n.Sign() >= 0 {
			return n
		}
	}
	return fallback
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("config: bad amount literal " + s)
	}
	return n
}
