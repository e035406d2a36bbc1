package dispatcher

import (
	"time"

	"github.com/shopspring/decimal"

	"aicore/internal/models"
	"aicore/internal/providers"
)

const (
	defaultModuleName    = "default"
	defaultOperationType = "chat"
)

// Config carries every tunable the dispatcher reads. Nothing is looked up
// from global state while a request is being served.
type Config struct {
	Enabled bool

	DefaultMaxTokens   int
	DefaultTemperature float64

	ConnectTimeout time.Duration
	RequestTimeout time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration
}

// Options tune a single chat call. Nil pointers mean "use the module default".
type Options struct {
	ModuleName    string
	OperationType string
	MaxTokens     *int
	Temperature   *float64
	ProviderType  models.ProviderType
	CompanyID     *int64
	UserID        *int64
	IPAddress     string
	UserAgent     string
}

func (o Options) withDefaults() Options {
	if o.ModuleName == "" {
		o.ModuleName = defaultModuleName
	}
	if o.OperationType == "" {
		o.OperationType = defaultOperationType
	}
	return o
}

// Result is the normalized outcome of a successful chat call
type Result struct {
	Content          string              `json:"content"`
	Usage            providers.Usage     `json:"usage"`
	Cost             decimal.Decimal     `json:"cost"`
	ProcessingTimeMs int64               `json:"processing_time_ms"`
	ModelID          int64               `json:"model_id"`
	ModelIdentifier  string              `json:"model_identifier"`
	ProviderType     models.ProviderType `json:"provider_type"`
	Cached           bool                `json:"cached"`
}

// fingerprint is the cache identity of a request. User and transport
// details are not part of it.
type fingerprint struct {
	Message       string              `json:"message"`
	History       []providers.Message `json:"history"`
	ModuleName    string              `json:"module_name"`
	OperationType string              `json:"operation_type"`
	MaxTokens     *int                `json:"max_tokens"`
	Temperature   *float64            `json:"temperature"`
	ProviderType  models.ProviderType `json:"provider_type"`
	CompanyID     *int64              `json:"company_id"`
}
