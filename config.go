package foundry

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Logger is the minimal logging interface supported by the SDK.
type Logger interface {
	Printf(format string, v ...any)
}

// RequestHook allows callers to inspect or mutate requests before they are sent.
type RequestHook func(*http.Request)

// ResponseHook allows callers to inspect responses (raw bytes included).
type ResponseHook func(*http.Response, []byte)

// Config holds SDK configuration.
type Config struct {
	Endpoint   string
	APIVersion string
	Scope      string

	Credential azcore.TokenCredential
	APIKey     string

	Timeout    time.Duration
	MaxRetries int

	Debug bool

	ExtraHeaders http.Header
	ProxyURL     *url.URL

	RequestIDHeader  string
	DefaultRequestID string
	AutoRequestID    bool

	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
	RetryJitter          float64

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// PollInterval is the delay between status checks while waiting on runs
	// and provisioning operations.
	PollInterval time.Duration

	Logger        Logger
	RedactHeaders []string

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

// ConfigParams provides optional overrides for building a Config.
type ConfigParams struct {
	Endpoint        string
	APIVersion      string
	Scope           string
	Credential      azcore.TokenCredential
	APIKey          string
	Timeout         time.Duration
	TimeoutSeconds  float64
	MaxRetries      int
	Debug           *bool
	ExtraHeaders    http.Header
	ProxyURL        string
	RequestID       string
	AutoRequestID   *bool
	RequestIDHeader string

	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
	RetryJitter          float64

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	PollInterval time.Duration

	Logger        Logger
	RedactHeaders []string

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

const (
	DefaultAgentsAPIVersion     = "2025-05-15-preview"
	DefaultAgentsScope          = "https://ai.azure.com/.default"
	DefaultManagementEndpoint   = "https://management.azure.com"
	DefaultManagementAPIVersion = "2025-04-01-preview"
	DefaultManagementScope      = "https://management.azure.com/.default"

	defaultTimeout         = 60 * time.Second
	defaultMaxRetries      = 3
	defaultRetryInitial    = 200 * time.Millisecond
	defaultRetryMax        = 2 * time.Second
	defaultRetryMultiplier = 2.0
	defaultRetryJitter     = 0.2
	defaultMaxIdleConns    = 100
	defaultMaxIdlePerHost  = 10
	defaultIdleConnTimeout = 90 * time.Second
	defaultRequestIDHeader = "x-ms-client-request-id"
	defaultPollInterval    = time.Second
)

// newDefaultCredential is swapped in tests so config loading never touches
// the developer's real Azure login.
var newDefaultCredential = func() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// LoadConfig builds a Config for the agents data plane from an endpoint and
// credential, falling back to environment variables for everything else.
// Environment fallbacks:
//
//	FOUNDRY_PROJECT_ENDPOINT, FOUNDRY_API_KEY, FOUNDRY_API_VERSION, FOUNDRY_TIMEOUT,
//	FOUNDRY_MAX_RETRIES, FOUNDRY_DEBUG, FOUNDRY_PROXY, FOUNDRY_EXTRA_HEADERS,
//	FOUNDRY_REQUEST_ID, FOUNDRY_AUTO_REQUEST_ID, FOUNDRY_REQUEST_ID_HEADER,
//	FOUNDRY_RETRY_INITIAL_MS, FOUNDRY_RETRY_MAX_MS, FOUNDRY_RETRY_MULTIPLIER,
//	FOUNDRY_RETRY_JITTER, FOUNDRY_MAX_IDLE_CONNS, FOUNDRY_MAX_IDLE_CONNS_PER_HOST,
//	FOUNDRY_IDLE_CONN_TIMEOUT, FOUNDRY_POLL_INTERVAL.
func LoadConfig(endpoint string, credential azcore.TokenCredential) (Config, error) {
	return LoadConfigWithParams(ConfigParams{
		Endpoint:   endpoint,
		Credential: credential,
	})
}

// LoadConfigWithParams is an extended constructor that accepts structured options.
func LoadConfigWithParams(params ConfigParams) (Config, error) {
	envIdleTimeout, err := parseEnvDuration("FOUNDRY_IDLE_CONN_TIMEOUT", time.Second)
	if err != nil {
		return Config{}, err
	}
	envPollInterval, err := parseEnvDuration("FOUNDRY_POLL_INTERVAL", time.Second)
	if err != nil {
		return Config{}, err
	}

	envMaxRetries, envMaxRetriesSet, err := parseEnvInt("FOUNDRY_MAX_RETRIES")
	if err != nil {
		return Config{}, err
	}
	envMaxIdleConns, envMaxIdleConnsSet, err := parseEnvInt("FOUNDRY_MAX_IDLE_CONNS")
	if err != nil {
		return Config{}, err
	}
	envMaxIdlePerHost, envMaxIdlePerHostSet, err := parseEnvInt("FOUNDRY_MAX_IDLE_CONNS_PER_HOST")
	if err != nil {
		return Config{}, err
	}

	maxRetries := defaultMaxRetries
	if envMaxRetriesSet {
		maxRetries = envMaxRetries
	}
	if params.MaxRetries != 0 {
		maxRetries = params.MaxRetries
	}

	maxIdleConns := defaultMaxIdleConns
	if envMaxIdleConnsSet {
		maxIdleConns = envMaxIdleConns
	}
	if params.MaxIdleConns != 0 {
		maxIdleConns = params.MaxIdleConns
	}

	maxIdlePerHost := defaultMaxIdlePerHost
	if envMaxIdlePerHostSet {
		maxIdlePerHost = envMaxIdlePerHost
	}
	if params.MaxIdleConnsPerHost != 0 {
		maxIdlePerHost = params.MaxIdleConnsPerHost
	}

	cfg := Config{
		Endpoint:             firstNonEmpty(params.Endpoint, os.Getenv("FOUNDRY_PROJECT_ENDPOINT")),
		APIVersion:           firstNonEmpty(params.APIVersion, os.Getenv("FOUNDRY_API_VERSION"), DefaultAgentsAPIVersion),
		Scope:                firstNonEmpty(params.Scope, DefaultAgentsScope),
		Credential:           params.Credential,
		APIKey:               firstNonEmpty(params.APIKey, os.Getenv("FOUNDRY_API_KEY")),
		MaxRetries:           maxRetries,
		ExtraHeaders:         cloneHeaders(params.ExtraHeaders),
		RequestIDHeader:      firstNonEmpty(params.RequestIDHeader, os.Getenv("FOUNDRY_REQUEST_ID_HEADER"), defaultRequestIDHeader),
		DefaultRequestID:     firstNonEmpty(params.RequestID, os.Getenv("FOUNDRY_REQUEST_ID")),
		RetryInitialInterval: firstNonZeroDuration(params.RetryInitialInterval, defaultRetryInitial),
		RetryMaxInterval:     firstNonZeroDuration(params.RetryMaxInterval, defaultRetryMax),
		RetryMultiplier:      defaultRetryMultiplier,
		RetryJitter:          defaultRetryJitter,
		MaxIdleConns:         maxIdleConns,
		MaxIdleConnsPerHost:  maxIdlePerHost,
		IdleConnTimeout:      firstNonZeroDuration(params.IdleConnTimeout, envIdleTimeout, defaultIdleConnTimeout),
		PollInterval:         firstNonZeroDuration(params.PollInterval, envPollInterval, defaultPollInterval),
		Logger:               params.Logger,
		RedactHeaders:        params.RedactHeaders,
		BeforeRequest:        params.BeforeRequest,
		AfterResponse:        params.AfterResponse,
		AutoRequestID:        true,
	}

	if cfg.ExtraHeaders == nil {
		cfg.ExtraHeaders = http.Header{}
	}
	if cfg.RedactHeaders == nil {
		cfg.RedactHeaders = []string{"Authorization", "api-key"}
	}
	if params.RetryMultiplier != 0 {
		cfg.RetryMultiplier = params.RetryMultiplier
	}
	if params.RetryJitter != 0 {
		cfg.RetryJitter = params.RetryJitter
	}

	if params.Debug != nil {
		cfg.Debug = *params.Debug
	} else if env := os.Getenv("FOUNDRY_DEBUG"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse FOUNDRY_DEBUG: %w", err)
		}
		cfg.Debug = val
	}

	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
	} else if params.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(params.TimeoutSeconds * float64(time.Second))
	} else if envTimeout, err := parseEnvDuration("FOUNDRY_TIMEOUT", time.Second); err != nil {
		return Config{}, err
	} else if envTimeout > 0 {
		cfg.Timeout = envTimeout
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Timeout < 0 || params.Timeout < 0 {
		return Config{}, fmt.Errorf("timeout must be non-negative")
	}

	if env := os.Getenv("FOUNDRY_EXTRA_HEADERS"); env != "" {
		envHeaders, err := parseHeadersEnv(env)
		if err != nil {
			return Config{}, err
		}
		for k, vals := range envHeaders {
			for _, v := range vals {
				cfg.ExtraHeaders.Add(k, v)
			}
		}
	}

	proxyURL := params.ProxyURL
	if proxyURL == "" {
		proxyURL = os.Getenv("FOUNDRY_PROXY")
	}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return Config{}, fmt.Errorf("parse FOUNDRY_PROXY: %w", err)
		}
		cfg.ProxyURL = parsed
	}

	if params.AutoRequestID != nil {
		cfg.AutoRequestID = *params.AutoRequestID
	} else if env := os.Getenv("FOUNDRY_AUTO_REQUEST_ID"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse FOUNDRY_AUTO_REQUEST_ID: %w", err)
		}
		cfg.AutoRequestID = val
	}

	if val, err := parseEnvDuration("FOUNDRY_RETRY_INITIAL_MS", time.Millisecond); err != nil {
		return Config{}, err
	} else if val > 0 && params.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = val
	}
	if val, err := parseEnvDuration("FOUNDRY_RETRY_MAX_MS", time.Millisecond); err != nil {
		return Config{}, err
	} else if val > 0 && params.RetryMaxInterval == 0 {
		cfg.RetryMaxInterval = val
	}
	if valStr := os.Getenv("FOUNDRY_RETRY_MULTIPLIER"); valStr != "" && params.RetryMultiplier == 0 {
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse FOUNDRY_RETRY_MULTIPLIER: %w", err)
		}
		cfg.RetryMultiplier = val
	}
	if valStr := os.Getenv("FOUNDRY_RETRY_JITTER"); valStr != "" && params.RetryJitter == 0 {
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse FOUNDRY_RETRY_JITTER: %w", err)
		}
		cfg.RetryJitter = val
	}

	if cfg.Endpoint == "" {
		return Config{}, ErrMissingEndpoint
	}
	if err := validateEndpoint(cfg.Endpoint); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries < 0 {
		return Config{}, fmt.Errorf("max retries must be >= 0")
	}
	if cfg.MaxIdleConns < 0 {
		return Config{}, fmt.Errorf("max idle conns must be >= 0")
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		return Config{}, fmt.Errorf("max idle conns per host must be >= 0")
	}
	if cfg.IdleConnTimeout < 0 {
		return Config{}, fmt.Errorf("idle connection timeout must be non-negative")
	}
	if cfg.PollInterval < 0 {
		return Config{}, fmt.Errorf("poll interval must be non-negative")
	}
	if cfg.RetryInitialInterval <= 0 || cfg.RetryMaxInterval <= 0 {
		return Config{}, fmt.Errorf("retry intervals must be positive")
	}
	if cfg.RetryMultiplier < 1 {
		return Config{}, fmt.Errorf("retry multiplier must be >= 1")
	}
	if cfg.RetryJitter < 0 || cfg.RetryJitter > 1 {
		return Config{}, fmt.Errorf("retry jitter must be between 0 and 1")
	}

	if cfg.Credential == nil && cfg.APIKey == "" {
		cred, err := newDefaultCredential()
		if err != nil {
			return Config{}, errors.Join(ErrMissingCredential, err)
		}
		cfg.Credential = cred
	}

	return cfg, nil
}

func validateEndpoint(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return fmt.Errorf("endpoint %q has no host", endpoint)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func parseEnvInt(env string) (int, bool, error) {
	val, ok := os.LookupEnv(env)
	if !ok || val == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s: %w", env, err)
	}
	return parsed, true, nil
}

func parseEnvDuration(env string, numericUnit time.Duration) (time.Duration, error) {
	val := os.Getenv(env)
	if val == "" {
		return 0, nil
	}
	if duration, err := time.ParseDuration(val); err == nil {
		return duration, nil
	}
	seconds, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", env, err)
	}
	return time.Duration(seconds * float64(numericUnit)), nil
}

func parseHeadersEnv(val string) (http.Header, error) {
	headers := http.Header{}
	if val == "" {
		return headers, nil
	}
	for _, entry := range strings.FieldsFunc(val, func(r rune) bool { return r == ';' || r == ',' || r == '\n' }) {
		if entry == "" {
			continue
		}
		sep := ":"
		if strings.Contains(entry, "=") {
			sep = "="
		}
		parts := strings.SplitN(entry, sep, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		headers.Add(key, value)
	}
	return headers, nil
}

func cloneHeaders(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	clone := http.Header{}
	for k, vals := range h {
		clone[k] = append([]string(nil), vals...)
	}
	return clone
}
