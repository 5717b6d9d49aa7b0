package config

const (
	defaultPlaquesDir               = "~/Pictures/plaques"
	defaultImagesDir                = "~/.local/share/plaques2gallery/images"
	defaultStateDir                 = "~/.local/share/plaques2gallery"
	defaultLogDir                   = "~/.local/share/plaques2gallery/logs"
	defaultExportPath               = "~/.local/share/plaques2gallery/gallery.xlsx"
	defaultExportSheet              = "Gallery"
	defaultBatchSize                = 70
	defaultWorkers                  = 1
	defaultWatchDebounceMillis      = 750
	defaultMaxTransientAttempts     = 3
	defaultQuotaLimit               = 70
	defaultQuotaWindow              = "24h"
	defaultQuotaTimezone            = "UTC"
	defaultQuotaBackend             = "sqlite"
	defaultQuotaRedisPrefix         = "plaques2gallery:quota"
	defaultSearchBaseURL            = "https://www.googleapis.com/customsearch/v1"
	defaultSearchResults            = 3
	defaultSearchTimeoutSeconds     = 15
	defaultLLMBaseURL               = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel                 = "google/gemini-2.5-flash"
	defaultLLMReferer               = "https://github.com/plaques2gallery/plaques2gallery"
	defaultLLMTitle                 = "plaques2gallery"
	defaultLLMTimeoutSeconds        = 60
	defaultNormalizeMinConfidence   = 0.5
	defaultOCRLanguages             = "eng+deu+ita+kor+chi_sim+jpn"
	defaultOCRThresholdStart        = 0
	defaultOCRThresholdStop         = 240
	defaultOCRThresholdStep         = 10
	defaultOCRMinShortSide          = 1000
	defaultResolverEngine           = "chrome"
	defaultResolverOrdering         = OrderingTrustFirst
	defaultResolverMinArea          = 10000
	defaultResolverMinBytes         = 2048
	defaultResolverMinDimension     = 100
	defaultResolverPageTimeout      = 10
	defaultResolverSettleMillis     = 2000
	defaultResolverDownloadTimeout  = 10
	defaultResolverUserAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultNotifyRequestTimeout     = 10
	defaultMetricsListen            = "127.0.0.1:9464"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 30
	defaultLogMaxSizeMB             = 5
	defaultLogMaxBackups            = 3
	defaultConfigRelativePath       = "~/.config/plaques2gallery/config.toml"
	defaultProjectConfigFile        = "plaques2gallery.toml"
	defaultDotEnvFile               = ".env"
	defaultDatabaseFileName         = "plaques.db"
	defaultLockFileName             = "plaques2gallery.lock"
	defaultLogFileName              = "plaques2gallery.log"
	defaultWatchQuotaRecheckSeconds = 300
)

// Resolver ordering policies.
const (
	OrderingTrustFirst = "trust_first"
	OrderingRank       = "rank"
)

// Quota backends.
const (
	QuotaBackendSQLite = "sqlite"
	QuotaBackendRedis  = "redis"
)

// Browser engines.
const (
	EngineChrome = "chrome"
	EngineStatic = "static"
)

var defaultTrustDomains = []string{
	"wikipedia.org",
	"wikimedia.org",
	"wikiart.org",
	"metmuseum.org",
	"artic.edu",
	"mfa.org",
	"nga.gov",
	"sfmoma.org",
	"guggenheim.org",
	"philamuseum.org",
	"albertina.at",
	"belvedere.at",
	"harvardartmuseums.org",
	"leopoldmuseum.org",
	"museodelnovecento.org",
	"moma.org",
	"galleriaborghese.beniculturali.it",
	"doriapamphilj.it",
	"famsf.org",
	"noma.org",
	"sjmusart.org",
	"bampfa.org",
	"si.edu",
}

var defaultConsentKeywords = []string{
	"accept",
	"allow",
	"akzeptieren",
	"consent",
	"zustimmen",
	"agree",
	"einwilligen",
	"accetta",
	"consenti",
	"acconsenti",
	"ho capito",
}

var defaultCaptchaKeywords = []string{
	"captcha",
	"not a robot",
	"cloudflare",
	"verify you are human",
	"checking your browser",
	"kein roboter",
	"non sono un robot",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			PlaquesDir: defaultPlaquesDir,
			ImagesDir:  defaultImagesDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
		},
		Workflow: Workflow{
			BatchSize:            defaultBatchSize,
			Workers:              defaultWorkers,
			WatchDebounceMillis:  defaultWatchDebounceMillis,
			QuotaRecheckSeconds:  defaultWatchQuotaRecheckSeconds,
			MaxTransientAttempts: defaultMaxTransientAttempts,
		},
		Quota: Quota{
			Limit:       defaultQuotaLimit,
			Window:      defaultQuotaWindow,
			Timezone:    defaultQuotaTimezone,
			Backend:     defaultQuotaBackend,
			RedisPrefix: defaultQuotaRedisPrefix,
		},
		Search: Search{
			BaseURL:        defaultSearchBaseURL,
			Results:        defaultSearchResults,
			TimeoutSeconds: defaultSearchTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Normalize: Normalize{
			MinConfidence: defaultNormalizeMinConfidence,
		},
		OCR: OCR{
			Languages:      defaultOCRLanguages,
			ThresholdStart: defaultOCRThresholdStart,
			ThresholdStop:  defaultOCRThresholdStop,
			ThresholdStep:  defaultOCRThresholdStep,
			MinShortSide:   defaultOCRMinShortSide,
		},
		Resolver: Resolver{
			Engine:                 defaultResolverEngine,
			Ordering:               defaultResolverOrdering,
			TrustDomains:           append([]string(nil), defaultTrustDomains...),
			MinArea:                defaultResolverMinArea,
			MinBytes:               defaultResolverMinBytes,
			MinDimension:           defaultResolverMinDimension,
			PageTimeoutSeconds:     defaultResolverPageTimeout,
			SettleDelayMillis:      defaultResolverSettleMillis,
			DownloadTimeoutSeconds: defaultResolverDownloadTimeout,
			ConsentKeywords:        append([]string(nil), defaultConsentKeywords...),
			CaptchaKeywords:        append([]string(nil), defaultCaptchaKeywords...),
			UserAgent:              defaultResolverUserAgent,
			Headless:               true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunCompleted:   true,
			QuotaExhausted: true,
			Errors:         true,
		},
		Metrics: Metrics{
			Listen: defaultMetricsListen,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
		Export: Export{
			Path:  defaultExportPath,
			Sheet: defaultExportSheet,
		},
	}
}
