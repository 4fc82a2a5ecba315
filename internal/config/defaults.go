package config

const (
	defaultDataDir            = "~/.local/share/stencil/data"
	defaultLogDir             = "~/.local/share/stencil/logs"
	defaultArtworkDir         = "~/.local/share/stencil/artwork"
	defaultSheetDir           = "~/.local/share/stencil/sheets"
	defaultOrderRequestTimout = 30
	defaultAIBaseURL          = "https://api.openai.com/v1/chat/completions"
	defaultAIModel            = "gpt-4o-mini"
	defaultAITimeoutSeconds   = 30
	defaultAIDefaultYear      = "2026"
	defaultAIAttemptLimit     = 3
	defaultArtworkTimeout     = 120
	defaultArtworkSettle      = 5
	defaultMaxNames           = 10
	defaultMinFreeSpaceGiB    = 1
	defaultSheetCapacity      = 12
	defaultMixedColorLabel    = "Mixed"
	defaultReferenceField     = "customField1"
	defaultJobCodePrefix      = "STN"
	defaultRateLimitThreshold = 15
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultIngestInterval     = 3600
	defaultResolveInterval    = 900
	defaultArtworkInterval    = 900
	defaultNestingInterval    = 1800
	defaultTagSyncInterval    = 1800
	defaultErrorRetryInterval = 60
	defaultBatchLimit         = 50
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			ArtworkDir: defaultArtworkDir,
			SheetDir:   defaultSheetDir,
		},
		OrderSource: OrderSource{
			RequestTimeout: defaultOrderRequestTimout,
		},
		AI: AI{
			BaseURL:        defaultAIBaseURL,
			Model:          defaultAIModel,
			TimeoutSeconds: defaultAITimeoutSeconds,
			DefaultYear:    defaultAIDefaultYear,
			AttemptLimit:   defaultAIAttemptLimit,
		},
		Artwork: Artwork{
			TimeoutSeconds:  defaultArtworkTimeout,
			SettleSeconds:   defaultArtworkSettle,
			MaxNames:        defaultMaxNames,
			MinFreeSpaceGiB: defaultMinFreeSpaceGiB,
		},
		Nesting: Nesting{
			SheetCapacity:   defaultSheetCapacity,
			MixedColorLabel: defaultMixedColorLabel,
		},
		Jobs: Jobs{
			RequestTimeout: defaultOrderRequestTimout,
			ReferenceField: defaultReferenceField,
			CodePrefix:     defaultJobCodePrefix,
		},
		Tags: Tags{
			RateLimitThreshold: defaultRateLimitThreshold,
		},
		Workflow: Workflow{
			IngestInterval:     defaultIngestInterval,
			ResolveInterval:    defaultResolveInterval,
			ArtworkInterval:    defaultArtworkInterval,
			NestingInterval:    defaultNestingInterval,
			TagSyncInterval:    defaultTagSyncInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			BatchLimit:         defaultBatchLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Ingest:         true,
			Review:         true,
			Sheets:         true,
			Jobs:           true,
			Errors:         true,
		},
	}
}
