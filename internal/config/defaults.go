package config

const (
	defaultImagesDir       = "public/images"
	defaultWebPSubdir      = "webp"
	defaultDatabasePath    = "data/commissions.db"
	defaultJPEGQuality     = 95
	defaultWebPQuality     = 80
	defaultBusyTimeoutMS   = 5000
	defaultAPIBind         = "127.0.0.1:7488"
	defaultAPIRateLimit    = 5.0
	defaultAPIRateBurst    = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultIndexFileName   = "index.json"
	defaultPipelineLockDir = ""
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImagesDir:    defaultImagesDir,
			WebPSubdir:   defaultWebPSubdir,
			DatabasePath: defaultDatabasePath,
			LockDir:      defaultPipelineLockDir,
		},
		Pipeline: Pipeline{
			JPEGQuality:      defaultJPEGQuality,
			WebPQuality:      defaultWebPQuality,
			PreserveMetadata: true,
			WriteIndex:       true,
			IndexFileName:    defaultIndexFileName,
		},
		Database: Database{
			BusyTimeoutMS: defaultBusyTimeoutMS,
			Writable:      true,
		},
		API: API{
			Bind:      defaultAPIBind,
			Metrics:   true,
			RateLimit: defaultAPIRateLimit,
			RateBurst: defaultAPIRateBurst,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
